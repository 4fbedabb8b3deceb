package loggen

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Shared value lists for synthetic result rows.

// RandomRegion returns a random sales territory from Regions.
func RandomRegion(f *gofakeit.Faker) string {
	return Regions[f.Number(0, len(Regions)-1)]
}

var Regions = []string{
	"Northwest", "Northeast", "Central", "Southwest", "Southeast",
	"Canada", "France", "Germany", "Australia", "United Kingdom",
}

// RandomProduct returns a random product from Products.
func RandomProduct(f *gofakeit.Faker) string {
	return Products[f.Number(0, len(Products)-1)]
}

var Products = []string{
	"Mountain-100 Silver", "Mountain-200 Black", "Mountain-400-W Silver",
	"Road-150 Red", "Road-250 Black", "Road-550-W Yellow", "Road-650 Black",
	"Touring-1000 Blue", "Touring-2000 Blue", "Touring-3000 Yellow",
	"Sport-100 Helmet Red", "Sport-100 Helmet Blue", "Sport-100 Helmet Black",
	"HL Road Frame Black", "HL Mountain Frame Silver", "LL Touring Frame Blue",
	"Short-Sleeve Classic Jersey", "Long-Sleeve Logo Jersey", "Cycling Cap",
	"Half-Finger Gloves", "Full-Finger Gloves", "Racing Socks",
	"Water Bottle 30 oz", "Mountain Bottle Cage", "Road Bottle Cage",
	"Patch Kit 8 Patches", "Hydration Pack 70 oz", "Bike Wash Dissolver",
	"Fender Set Mountain", "Touring Tire Tube",
}
