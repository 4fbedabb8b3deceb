package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Model holds the per-model connection and logging settings declared in
// systems.properties under atscale.<key>.*.
type Model struct {
	Name string // as listed in atscale.models
	Key  string // property-key form of Name (see CleanKey)

	JdbcURL      string
	JdbcUser     string
	JdbcPassword string
	MaxPoolSize  int

	XmlaURL string
	Cube    string
	Catalog string

	LogResultSetRows bool // atscale.<key>.jdbc.log.resultset.rows
	LogResponseBody  bool // atscale.<key>.xmla.log.responsebody
}

// Snowflake holds the archive warehouse connection settings
// (snowflake.archive.* properties). Password and Token are alternatives:
// with an empty password and a non-empty token the client authenticates
// via OAuth.
type Snowflake struct {
	Account   string
	User      string
	Password  string
	Token     string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// Postgres points at the AtScale repository database used by extract.
type Postgres struct {
	URL      string
	User     string
	Password string
}

// Datadog configures the optional metrics backend. An empty APIKey leaves
// metrics disabled.
type Datadog struct {
	APIKey string
	AppKey string
	Site   string
	Env    string
}

type Config struct {
	Models    []Model
	Cubes     []string // distinct xmla cube names, model names when none configured
	Snowflake Snowflake
	Postgres  Postgres
	Datadog   Datadog

	// ThrottleMs paces the archive loop between files (0 = no pause).
	ThrottleMs int
}

// CleanKey normalizes a model name to its property-key form: surrounding
// quotes dropped, interior spaces replaced with underscores. "Internet Sales"
// is configured as atscale.Internet_Sales.jdbc.url.
func CleanKey(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// Load builds a Config from a viper instance that has already read a
// properties file. Lookups are case-insensitive (viper lowercases keys),
// so mixed-case model keys resolve fine.
func Load(v *viper.Viper) (*Config, error) {
	models := splitList(v.GetString("atscale.models"))
	if len(models) == 0 {
		return nil, fmt.Errorf("config: atscale.models is required")
	}

	c := &Config{
		ThrottleMs: v.GetInt("atscale.gatling.throttle.ms"),
		Snowflake: Snowflake{
			Account:   v.GetString("snowflake.archive.account"),
			User:      v.GetString("snowflake.archive.username"),
			Password:  v.GetString("snowflake.archive.password"),
			Token:     v.GetString("snowflake.archive.token"),
			Warehouse: v.GetString("snowflake.archive.warehouse"),
			Database:  v.GetString("snowflake.archive.database"),
			Schema:    v.GetString("snowflake.archive.schema"),
			Role:      v.GetString("snowflake.archive.role"),
		},
		Postgres: Postgres{
			URL:      v.GetString("atscale.postgres.jdbc.url"),
			User:     v.GetString("atscale.postgres.jdbc.username"),
			Password: v.GetString("atscale.postgres.jdbc.password"),
		},
		Datadog: Datadog{
			APIKey: v.GetString("datadog.apikey"),
			AppKey: v.GetString("datadog.appkey"),
			Site:   v.GetString("datadog.site"),
			Env:    v.GetString("datadog.env"),
		},
	}

	for _, name := range models {
		key := CleanKey(name)
		p := "atscale." + key + "."
		m := Model{
			Name:             name,
			Key:              key,
			JdbcURL:          v.GetString(p + "jdbc.url"),
			JdbcUser:         v.GetString(p + "jdbc.username"),
			JdbcPassword:     v.GetString(p + "jdbc.password"),
			MaxPoolSize:      v.GetInt(p + "jdbc.maxpoolsize"),
			XmlaURL:          v.GetString(p + "xmla.url"),
			Cube:             v.GetString(p + "xmla.cube"),
			Catalog:          v.GetString(p + "xmla.catalog"),
			LogResultSetRows: v.GetBool(p + "jdbc.log.resultset.rows"),
			LogResponseBody:  v.GetBool(p + "xmla.log.responsebody"),
		}
		if m.MaxPoolSize == 0 {
			m.MaxPoolSize = 10
		}
		c.Models = append(c.Models, m)
	}

	c.Cubes = collectCubes(v, c.Models)
	return c, nil
}

// RequireSnowflake validates the settings the archive commands need.
func (c *Config) RequireSnowflake() error {
	sf := c.Snowflake
	var missing []string
	if sf.Account == "" {
		missing = append(missing, "snowflake.archive.account")
	}
	if sf.User == "" {
		missing = append(missing, "snowflake.archive.username")
	}
	if sf.Password == "" && sf.Token == "" {
		missing = append(missing, "snowflake.archive.password (or token)")
	}
	if sf.Database == "" {
		missing = append(missing, "snowflake.archive.database")
	}
	if sf.Schema == "" {
		missing = append(missing, "snowflake.archive.schema")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequirePostgres validates the settings the extract command needs.
func (c *Config) RequirePostgres() error {
	if c.Postgres.URL == "" {
		return fmt.Errorf("config: atscale.postgres.jdbc.url is required")
	}
	return nil
}

// collectCubes scans every atscale.*.xmla.cube property, not just the models
// list, since cubes can be configured for keys outside atscale.models.
// Falls back to the model names so xmla discovery still has something to
// look for. Sorted for deterministic iteration.
func collectCubes(v *viper.Viper, models []Model) []string {
	seen := map[string]bool{}
	var cubes []string
	keys := v.AllKeys()
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "atscale.") && strings.HasSuffix(k, ".xmla.cube") {
			val := strings.TrimSpace(v.GetString(k))
			if val != "" && !seen[val] {
				seen[val] = true
				cubes = append(cubes, val)
			}
		}
	}
	if len(cubes) == 0 {
		for _, m := range models {
			if !seen[m.Name] {
				seen[m.Name] = true
				cubes = append(cubes, m.Name)
			}
		}
	}
	return cubes
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
