package parsers

import (
	"fmt"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// NewParser returns a Parser for the given protocol ("jdbc" or "xmla")
func (f *Factory) NewParser(protocol string, opts ParserOptions) (Parser, error) {
	switch protocol {
	case "jdbc", "sql":
		return NewJdbcParser(opts), nil
	case "xmla", "soap":
		return NewXmlaParser(opts), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}
