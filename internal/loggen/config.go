package loggen

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelGen describes one model to simulate traffic for.
type ModelGen struct {
	Name          string   `yaml:"name"`
	Cube          string   `yaml:"cube"`
	Catalog       string   `yaml:"catalog"`
	Protocols     []string `yaml:"protocols"`
	Workloads     []string `yaml:"workloads"`
	ResultSetRows bool     `yaml:"resultSetRows"`
	ResponseBody  bool     `yaml:"responseBody"`
}

// CubeName returns the cube, defaulting to the model name.
func (m ModelGen) CubeName() string {
	if m.Cube != "" {
		return m.Cube
	}
	return m.Name
}

// CatalogName returns the catalog, defaulting to the cube.
func (m ModelGen) CatalogName() string {
	if m.Catalog != "" {
		return m.Catalog
	}
	return m.CubeName()
}

// GenConfig describes a synthetic Gatling run parsed from YAML.
type GenConfig struct {
	TestName  string     `yaml:"testName"`
	RunTime   string     `yaml:"runTime"`
	OutputDir string     `yaml:"outputDir"`
	Seed      int64      `yaml:"seed"`
	Users     int        `yaml:"users"`
	Queries   int        `yaml:"queries"`
	ErrorRate float64    `yaml:"errorRate"`
	MaxRows   int        `yaml:"maxRows"`
	Workers   int        `yaml:"workers"`
	Models    []ModelGen `yaml:"models"`
}

// RunID renders the identifier the scenarios stamp on every line: test
// name, user count and run time joined with pipes.
func (c GenConfig) RunID() string {
	return fmt.Sprintf("%s|%d users|%s", c.TestName, c.Users, c.RunTime)
}

func readGenConfig(path string) (GenConfig, error) {
	log.Printf("[DEBUG] Loading config from %s\n", path)
	var cfg GenConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// normalize fills defaults and strips single quotes from values that land
// inside key='value' tokens, which have no escape.
func normalize(cfg *GenConfig) {
	cfg.TestName = quoteSafe(strings.TrimSpace(cfg.TestName))
	cfg.RunTime = quoteSafe(strings.TrimSpace(cfg.RunTime))
	if cfg.RunTime == "" {
		cfg.RunTime = "10 minutes"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Users <= 0 {
		cfg.Users = 10
	}
	if cfg.Queries <= 0 {
		cfg.Queries = 20
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 25
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ErrorRate < 0 {
		cfg.ErrorRate = 0
	}
	if cfg.ErrorRate > 1 {
		cfg.ErrorRate = 1
	}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		m.Name = quoteSafe(strings.TrimSpace(m.Name))
		m.Cube = quoteSafe(strings.TrimSpace(m.Cube))
		m.Catalog = quoteSafe(strings.TrimSpace(m.Catalog))
		if len(m.Protocols) == 0 {
			m.Protocols = []string{"jdbc", "xmla"}
		}
		if len(m.Workloads) == 0 {
			m.Workloads = []string{"open"}
		}
	}
}

// quoteSafe drops single quotes so interpolated values cannot break the
// quoted token grammar.
func quoteSafe(s string) string {
	return strings.ReplaceAll(s, "'", "")
}

// SampleConfig is the starter config printed by the sample subcommand.
const SampleConfig = `# loggen generation config
testName: internet sales smoke
runTime: 10 minutes
outputDir: ./run_logs
seed: 42
users: 10
queries: 20
errorRate: 0.05
maxRows: 25
workers: 4
models:
  - name: Internet Sales
    cube: Internet Sales Cube
    catalog: Sales
    protocols: [jdbc, xmla]
    workloads: [open, concurrent_open]
    resultSetRows: true
    responseBody: true
`
