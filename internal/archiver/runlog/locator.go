package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
)

// jdbcSuffixes are the scenario file name stems the JDBC runners write,
// one per workload shape, each with a _csv variant when the scenario ran
// against ingested CSV queries.
var jdbcSuffixes = []string{
	"open", "concurrent_open", "closed", "concurrent_closed",
}

// Locator discovers Gatling session log files under a run-log directory.
// Exact candidates come first (the names the scenarios write for configured
// models/cubes); a broad scan then picks up protocol-tagged strays so a
// renamed or hand-copied log still gets archived.
type Locator struct {
	Dir string
}

// Discovery is one locator pass: Files is everything to archive, Extras is
// the subset found only by the broad scan (callers warn on these).
type Discovery struct {
	Files  []string
	Extras []string
}

// FindJdbc returns the JDBC log files for the given model names.
func (l Locator) FindJdbc(models []string) (Discovery, error) {
	var exact []string
	for _, m := range models {
		key := config.CleanKey(m)
		for _, suffix := range jdbcSuffixes {
			exact = append(exact,
				fmt.Sprintf("%s_jdbc_%s.log", key, suffix),
				fmt.Sprintf("%s_jdbc_%s_csv.log", key, suffix),
			)
		}
	}
	return l.discover(exact, "_jdbc_")
}

// FindXmla returns the XMLA log files for the given cube names. Cube log
// names are free-form after the cube prefix (the scenarios append user
// counts or workload tags), so the exact pass is prefix+protocol based.
func (l Locator) FindXmla(cubes []string) (Discovery, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return Discovery{}, fmt.Errorf("read dir %s: %w", l.Dir, err)
	}

	var exact []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".log") || !strings.Contains(name, "_xmla") {
			continue
		}
		for _, c := range cubes {
			if strings.HasPrefix(name, config.CleanKey(c)+"_") {
				exact = append(exact, name)
				break
			}
		}
	}
	sort.Strings(exact)
	return l.discover(exact, "_xmla_")
}

// discover resolves the exact candidates that exist, then broad-scans for
// <anything><tag><anything>.log files not already matched.
func (l Locator) discover(exact []string, tag string) (Discovery, error) {
	matched := map[string]bool{}
	var d Discovery

	for _, name := range exact {
		if matched[name] {
			continue
		}
		p := filepath.Join(l.Dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			matched[name] = true
			d.Files = append(d.Files, p)
		}
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return Discovery{}, fmt.Errorf("read dir %s: %w", l.Dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if matched[name] || !strings.HasSuffix(name, ".log") || !strings.Contains(name, tag) {
			continue
		}
		matched[name] = true
		p := filepath.Join(l.Dir, name)
		d.Files = append(d.Files, p)
		d.Extras = append(d.Extras, p)
	}
	return d, nil
}
