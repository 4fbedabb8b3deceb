package runlog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

// runIDRe matches the gatlingRunId='...' token anywhere in a line.
var runIDRe = regexp.MustCompile(`gatlingRunId='([^']*)'`)

// maxLineBytes bounds scanner lines. XMLA lines carry whole SOAP envelopes,
// so this matches the warehouse VARCHAR(16777216) ceiling.
const maxLineBytes = 16 * 1024 * 1024

// ExtractRunIDs streams path and returns the distinct gatling run ids in
// first-seen order. An empty result is not an error; callers skip such
// files with a warning.
func ExtractRunIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	seen := map[string]bool{}
	var ids []string

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		for _, m := range runIDRe.FindAllStringSubmatch(sc.Text(), -1) {
			id := m[1]
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return ids, nil
}
