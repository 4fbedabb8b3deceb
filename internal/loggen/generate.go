// Package loggen generates synthetic Gatling session logs in the formats
// the archive commands ingest. It exists so the pipeline can be exercised
// end to end without standing up a load test.
package loggen

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
)

const stampLayout = "2006-01-02 15:04:05"

// runEpoch anchors generated timestamps. A fixed point keeps two runs with
// the same seed byte-identical.
var runEpoch = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// fileJob is one scenario log file to generate.
type fileJob struct {
	Model    ModelGen
	Protocol string
	Workload string
	Name     string
}

// queryRef pairs a feeder query name with the hash of its text. Every
// simulated user replays the same list, the way one ingested query file
// feeds all sessions of a scenario.
type queryRef struct {
	Name string
	Hash string
}

// session tracks one simulated user's clock through a scenario file.
type session struct {
	id    int64
	clock time.Time
}

func newSession(f *gofakeit.Faker, id int64) *session {
	// users ramp in over the first three minutes
	return &session{
		id:    id,
		clock: runEpoch.Add(time.Duration(f.Number(0, 180000)) * time.Millisecond),
	}
}

// Generate produces one session log per model, protocol and workload listed
// in the config, named so the archive commands discover them.
func Generate(configPath *string) {
	cfg, err := readGenConfig(*configPath)
	if err != nil {
		log.Fatalf("[FATAL] error loading config: %v", err)
	}
	normalize(&cfg)
	if cfg.TestName == "" {
		log.Fatalf("[FATAL] testName is required")
	}
	if len(cfg.Models) == 0 {
		log.Fatalf("[FATAL] at least one model is required")
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	runID := cfg.RunID()
	log.Printf("[INFO] Starting generation run=%s models=%d users=%d queries=%d seed=%d",
		runID, len(cfg.Models), cfg.Users, cfg.Queries, cfg.Seed)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("[FATAL] cannot create output dir: %v", err)
	}

	jobs := buildJobs(cfg)
	jobsCh := make(chan fileJob, len(jobs))
	for _, j := range jobs {
		jobsCh <- j
	}
	close(jobsCh)

	stats := map[string]int{"files": 0, "lines": 0, "errors": 0}
	var statsMu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobsCh {
				lines, err := writeScenarioLog(cfg, runID, job)
				if err != nil {
					log.Printf("[ERROR] worker %d: %s: %v", workerID, job.Name, err)
					statsMu.Lock()
					stats["errors"]++
					statsMu.Unlock()
					continue
				}
				log.Printf("[DEBUG] Worker %d wrote %s (%d lines)", workerID, job.Name, lines)
				statsMu.Lock()
				stats["files"]++
				stats["lines"] += lines
				statsMu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	log.Printf("[INFO] Generation complete: files=%d lines=%d errors=%d",
		stats["files"], stats["lines"], stats["errors"])
}

// buildJobs expands the model list into one job per protocol and workload.
// File names follow the scenario conventions so the archive locator's exact
// pass finds them: <model>_jdbc_<workload>.log and <cube>_xmla_<workload>.log.
func buildJobs(cfg GenConfig) []fileJob {
	var jobs []fileJob
	for _, m := range cfg.Models {
		modelKey := config.CleanKey(m.Name)
		cubeKey := config.CleanKey(m.CubeName())
		for _, proto := range m.Protocols {
			for _, wl := range m.Workloads {
				var name string
				switch proto {
				case "jdbc":
					name = fmt.Sprintf("%s_jdbc_%s.log", modelKey, wl)
				case "xmla":
					name = fmt.Sprintf("%s_xmla_%s.log", cubeKey, wl)
				default:
					log.Printf("[ERROR] unknown protocol %q for model %s, skipping", proto, m.Name)
					continue
				}
				jobs = append(jobs, fileJob{Model: m, Protocol: proto, Workload: wl, Name: name})
			}
		}
	}
	return jobs
}

// writeScenarioLog generates one file. Each file seeds its own faker from
// the run seed and its name, so contents do not depend on which worker
// picked the job or in what order.
func writeScenarioLog(cfg GenConfig, runID string, job fileJob) (int, error) {
	f := gofakeit.New(fileSeed(cfg.Seed, job.Name))

	out, err := os.Create(filepath.Join(cfg.OutputDir, job.Name))
	if err != nil {
		return 0, err
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	queries := make([]queryRef, cfg.Queries)
	for i := range queries {
		queries[i] = queryRef{
			Name: fmt.Sprintf("query_%04d", i+1),
			Hash: hexToken(f, 16),
		}
	}

	lines := 0
	for user := 1; user <= cfg.Users; user++ {
		s := newSession(f, int64(user))
		for _, q := range queries {
			switch job.Protocol {
			case "jdbc":
				lines += writeJdbcRequest(w, cfg, job.Model, runID, s, q, f)
			case "xmla":
				lines += writeXmlaRequest(w, cfg, job.Model, runID, s, q, f)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return lines, err
	}
	return lines, nil
}

// fileSeed mixes the run seed with the file name.
func fileSeed(seed int64, name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return uint64(seed) ^ h.Sum64()
}

// hexToken returns n lowercase hex characters.
func hexToken(f *gofakeit.Faker, n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[f.Number(0, 15)]
	}
	return string(b)
}
