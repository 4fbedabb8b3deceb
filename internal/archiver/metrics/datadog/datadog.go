// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The archive commands are short-lived but can run for a long time when a
// pass covers many large files, so the backend does both: it buffers samples
// in memory, flushes them on a ticker while the pass runs, and flushes one
// final time on Close. Counters become COUNT series, gauges become GAUGE
// series, and timings are published as nearest-rank percentile gauges per
// flush window.
//
// Concurrency model:
//   - pipeline goroutines may call Count/Gauge/Timing at any time
//   - Flush snapshots and resets the buffers under a mutex, then submits
//     outside the lock
//   - the flush loop calls Flush periodically; Close stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/metrics"
)

// Options controls backend construction.
type Options struct {
	// Site is the Datadog site ("datadoghq.com", "datadoghq.eu", ...).
	// Empty keeps the client default.
	Site string

	// APIKey and AppKey authenticate submissions. When APIKey is empty the
	// client falls back to the DD_API_KEY/DD_APP_KEY environment variables.
	APIKey string
	AppKey string

	// JobName becomes tag "job:<name>" on every series. Defaults to
	// "gatling-archiver".
	JobName string

	// Env becomes tag "env:<env>"; empty falls back to the ENV/DD_ENV
	// environment variables and finally "env:unknown".
	Env string

	// Tags are extra tags in "key:value" form.
	Tags []string

	// FlushEvery controls the background submission interval. If <= 0,
	// defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; tests use
	// them to avoid real clocks, tickers and HTTP.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend needs.
// The SDK only exposes the concrete *datadogV2.MetricsApi; depending on this
// interface instead lets tests substitute a fake without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu      sync.Mutex
	counts  map[string]float64
	gauges  map[string]float64
	timings map[string][]float64
}

// FromConfig builds Options from the datadog.* properties.
func FromConfig(cfg config.Datadog) Options {
	return Options{
		Site:   cfg.Site,
		APIKey: cfg.APIKey,
		AppKey: cfg.AppKey,
		Env:    cfg.Env,
	}
}

// NewBackend constructs a Datadog backend and starts its flush loop.
// Credential problems do not surface here; submission errors occur during
// Flush and are reported there.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "gatling-archiver"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(opts.Env), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        apiContext(parent, opts),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counts:     make(map[string]float64),
		gauges:     make(map[string]float64),
		timings:    make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

// apiContext wires authentication into the context the Datadog client reads.
// Explicit keys from the properties file win; otherwise the SDK default
// context picks up DD_API_KEY and friends from the environment.
func apiContext(parent context.Context, opts Options) context.Context {
	ctx := parent
	if opts.APIKey != "" {
		keys := map[string]dd.APIKey{
			"apiKeyAuth": {Key: opts.APIKey},
		}
		if opts.AppKey != "" {
			keys["appKeyAuth"] = dd.APIKey{Key: opts.AppKey}
		}
		ctx = context.WithValue(ctx, dd.ContextAPIKeys, keys)
	} else {
		ctx = dd.NewDefaultContext(parent)
	}
	if opts.Site != "" {
		ctx = context.WithValue(ctx, dd.ContextServerVariables, map[string]string{
			"site": opts.Site,
		})
	}
	return ctx
}

func resolveEnvTag(env string) string {
	if v := strings.TrimSpace(env); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Count implements metrics.Backend.
func (b *Backend) Count(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := seriesKey(name, labels)
	b.mu.Lock()
	b.counts[k] += delta
	b.mu.Unlock()
}

// Gauge implements metrics.Backend. The last value per flush window wins.
func (b *Backend) Gauge(name string, value float64, labels metrics.Labels) {
	k := seriesKey(name, labels)
	b.mu.Lock()
	b.gauges[k] = value
	b.mu.Unlock()
}

// Timing implements metrics.Backend. Samples are kept per series and reduced
// to percentiles at flush time.
func (b *Backend) Timing(name string, d time.Duration, labels metrics.Labels) {
	if d < 0 {
		return
	}
	k := seriesKey(name, labels)
	b.mu.Lock()
	b.timings[k] = append(b.timings[k], d.Seconds())
	b.mu.Unlock()
}

type snapshot struct {
	counts  map[string]float64
	gauges  map[string]float64
	timings map[string][]float64
}

// snapshotAndReset detaches the buffered state so submission happens outside
// the lock. Buffers reset even if the submission later fails; dropped samples
// are preferable to blocking the pipeline.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := snapshot{counts: b.counts, gauges: b.gauges, timings: b.timings}
	b.counts = make(map[string]float64)
	b.gauges = make(map[string]float64)
	b.timings = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.counts) == 0 && len(s.gauges) == 0 && len(s.timings) == 0
}

// Flush submits everything buffered since the previous flush.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// Close stops the flush loop and performs one final Flush. Safe to call more
// than once; only the first call does any work.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
		err = b.Flush()
	})
	return err
}

// buildSeries is pure: no locks, clocks or network, so tests can drive it
// directly.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.counts)+len(s.gauges)+6*len(s.timings))

	for k, v := range s.counts {
		if v == 0 {
			continue
		}
		name, tags := splitSeriesKey(k)
		series = append(series, countSeries(name, v, withTags(b.baseTags, tags...), nowUnix))
	}
	for k, v := range s.gauges {
		name, tags := splitSeriesKey(k)
		series = append(series, gaugeSeries(name, v, withTags(b.baseTags, tags...), nowUnix))
	}
	for k, samples := range s.timings {
		if len(samples) == 0 {
			continue
		}
		name, tags := splitSeriesKey(k)
		full := withTags(b.baseTags, tags...)
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		series = append(series, gaugeSeries(name+".p50", percentileNearestRank(cp, 0.50), full, nowUnix))
		series = append(series, gaugeSeries(name+".p95", percentileNearestRank(cp, 0.95), full, nowUnix))
		series = append(series, gaugeSeries(name+".p99", percentileNearestRank(cp, 0.99), full, nowUnix))
		series = append(series, gaugeSeries(name+".max", cp[len(cp)-1], full, nowUnix))
		series = append(series, gaugeSeries(name+".samples", float64(len(cp)), full, nowUnix))
	}
	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// seriesKey folds a name and its labels into one map key. Labels are sorted
// so {a,b} and {b,a} land in the same series.
func seriesKey(name string, labels metrics.Labels) string {
	if len(labels) == 0 {
		return name
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return name + "\x00" + strings.Join(tags, "\x00")
}

func splitSeriesKey(k string) (name string, tags []string) {
	parts := strings.Split(k, "\x00")
	return parts[0], parts[1:]
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

// percentileNearestRank reads a percentile from sorted samples.
func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,team:perf".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
