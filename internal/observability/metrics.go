package observability

import (
	"bufio"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{name: name, help: help, labels: labels}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram. Buckets must be sorted.
func (r *MetricsRegistry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buckets == nil {
		buckets = DefaultBuckets()
	}
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency.
func DefaultBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Add adds a value to the counter. Negative values are ignored.
func (c *Counter) Add(v float64) {
	if v < 0 {
		return
	}
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	if i := sort.SearchFloat64s(h.buckets, v); i < len(h.buckets) {
		h.counts[i]++
	}
}

// ObserveDuration records the time elapsed since start, in seconds.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Handler returns an HTTP handler for Prometheus metrics.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.WritePrometheus(w)
	})
}

// WritePrometheus writes every metric in Prometheus text format, sorted by
// name so scrapes are stable.
func (r *MetricsRegistry) WritePrometheus(out io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w := bufio.NewWriter(out)
	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		c.mu.Lock()
		writeMetric(w, c.name, "counter", c.help, c.labels, c.value)
		c.mu.Unlock()
	}
	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		g.mu.Lock()
		writeMetric(w, g.name, "gauge", g.help, g.labels, g.value)
		g.mu.Unlock()
	}
	for _, name := range sortedKeys(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
	return w.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeHeader(w *bufio.Writer, name, kind, help string) {
	w.WriteString("# HELP " + name + " " + help + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func writeMetric(w *bufio.Writer, name, kind, help string, labels map[string]string, value float64) {
	writeHeader(w, name, kind, help)
	w.WriteString(name + formatLabels(labels) + " " + formatFloat(value) + "\n")
}

func writeHistogram(w *bufio.Writer, h *Histogram) {
	writeHeader(w, h.name, "histogram", h.help)

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		w.WriteString(h.name + "_bucket" + formatLabels(withLabel(h.labels, "le", formatFloat(bound))) +
			" " + strconv.FormatUint(cumulative, 10) + "\n")
	}
	w.WriteString(h.name + "_bucket" + formatLabels(withLabel(h.labels, "le", "+Inf")) +
		" " + strconv.FormatUint(h.count, 10) + "\n")
	w.WriteString(h.name + "_sum" + formatLabels(h.labels) + " " + formatFloat(h.sum) + "\n")
	w.WriteString(h.name + "_count" + formatLabels(h.labels) + " " + strconv.FormatUint(h.count, 10) + "\n")
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k + `="` + labelEscaper.Replace(labels[k]) + `"`)
	}
	b.WriteByte('}')
	return b.String()
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for lk, lv := range labels {
		out[lk] = lv
	}
	out[k] = v
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// DocQAMetrics contains the ingestion and query metrics.
type DocQAMetrics struct {
	Registry *MetricsRegistry

	IngestionsTotal      *Counter
	IngestionErrorsTotal *Counter
	PairsStoredTotal     *Counter
	IngestDuration       *Histogram

	QueriesTotal       *Counter
	ExactHitsTotal     *Counter
	SemanticHitsTotal  *Counter
	QueryMissesTotal   *Counter
	QueryDuration      *Histogram
	EmbeddingErrors    *Counter
	IngestionsInFlight *Gauge
}

// NewDocQAMetrics registers the docqa metrics on a fresh registry.
func NewDocQAMetrics() *DocQAMetrics {
	r := NewMetricsRegistry()
	return &DocQAMetrics{
		Registry: r,

		IngestionsTotal:      r.NewCounter("docqa_ingestions_total", "Completed source ingestions", nil),
		IngestionErrorsTotal: r.NewCounter("docqa_ingestion_errors_total", "Failed source ingestions", nil),
		PairsStoredTotal:     r.NewCounter("docqa_pairs_stored_total", "Pairs written to the vector store", nil),
		IngestDuration:       r.NewHistogram("docqa_ingest_duration_seconds", "Source ingestion duration", nil, nil),

		QueriesTotal:       r.NewCounter("docqa_queries_total", "Resolved queries", nil),
		ExactHitsTotal:     r.NewCounter("docqa_exact_hits_total", "Queries answered by key lookup", nil),
		SemanticHitsTotal:  r.NewCounter("docqa_semantic_hits_total", "Queries answered by similarity search", nil),
		QueryMissesTotal:   r.NewCounter("docqa_query_misses_total", "Queries with no answer", nil),
		QueryDuration:      r.NewHistogram("docqa_query_duration_seconds", "Query resolution duration", nil, nil),
		EmbeddingErrors:    r.NewCounter("docqa_embedding_errors_total", "Failed embedding requests", nil),
		IngestionsInFlight: r.NewGauge("docqa_ingestions_in_flight", "Ingestions currently running", nil),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *DocQAMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordIngestion records the outcome of one source ingestion.
func (m *DocQAMetrics) RecordIngestion(start time.Time, stored int, err error) {
	if m == nil {
		return
	}
	m.IngestDuration.ObserveDuration(start)
	if err != nil {
		m.IngestionErrorsTotal.Inc()
		return
	}
	m.IngestionsTotal.Inc()
	m.PairsStoredTotal.Add(float64(stored))
}

// RecordQuery records how a query was answered. status is one of the
// resolver statuses.
func (m *DocQAMetrics) RecordQuery(start time.Time, status string) {
	if m == nil {
		return
	}
	m.QueriesTotal.Inc()
	m.QueryDuration.ObserveDuration(start)
	switch status {
	case "exact":
		m.ExactHitsTotal.Inc()
	case "semantic":
		m.SemanticHitsTotal.Inc()
	default:
		m.QueryMissesTotal.Inc()
	}
}

// RecordEmbeddingError counts a failed embedding call.
func (m *DocQAMetrics) RecordEmbeddingError() {
	if m == nil {
		return
	}
	m.EmbeddingErrors.Inc()
}
