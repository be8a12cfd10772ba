package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewMetricsRegistry().NewCounter("test_counter", "Test counter", nil)
	c.Inc()
	c.Add(2.5)
	c.Add(-4)

	if c.Value() != 3.5 {
		t.Fatalf("expected 3.5, got %f", c.Value())
	}
}

func TestGauge(t *testing.T) {
	g := NewMetricsRegistry().NewGauge("test_gauge", "Test gauge", nil)
	g.Set(10)
	g.Add(-3)

	if g.Value() != 7 {
		t.Fatalf("expected 7, got %f", g.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("latency_seconds", "Latency", nil, []float64{0.1, 1})
	h.Observe(0.0625)
	h.Observe(0.5)
	h.Observe(0.5)
	h.Observe(3)

	var b strings.Builder
	if err := r.WritePrometheus(&b); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"# TYPE latency_seconds histogram",
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 3`,
		`latency_seconds_bucket{le="+Inf"} 4`,
		"latency_seconds_sum 4.0625",
		"latency_seconds_count 4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWritePrometheus_SortedAndEscaped(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("b_total", "B", nil).Inc()
	r.NewCounter("a_total", "A", map[string]string{"path": `x"y`, "method": "GET"}).Add(2)

	var b strings.Builder
	_ = r.WritePrometheus(&b)
	out := b.String()

	if strings.Index(out, "a_total") > strings.Index(out, "b_total") {
		t.Fatalf("expected sorted output:\n%s", out)
	}
	if !strings.Contains(out, `a_total{method="GET",path="x\"y"} 2`) {
		t.Fatalf("unexpected label rendering:\n%s", out)
	}
}

func TestDocQAMetrics_RecordIngestion(t *testing.T) {
	m := NewDocQAMetrics()
	m.RecordIngestion(time.Now(), 7, nil)
	m.RecordIngestion(time.Now(), 0, errors.New("store down"))

	if m.IngestionsTotal.Value() != 1 {
		t.Fatalf("expected 1 ingestion, got %f", m.IngestionsTotal.Value())
	}
	if m.IngestionErrorsTotal.Value() != 1 {
		t.Fatalf("expected 1 error, got %f", m.IngestionErrorsTotal.Value())
	}
	if m.PairsStoredTotal.Value() != 7 {
		t.Fatalf("expected 7 pairs, got %f", m.PairsStoredTotal.Value())
	}
	if m.IngestDuration.Count() != 2 {
		t.Fatalf("expected 2 observations, got %d", m.IngestDuration.Count())
	}
}

func TestDocQAMetrics_RecordQuery(t *testing.T) {
	m := NewDocQAMetrics()
	for _, s := range []string{"exact", "exact", "semantic", "not_found", "no_relevant"} {
		m.RecordQuery(time.Now(), s)
	}
	if m.QueriesTotal.Value() != 5 {
		t.Fatalf("expected 5 queries, got %f", m.QueriesTotal.Value())
	}
	if m.ExactHitsTotal.Value() != 2 || m.SemanticHitsTotal.Value() != 1 || m.QueryMissesTotal.Value() != 2 {
		t.Fatalf("unexpected split: exact=%f semantic=%f miss=%f",
			m.ExactHitsTotal.Value(), m.SemanticHitsTotal.Value(), m.QueryMissesTotal.Value())
	}
}

func TestDocQAMetrics_NilSafe(t *testing.T) {
	var m *DocQAMetrics
	m.RecordIngestion(time.Now(), 1, nil)
	m.RecordQuery(time.Now(), "exact")
	m.RecordEmbeddingError()
}

func TestHandler(t *testing.T) {
	m := NewDocQAMetrics()
	m.RecordEmbeddingError()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "docqa_embedding_errors_total 1") {
		t.Fatalf("missing counter in:\n%s", rec.Body.String())
	}
}
