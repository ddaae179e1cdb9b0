package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStage_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStage("dw", "transactions", 120, nil, 2*time.Second)
	RecordStage("dw", "sessions", 0, errors.New("boom"), 1500*time.Millisecond)

	// success: stage counter + rows counter; failure: stage counter only
	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}
	if len(fb.histograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != "etl_stage_total" || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=etl_stage_total, delta=1", c0)
	}
	if c0.labels["stage"] != "transactions" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}

	c1 := fb.counters[1]
	if c1.name != "etl_rows_total" || c1.delta != 120 {
		t.Fatalf("counter[1] = %#v; want name=etl_rows_total, delta=120", c1)
	}

	c2 := fb.counters[2]
	if c2.labels["status"] != "failure" {
		t.Fatalf("counter[2].labels[status]=%q; want failure", c2.labels["status"])
	}

	h0 := fb.histograms[0]
	if h0.name != "etl_stage_duration_seconds" {
		t.Fatalf("hist[0].name=%q", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}
	h1 := fb.histograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordObjects(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordObjects("dw", "Functions.sql", 2)
	RecordObjects("dw", "Functions.sql", 0) // ignored

	if len(fb.counters) != 1 {
		t.Fatalf("expected 1 counter call, got %d", len(fb.counters))
	}
	c0 := fb.counters[0]
	if c0.name != "etl_schema_objects_total" || c0.delta != 2 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["script"] != "Functions.sql" {
		t.Fatalf("counter[0].labels[script]=%q", c0.labels["script"])
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
