package datadog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"csvtojson/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls    []call
	closed   int
	closeErr error
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return f.closeErr
}

func TestNewBackendRequiresAddr(t *testing.T) {
	if b, err := NewBackend(Config{}); err == nil || b != nil {
		t.Fatalf("NewBackend(empty) = %v, %v; want nil, error", b, err)
	}
}

func TestNewBackendUDP(t *testing.T) {
	// statsd.New over UDP does not need a listening agent.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "csvtojson.", Tags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestBackendSendsTaggedMetrics(t *testing.T) {
	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.ConversionsTotal, 1, metrics.Labels{"status": "success", "entry": "csvtojson", "job": "j"})
	b.ObserveHistogram(metrics.ConversionSeconds, 0.5, metrics.Labels{"entry": "csvtojson"})
	b.IncCounter(metrics.RowsTotal, 2.9, nil)

	want := []call{
		{"count", metrics.ConversionsTotal, 1, []string{"entry:csvtojson", "job:j", "status:success"}},
		{"histogram", metrics.ConversionSeconds, 0.5, []string{"entry:csvtojson"}},
		{"count", metrics.RowsTotal, 2, nil},
	}
	if diff := cmp.Diff(want, fc.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFlushClosesClient(t *testing.T) {
	fc := &fakeClient{closeErr: errors.New("boom")}
	b := &Backend{client: fc}
	if err := b.Flush(); err == nil {
		t.Fatalf("Flush: want close error")
	}
	if fc.closed != 1 {
		t.Fatalf("closed=%d; want 1", fc.closed)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
