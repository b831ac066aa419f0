// Package metrics provides a small, backend-agnostic abstraction for recording
// conversion metrics.
//
// A global, pluggable Backend defaults to a no-op implementation, so callers
// can always record without checking whether metrics are configured. Concrete
// systems live in subpackages (prompush for a Prometheus Pushgateway, datadog
// for DogStatsD) and are installed once at startup with SetBackend.
//
// The converter itself never records metrics; the hosts (CLI, HTTP server)
// do, around each entry-point call.
package metrics

import (
	"time"

	"csvtojson/internal/converter"
)

// Metric names shared by all backends.
const (
	ConversionsTotal  = "csvtojson_conversions_total"
	ConversionSeconds = "csvtojson_conversion_duration_seconds"
	RowsTotal         = "csvtojson_rows_total"
	InputBytesTotal   = "csvtojson_input_bytes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a latency/duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
// It is meant to be called once during startup, before any recording.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// StatusOf maps a conversion outcome to a status label: "success", the
// converter error kind ("encoding", "parse", "serialization"), or "error" for
// anything else.
func StatusOf(err error) string {
	if err == nil {
		return "success"
	}
	if k := converter.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

// RecordConversion counts one entry-point call and records its latency.
func RecordConversion(job, entry string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"entry":  entry,
		"status": StatusOf(err),
	}
	backend.IncCounter(ConversionsTotal, 1, lbls)
	backend.ObserveHistogram(ConversionSeconds, d.Seconds(), lbls)
}

// RecordRows adds n converted data rows for job.
func RecordRows(job string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(n), Labels{"job": job})
}

// RecordBytes adds n input bytes for job.
func RecordBytes(job string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(InputBytesTotal, float64(n), Labels{"job": job})
}

// ConversionObserver returns a per-call hook for the host adapter that
// records the call, and on success the converted row count, under job.
func ConversionObserver(job string) func(entry string, res converter.Result, err error, d time.Duration) {
	return func(entry string, res converter.Result, err error, d time.Duration) {
		RecordConversion(job, entry, err, d)
		if err == nil {
			RecordRows(job, int64(res.Rows))
		}
	}
}
