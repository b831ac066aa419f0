// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// The CLI is short-lived, so there is nothing to scrape: collectors are kept
// in a private registry and pushed to the gateway on Flush. The job label
// becomes the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"csvtojson/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	conversions *prometheus.CounterVec // entry, status
	duration    *prometheus.SummaryVec // entry, status
	rows        prometheus.Counter
	inputBytes  prometheus.Counter
}

// NewBackend constructs a Pushgateway backend. jobName defaults to
// "csvtojson"; gatewayURL is required.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "csvtojson"
	}

	reg := prometheus.NewRegistry()

	conversions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ConversionsTotal,
			Help: "Entry-point calls, partitioned by entry and status.",
		},
		[]string{"entry", "status"},
	)
	duration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.ConversionSeconds,
			Help:       "Conversion latency in seconds, partitioned by entry and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"entry", "status"},
	)
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metrics.RowsTotal,
		Help: "Data rows converted to JSON objects.",
	})
	inputBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metrics.InputBytesTotal,
		Help: "CSV input bytes read.",
	})

	for name, c := range map[string]prometheus.Collector{
		"conversions": conversions,
		"duration":    duration,
		"rows":        rows,
		"input bytes": inputBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:  gatewayURL,
		jobName:     jobName,
		reg:         reg,
		conversions: conversions,
		duration:    duration,
		rows:        rows,
		inputBytes:  inputBytes,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.ConversionsTotal:
		if b.conversions == nil {
			return
		}
		b.conversions.WithLabelValues(labels["entry"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		if b.rows == nil {
			return
		}
		b.rows.Add(delta)
	case metrics.InputBytesTotal:
		if b.inputBytes == nil {
			return
		}
		b.inputBytes.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.ConversionSeconds || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["entry"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
