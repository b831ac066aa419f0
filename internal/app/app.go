// Package app holds the startup wiring shared by the csvtojson binaries:
// metrics backend selection, sink construction and the HTTP source client.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"csvtojson/internal/config"
	"csvtojson/internal/datasource/httpds"
	"csvtojson/internal/metrics"
	"csvtojson/internal/metrics/datadog"
	"csvtojson/internal/metrics/prompush"
	"csvtojson/internal/storage"
	"csvtojson/internal/storage/postgres"
)

// SetupMetrics installs the backend named by m.Backend and returns a flush
// func for shutdown. An unusable backend is reported and metrics stay off;
// a broken metrics setup never stops a conversion.
func SetupMetrics(m config.Metrics, job string, log *slog.Logger) (flush func()) {
	flush = func() {}

	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
		log.Debug("metrics disabled")
		return flush
	case "prometheus", "prom", "pushgateway":
		b, err = prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog", "dd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      m.DatadogAddr,
			Namespace: m.Namespace,
			Tags:      m.Tags,
		})
	default:
		err = fmt.Errorf("unknown backend %q", m.Backend)
	}
	if err != nil {
		log.Warn("metrics backend unavailable; metrics disabled", "backend", m.Backend, "error", err)
		return flush
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled", "backend", m.Backend, "job", job)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "error", err)
		}
	}
}

// OpenSink builds the sink selected by s. stdout backs the "stdout" kind.
func OpenSink(ctx context.Context, s config.Sink, stdout io.Writer) (storage.Sink, error) {
	switch s.Kind {
	case "", "stdout":
		return storage.NewWriterSink(stdout), nil
	case "dir":
		return storage.NewDirSink(s.Dir)
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:             s.Postgres.DSN,
			Table:           s.Postgres.Table,
			AutoCreateTable: s.Postgres.AutoCreateTable,
		})
	default:
		return nil, fmt.Errorf("unknown sink kind %q", s.Kind)
	}
}

// HTTPClient builds the HTTP source client from config.
func HTTPClient(src config.SourceHTTP) *httpds.Client {
	return httpds.NewClient(httpds.Config{
		Timeout:            src.Timeout.D(),
		MaxRetries:         src.MaxRetries,
		InsecureSkipVerify: src.InsecureSkipVerify,
		Headers:            map[string][]string{"User-Agent": {"csvtojson"}},
	})
}
