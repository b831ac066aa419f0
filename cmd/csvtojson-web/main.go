// Command csvtojson-web serves the converter over HTTP: a small form UI and
// the /api/csvtojson and /api/csvtojson_binary routes.
//
// Usage:
//
//	go run ./cmd/csvtojson-web -addr :8080
//	go run ./cmd/csvtojson-web -config csvtojson.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"csvtojson/internal/app"
	"csvtojson/internal/config"
	"csvtojson/internal/converter"
	"csvtojson/internal/host"
	"csvtojson/internal/logging"
	"csvtojson/internal/metrics"
	"csvtojson/internal/storage"
	"csvtojson/internal/webui"
)

// server is the part of *webui.Server that main needs.
type server interface {
	ListenAndServe(ctx context.Context) error
}

// newServer is swapped out in tests.
var newServer = func(cfg webui.Config, a *host.Adapter, opts ...webui.Option) server {
	return webui.NewServer(cfg, a, opts...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "csvtojson-web: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("csvtojson-web", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath = fs.String("config", "", "config file (JSON, or YAML with a .yaml/.yml extension)")
		envFile = fs.String("env-file", ".env", "dotenv file loaded before the config; missing is fine")
		addr    = fs.String("addr", "", "listen address (overrides server.addr)")
		archive = fs.Bool("archive", false, "archive successful API conversions to the configured dir or postgres sink")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logging.New(stderr, cfg.Log.Level, cfg.Log.Format).With("job", cfg.Job)
	slog.SetDefault(log)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		log.Warn("config issue", "severity", iss.Severity, "path", iss.Path, "message", iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}

	opt, err := cfg.ConverterOptions()
	if err != nil {
		return err
	}

	flush := app.SetupMetrics(cfg.Metrics, cfg.Job, log)
	defer flush()

	adapter := host.New(converter.New(opt),
		host.WithLogger(log),
		host.WithObserver(metrics.ConversionObserver(cfg.Job)),
	)
	adapter.Start()

	opts := []webui.Option{webui.WithLogger(log)}
	if *archive {
		sink, err := openArchive(ctx, cfg.Sink)
		if err != nil {
			return err
		}
		defer sink.Close()
		opts = append(opts, webui.WithSink(sink))
		log.Info("archiving conversions", "sink", cfg.Sink.Kind)
	}

	srv := newServer(webui.Config{
		Addr:           cfg.Server.Addr,
		Job:            cfg.Job,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateBurst:      cfg.Server.RateBurst,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout.D(),
	}, adapter, opts...)
	return srv.ListenAndServe(ctx)
}

// openArchive opens the configured sink for archiving. Writing archived
// documents to the server's stdout is never useful, so only dir and postgres
// are accepted.
func openArchive(ctx context.Context, s config.Sink) (storage.Sink, error) {
	switch s.Kind {
	case "dir", "postgres":
		return app.OpenSink(ctx, s, io.Discard)
	default:
		return nil, fmt.Errorf("-archive needs sink.kind dir or postgres (got %q)", s.Kind)
	}
}
