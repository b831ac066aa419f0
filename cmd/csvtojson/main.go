// Command csvtojson converts CSV inputs to JSON arrays of objects.
//
// Usage:
//
//	csvtojson [flags] [input ...]
//
// An input is a file path, an http(s) URL, or "-" for stdin. With no inputs
// (and no -url or -list), stdin is read. Each input becomes one JSON document
// written to the configured sink: stdout by default, one <name>.json per
// input with -out-dir, or a Postgres table with -sink postgres.
//
// Examples:
//
//	csvtojson < people.csv
//	csvtojson -key-order header -out-dir out/ a.csv b.csv
//	csvtojson -list urls.txt -sink postgres -config csvtojson.yaml
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
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"csvtojson/internal/app"
	"csvtojson/internal/config"
	"csvtojson/internal/converter"
	"csvtojson/internal/datasource"
	"csvtojson/internal/datasource/file"
	"csvtojson/internal/datasource/httpds"
	"csvtojson/internal/logging"
	"csvtojson/internal/metrics"
	"csvtojson/internal/storage"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// input is one CSV input and the names it is reported under.
type input struct {
	name   string
	source string
	src    datasource.Source
}

// readerSource adapts stdin to datasource.Source.
type readerSource struct{ r io.Reader }

func (s readerSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("csvtojson", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var urls stringList
	var (
		cfgPath    = fs.String("config", "", "config file (JSON, or YAML with a .yaml/.yml extension)")
		envFile    = fs.String("env-file", ".env", "dotenv file loaded before the config; missing is fine")
		listPath   = fs.String("list", "", "file with one input (path or URL) per line")
		outDir     = fs.String("out-dir", "", "write one <name>.json per input into this directory")
		sinkKind   = fs.String("sink", "", "sink kind: stdout, dir or postgres")
		keyOrder   = fs.String("key-order", "", "object key order: sorted or header")
		comma      = fs.String("comma", "", "field delimiter (single character)")
		lazyQuotes = fs.Bool("lazy-quotes", false, "tolerate stray quotes in fields")
		maxBytes   = fs.Int64("max-bytes", 0, "reject inputs larger than this many bytes (0 = no limit)")
		workers    = fs.Int("workers", 0, "concurrent conversions")
		job        = fs.String("job", "", "job name for logs and metrics")
		backend    = fs.String("metrics-backend", "", "metrics backend: none, prometheus or datadog")
		pushURL    = fs.String("pushgateway-url", "", "Pushgateway base URL")
		validate   = fs.Bool("validate", false, "validate the configuration and exit")
		verbose    = fs.Bool("v", false, "enable debug logs")
	)
	fs.Var(&urls, "url", "HTTP(S) URL of a CSV input (repeatable)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if _, err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(stderr, "csvtojson: %v\n", err)
		return exitFailure
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "csvtojson: %v\n", err)
		return exitFailure
	}

	// Flags win over file and environment, but only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out-dir":
			cfg.Sink.Kind = "dir"
			cfg.Sink.Dir = *outDir
		case "sink":
			cfg.Sink.Kind = *sinkKind
		case "key-order":
			cfg.Converter["key_order"] = *keyOrder
		case "comma":
			cfg.Converter["comma"] = *comma
		case "lazy-quotes":
			cfg.Converter["lazy_quotes"] = *lazyQuotes
		case "workers":
			cfg.Workers = *workers
		case "job":
			cfg.Job = *job
		case "metrics-backend":
			cfg.Metrics.Backend = *backend
		case "pushgateway-url":
			cfg.Metrics.PushgatewayURL = *pushURL
		case "v":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})
	// -out-dir implies the dir sink even when -sink names another kind.
	if *outDir != "" {
		cfg.Sink.Kind = "dir"
	}

	log := logging.New(stderr, cfg.Log.Level, cfg.Log.Format).With("job", cfg.Job)
	slog.SetDefault(log)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Error("configuration is invalid", "config", *cfgPath)
		return exitFailure
	}
	if *validate {
		log.Info("configuration is valid", "config", *cfgPath)
		return exitOK
	}

	inputs, err := collectInputs(fs.Args(), urls, *listPath, stdin, cfg.Source.HTTP)
	if err != nil {
		fmt.Fprintf(stderr, "csvtojson: %v\n", err)
		return exitUsage
	}

	opt, err := cfg.ConverterOptions()
	if err != nil {
		fmt.Fprintf(stderr, "csvtojson: %v\n", err)
		return exitFailure
	}
	conv := converter.New(opt)

	flush := app.SetupMetrics(cfg.Metrics, cfg.Job, log)
	defer flush()

	sink, err := app.OpenSink(ctx, cfg.Sink, stdout)
	if err != nil {
		log.Error("open sink failed", "kind", cfg.Sink.Kind, "error", err)
		return exitFailure
	}
	defer sink.Close()

	start := time.Now()
	docs, err := convertAll(ctx, conv, inputs, cfg.Workers, *maxBytes, cfg.Job, log)
	if err != nil {
		log.Error("conversion failed", "error", err)
		return exitFailure
	}

	for _, r := range uniqueNames(docs) {
		log.Warn("duplicate document name", "source", r.source, "was", r.from, "now", r.to)
	}

	// Documents go out in input order once every input has converted.
	for _, d := range docs {
		if err := sink.Write(ctx, d); err != nil {
			log.Error("write failed", "document", d.Name, "error", err)
			return exitFailure
		}
		if ds, ok := sink.(*storage.DirSink); ok {
			log.Info("wrote document", "path", ds.Path(d), "rows", d.Rows)
		}
	}
	log.Debug("run complete", "inputs", len(docs), "duration", time.Since(start))
	return exitOK
}

// collectInputs resolves positional args, -url values and -list entries into
// sources, in that order. No inputs at all means stdin.
func collectInputs(args, urls []string, listPath string, stdin io.Reader, httpCfg config.SourceHTTP) ([]input, error) {
	refs := append([]string{}, args...)
	refs = append(refs, urls...)
	if listPath != "" {
		entries, err := file.ReadListFile(listPath)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("list %s has no inputs", listPath)
		}
		refs = append(refs, entries...)
	}
	if len(refs) == 0 {
		refs = []string{"-"}
	}

	var (
		client   *httpds.Client
		sawStdin bool
		out      = make([]input, 0, len(refs))
	)
	for _, ref := range refs {
		switch {
		case ref == "-":
			if sawStdin {
				return nil, errors.New(`stdin ("-") can only be read once`)
			}
			sawStdin = true
			out = append(out, input{name: "stdin", source: "stdin", src: readerSource{r: stdin}})
		case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
			if client == nil {
				client = app.HTTPClient(httpCfg)
			}
			s := httpds.NewSource(client, ref)
			out = append(out, input{name: s.Name(), source: ref, src: s})
		default:
			l := file.NewLocal(ref)
			out = append(out, input{name: l.Name(), source: ref, src: l})
		}
	}
	return out, nil
}

// rename records a document name changed by uniqueNames.
type rename struct{ source, from, to string }

// uniqueNames suffixes repeated document names in place ("x", "x-2", "x-3")
// so that inputs sharing a base name, like a/x.csv and b/x.csv, land in
// distinct files. The first occurrence keeps its name, and a generated name
// never takes one that another input already has.
func uniqueNames(docs []storage.Document) []rename {
	taken := make(map[string]bool, len(docs))
	for _, d := range docs {
		taken[d.Name] = true
	}

	var renames []rename
	claimed := make(map[string]bool, len(docs))
	for i := range docs {
		name := docs[i].Name
		if !claimed[name] {
			claimed[name] = true
			continue
		}
		next := name
		for n := 2; taken[next] || claimed[next]; n++ {
			next = fmt.Sprintf("%s-%d", name, n)
		}
		claimed[next] = true
		docs[i].Name = next
		renames = append(renames, rename{source: docs[i].Source, from: name, to: next})
	}
	return renames
}

// convertAll converts every input with at most workers in flight. The first
// failure cancels the rest; results keep input order.
func convertAll(ctx context.Context, conv *converter.Converter, inputs []input, workers int, limit int64, job string, log *slog.Logger) ([]storage.Document, error) {
	docs := make([]storage.Document, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			start := time.Now()
			data, err := datasource.ReadAll(gctx, in.src, limit)
			if err != nil {
				return fmt.Errorf("%s: %w", in.source, err)
			}
			metrics.RecordBytes(job, int64(len(data)))

			res, err := conv.Run(data)
			metrics.RecordConversion(job, "cli", err, time.Since(start))
			if err != nil {
				return fmt.Errorf("%s: %w", in.source, err)
			}
			metrics.RecordRows(job, int64(res.Rows))

			docs[i] = storage.NewDocument(in.name, in.source, data, res)
			log.Debug("converted", "source", in.source, "rows", res.Rows, "bytes", len(data), "duration", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
