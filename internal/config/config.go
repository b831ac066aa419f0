// Package config defines the configuration model shared by the csvtojson
// binaries. A config file is optional; every field has a default, and
// CSVTOJSON_* environment variables override whatever the file says.
//
// Files are JSON unless their extension is .yaml or .yml. Example (trimmed):
//
//	{
//	  "job": "nightly-export",
//	  "converter": { "comma": ";", "key_order": "header" },
//	  "log":       { "level": "debug", "format": "json" },
//	  "sink":      { "kind": "postgres", "postgres": { "dsn": "...", "table": "public.docs" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"csvtojson/internal/converter"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names the run in logs and metrics labels.
	Job string `json:"job" yaml:"job"`

	// Converter is an options bag read with the typed getters below.
	// Known keys: comma (string), key_order ("sorted"|"header"),
	// lazy_quotes (bool).
	Converter Options `json:"converter" yaml:"converter"`

	Log     Log     `json:"log" yaml:"log"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
	Server  Server  `json:"server" yaml:"server"`
	Source  Source  `json:"source" yaml:"source"`
	Sink    Sink    `json:"sink" yaml:"sink"`

	// Workers bounds concurrent conversions in CLI batch mode.
	Workers int `json:"workers" yaml:"workers"`
}

// Log configures log/slog.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	// Backend is "none", "prometheus" (Pushgateway) or "datadog".
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// Server configures the HTTP host.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`

	// RateLimitRPS is the sustained request rate; 0 disables limiting.
	RateLimitRPS float64 `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateBurst    int     `json:"rate_burst" yaml:"rate_burst"`

	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Source configures input sources.
type Source struct {
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// SourceHTTP configures the HTTP source.
type SourceHTTP struct {
	Timeout            Duration `json:"timeout" yaml:"timeout"`
	MaxRetries         int      `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Sink selects where converted documents go.
type Sink struct {
	// Kind is "stdout", "dir" or "postgres".
	Kind     string       `json:"kind" yaml:"kind"`
	Dir      string       `json:"dir" yaml:"dir"`
	Postgres SinkPostgres `json:"postgres" yaml:"postgres"`
}

// SinkPostgres configures the Postgres archive.
type SinkPostgres struct {
	// DSN is the connection string for pgxpool (e.g., postgresql://...).
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the fully qualified table name (e.g., "public.documents").
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the table on first use when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Job:       "csvtojson",
		Converter: Options{},
		Log:       Log{Level: "info", Format: "text"},
		Metrics:   Metrics{Backend: "none", Namespace: "csvtojson."},
		Server: Server{
			Addr:           ":8080",
			RateLimitRPS:   10,
			RateBurst:      20,
			MaxBodyBytes:   10 << 20,
			RequestTimeout: Duration(30 * time.Second),
		},
		Source: Source{HTTP: SourceHTTP{
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 3,
		}},
		Sink: Sink{
			Kind:     "stdout",
			Postgres: SinkPostgres{Table: "public.csvtojson_documents"},
		},
		Workers: 4,
	}
}

// ConverterOptions maps the converter options bag onto converter.Options.
func (c Config) ConverterOptions() (converter.Options, error) {
	ko, ok := converter.ParseKeyOrder(c.Converter.String("key_order", ""))
	if !ok {
		return converter.Options{}, fmt.Errorf("config: unknown converter.key_order %q", c.Converter.String("key_order", ""))
	}
	return converter.Options{
		Comma:      c.Converter.Rune("comma", ','),
		LazyQuotes: c.Converter.Bool("lazy_quotes", false),
		KeyOrder:   ko,
	}, nil
}

// Duration is a time.Duration that decodes from "30s"-style strings or from
// a plain number of seconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		*d = Duration(x * float64(time.Second))
	case int:
		*d = Duration(time.Duration(x) * time.Second)
	case string:
		pd, err := time.ParseDuration(strings.TrimSpace(x))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", x, err)
		}
		*d = Duration(pd)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// Options is a small helper to fetch typed values from a free-form map
// decoded from JSON or YAML. It performs only minimal type coercion and
// returns the provided default when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers
// as float64 and yaml.v3 as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// Keys returns the keys present in o.
func (o Options) Keys() []string {
	out := make([]string, 0, len(o))
	for k := range o {
		out = append(out, k)
	}
	return out
}

// UnmarshalJSON makes a missing or null object decode to an empty,
// non-nil Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
