package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"empty job", func(c *Config) { c.Job = " " }, SeverityError, "job", "must not be empty"},
		{"multi-char comma", func(c *Config) { c.Converter["comma"] = ";;" }, SeverityError, "converter.comma", "single character"},
		{"quote comma", func(c *Config) { c.Converter["comma"] = `"` }, SeverityError, "converter.comma", "cannot be used"},
		{"numeric comma", func(c *Config) { c.Converter["comma"] = float64(1) }, SeverityError, "converter.comma", "single character"},
		{"bad key order", func(c *Config) { c.Converter["key_order"] = "random" }, SeverityError, "converter.key_order", "sorted"},
		{"lazy quotes type", func(c *Config) { c.Converter["lazy_quotes"] = "yes" }, SeverityError, "converter.lazy_quotes", "boolean"},
		{"unknown option", func(c *Config) { c.Converter["trim"] = true }, SeverityWarning, "converter.trim", "ignored"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, SeverityWarning, "log.level", "falling back"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, SeverityWarning, "log.format", "falling back"},
		{"prometheus url", func(c *Config) { c.Metrics.Backend = "prometheus" }, SeverityError, "metrics.pushgateway_url", "requires"},
		{"datadog addr", func(c *Config) { c.Metrics.Backend = "datadog" }, SeverityError, "metrics.datadog_addr", "requires"},
		{"metrics backend", func(c *Config) { c.Metrics.Backend = "statsite" }, SeverityError, "metrics.backend", "unknown"},
		{"server addr", func(c *Config) { c.Server.Addr = "" }, SeverityError, "server.addr", "must not be empty"},
		{"negative rps", func(c *Config) { c.Server.RateLimitRPS = -1 }, SeverityError, "server.rate_limit_rps", ">= 0"},
		{"rps disabled", func(c *Config) { c.Server.RateLimitRPS = 0 }, SeverityWarning, "server.rate_limit_rps", "disabled"},
		{"burst", func(c *Config) { c.Server.RateBurst = 0 }, SeverityError, "server.rate_burst", ">= 1"},
		{"max body", func(c *Config) { c.Server.MaxBodyBytes = 0 }, SeverityError, "server.max_body_bytes", "> 0"},
		{"request timeout", func(c *Config) { c.Server.RequestTimeout = -1 }, SeverityError, "server.request_timeout", "negative"},
		{"retries", func(c *Config) { c.Source.HTTP.MaxRetries = -1 }, SeverityError, "source.http.max_retries", ">= 0"},
		{"http timeout", func(c *Config) { c.Source.HTTP.Timeout = -1 }, SeverityError, "source.http.timeout", "negative"},
		{"insecure", func(c *Config) { c.Source.HTTP.InsecureSkipVerify = true }, SeverityWarning, "source.http.insecure_skip_verify", "disabled"},
		{"dir sink", func(c *Config) { c.Sink.Kind = "dir" }, SeverityError, "sink.dir", "requires"},
		{"postgres dsn", func(c *Config) { c.Sink.Kind = "postgres" }, SeverityError, "sink.postgres.dsn", "requires"},
		{"postgres table", func(c *Config) { c.Sink.Kind = "postgres"; c.Sink.Postgres.Table = "" }, SeverityError, "sink.postgres.table", "requires"},
		{"sink kind", func(c *Config) { c.Sink.Kind = "s3" }, SeverityError, "sink.kind", "unknown"},
		{"workers", func(c *Config) { c.Workers = 0 }, SeverityError, "workers", ">= 1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			issues := Validate(cfg)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidate_ValidVariants(t *testing.T) {
	cfg := Default()
	cfg.Converter = Options{"comma": "\t", "key_order": "header", "lazy_quotes": true}
	cfg.Metrics = Metrics{Backend: "prometheus", PushgatewayURL: "http://pgw:9091"}
	cfg.Sink = Sink{Kind: "postgres", Postgres: SinkPostgres{DSN: "postgres://x", Table: "public.t"}}

	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors(nil) {
		t.Fatalf("HasErrors(nil)=true")
	}
	warn := []Issue{{Severity: SeverityWarning, Path: "x", Message: "y"}}
	if HasErrors(warn) {
		t.Fatalf("HasErrors(warnings only)=true")
	}
	if !HasErrors(append(warn, Issue{Severity: SeverityError})) {
		t.Fatalf("HasErrors(with error)=false")
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "sink.kind", Message: "bad"}
	if got, want := iss.Error(), "error at sink.kind: bad"; got != want {
		t.Fatalf("Error()=%q; want %q", got, want)
	}
}
