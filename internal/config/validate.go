package config

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"csvtojson/internal/converter"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "sink.postgres.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c. It does not mutate c; callers
// decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateConverter(c.Converter)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	issues = append(issues, validateServer(c.Server)...)
	issues = append(issues, validateSource(c.Source)...)
	issues = append(issues, validateSink(c.Sink)...)

	if c.Workers < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "workers",
			Message:  fmt.Sprintf("workers must be >= 1 (got %d)", c.Workers),
		})
	}
	return issues
}

func validateConverter(o Options) []Issue {
	var issues []Issue

	known := map[string]struct{}{"comma": {}, "key_order": {}, "lazy_quotes": {}}
	keys := o.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "converter." + k,
				Message:  fmt.Sprintf("unknown converter option %q is ignored", k),
			})
		}
	}

	if v, ok := o["comma"]; ok {
		s, isStr := v.(string)
		switch {
		case !isStr || utf8.RuneCountInString(s) != 1:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "converter.comma",
				Message:  "comma must be a single character",
			})
		case !validDelim([]rune(s)[0]):
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "converter.comma",
				Message:  fmt.Sprintf("%q cannot be used as a field delimiter", s),
			})
		}
	}

	if v, ok := o["key_order"]; ok {
		s, _ := v.(string)
		if _, ok := converter.ParseKeyOrder(s); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "converter.key_order",
				Message:  fmt.Sprintf("key_order must be \"sorted\" or \"header\" (got %v)", v),
			})
		}
	}

	if v, ok := o["lazy_quotes"]; ok {
		if _, isBool := v.(bool); !isBool {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "converter.lazy_quotes",
				Message:  "lazy_quotes must be a boolean",
			})
		}
	}
	return issues
}

// validDelim mirrors encoding/csv's delimiter rules.
func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

func validateLog(l Log) []Issue {
	var issues []Issue
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q; falling back to info", l.Level),
		})
	}
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "log.format",
			Message:  fmt.Sprintf("unknown log format %q; falling back to text", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires a pushgateway_url",
			})
		}
	case "datadog", "dd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires a datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, prometheus or datadog)", m.Backend),
		})
	}
	return issues
}

func validateServer(s Server) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Addr) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.addr",
			Message:  "server.addr must not be empty",
		})
	}
	switch {
	case s.RateLimitRPS < 0:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.rate_limit_rps",
			Message:  "rate_limit_rps must be >= 0",
		})
	case s.RateLimitRPS == 0:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "server.rate_limit_rps",
			Message:  "rate limiting is disabled",
		})
	case s.RateBurst < 1:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.rate_burst",
			Message:  "rate_burst must be >= 1 when rate limiting is enabled",
		})
	}
	if s.MaxBodyBytes <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.max_body_bytes",
			Message:  "max_body_bytes must be > 0",
		})
	}
	if s.RequestTimeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "server.request_timeout",
			Message:  "request_timeout must not be negative",
		})
	}
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if s.HTTP.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.http.max_retries",
			Message:  "max_retries must be >= 0",
		})
	}
	if s.HTTP.Timeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.http.timeout",
			Message:  "timeout must not be negative",
		})
	}
	if s.HTTP.InsecureSkipVerify {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.http.insecure_skip_verify",
			Message:  "TLS certificate verification is disabled",
		})
	}
	return issues
}

func validateSink(s Sink) []Issue {
	var issues []Issue
	switch s.Kind {
	case "", "stdout":
	case "dir":
		if strings.TrimSpace(s.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.dir",
				Message:  "dir sink requires a directory",
			})
		}
	case "postgres":
		if strings.TrimSpace(s.Postgres.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.postgres.dsn",
				Message:  "postgres sink requires a dsn",
			})
		}
		if strings.TrimSpace(s.Postgres.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.postgres.table",
				Message:  "postgres sink requires a table",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q (want stdout, dir or postgres)", s.Kind),
		})
	}
	return issues
}
