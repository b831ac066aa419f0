package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CSVTOJSON_"

// Load builds a Config from defaults, the file at path (skipped when path is
// empty) and CSVTOJSON_* environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Variables
// already set in the environment keep their values. Missing files are not an
// error; the returned bool reports whether anything was loaded.
func LoadDotEnv(paths ...string) (bool, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if len(present) == 0 {
		return false, nil
	}
	if err := godotenv.Load(present...); err != nil {
		return false, fmt.Errorf("load env files: %w", err)
	}
	return true, nil
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("decode yaml config %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("decode json config %s: %w", path, err)
		}
	}
	if cfg.Converter == nil {
		cfg.Converter = Options{}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	str("JOB", &cfg.Job)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_BACKEND", &cfg.Metrics.Backend)
	str("PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	str("DATADOG_ADDR", &cfg.Metrics.DatadogAddr)
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("SINK_KIND", &cfg.Sink.Kind)
	str("SINK_DIR", &cfg.Sink.Dir)
	str("POSTGRES_DSN", &cfg.Sink.Postgres.DSN)
	str("POSTGRES_TABLE", &cfg.Sink.Postgres.Table)

	for _, key := range []string{"comma", "key_order"} {
		if v := os.Getenv(EnvPrefix + strings.ToUpper(key)); v != "" {
			cfg.Converter[key] = v
		}
	}

	var err error
	if cfg.Server.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", cfg.Server.RateLimitRPS); err != nil {
		return err
	}
	if cfg.Server.RateBurst, err = envInt("RATE_BURST", cfg.Server.RateBurst); err != nil {
		return err
	}
	if cfg.Workers, err = envInt("WORKERS", cfg.Workers); err != nil {
		return err
	}
	maxBody, err := envInt("MAX_BODY_BYTES", int(cfg.Server.MaxBodyBytes))
	if err != nil {
		return err
	}
	cfg.Server.MaxBodyBytes = int64(maxBody)

	timeout, err := envDuration("REQUEST_TIMEOUT", cfg.Server.RequestTimeout.D())
	if err != nil {
		return err
	}
	cfg.Server.RequestTimeout = Duration(timeout)
	return nil
}

func envInt(name string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err)
	}
	return out, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err)
	}
	return out, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err)
	}
	return out, nil
}
