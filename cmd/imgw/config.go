// CLAUDE:SUMMARY YAML config with defaults, optional .env file and IMGW_* environment overrides.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
)

type config struct {
	Addr              string        `yaml:"addr"`
	LogLevel          string        `yaml:"log_level"`
	AllowedHost       string        `yaml:"allowed_host"`
	BaseURL           string        `yaml:"base_url"`
	APIBaseURL        string        `yaml:"api_base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries"` // total attempts per fetch
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxRowsPerSheet   int           `yaml:"max_rows_per_sheet"`
	CheckSchedule     string        `yaml:"check_schedule"`
	OutputDir         string        `yaml:"output_dir"`
}

func defaultConfig() config {
	return config{
		Addr:              ":8420",
		LogLevel:          "info",
		AllowedHost:       imgw.DefaultAllowedHost,
		BaseURL:           imgw.DefaultArchiveBaseURL,
		APIBaseURL:        imgw.DefaultAPIBaseURL,
		RequestTimeout:    imgw.DefaultRequestTimeout,
		MaxRetries:        imgw.DefaultMaxAttempts,
		BackoffMultiplier: imgw.DefaultBackoffMultiplier,
		MaxRowsPerSheet:   pipeline.DefaultRowsPerSheet,
		OutputDir:         ".",
	}
}

// loadConfig reads path over the defaults, then applies .env and IMGW_*
// environment overrides. A missing file is not an error.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no config file, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load(".env") // ignore missing file
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("IMGW_ADDR", &c.Addr)
	str("IMGW_LOG_LEVEL", &c.LogLevel)
	str("IMGW_ALLOWED_HOST", &c.AllowedHost)
	str("IMGW_BASE_URL", &c.BaseURL)
	str("IMGW_API_BASE_URL", &c.APIBaseURL)
	str("IMGW_OUTPUT_DIR", &c.OutputDir)

	// An explicitly empty schedule disables the check.
	if v, ok := os.LookupEnv("IMGW_CHECK_SCHEDULE"); ok {
		c.CheckSchedule = strings.TrimSpace(v)
	}

	if v := strings.TrimSpace(os.Getenv("IMGW_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid IMGW_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("IMGW_MAX_ROWS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IMGW_MAX_ROWS: %w", err)
		}
		c.MaxRowsPerSheet = n
	}
	return nil
}

func (c *config) validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1, got %g", c.BackoffMultiplier)
	}
	if err := pipeline.ValidateMaxRows(c.MaxRowsPerSheet); err != nil {
		return fmt.Errorf("max_rows_per_sheet: %w", err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}
