package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/August26/proxycheck-api/internal/checker"
	"github.com/August26/proxycheck-api/internal/model"
)

const (
	DefaultListen             = "127.0.0.1:8080"
	DefaultIPInfoURL          = "http://ip-api.com/json/"
	DefaultRateLimitPerMinute = 30
	DefaultMaxBodyBytes       = 10 << 10
)

// Default returns the configuration used when no file is given.
func Default() model.Config {
	return model.Config{
		Listen:             DefaultListen,
		TargetURL:          checker.DefaultTargetURL,
		MaxTries:           checker.DefaultMaxTries,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		MaxBodyBytes:       DefaultMaxBodyBytes,
		IPInfoURL:          DefaultIPInfoURL,
		LogFormat:          "json",
		ShutdownTimeout:    5 * time.Second,
	}
}

// Load reads a YAML file over Default. Keys missing from the file keep
// their default value.
func Load(path string) (model.Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, Validate(cfg)
}

// Validate rejects values the service cannot run with.
func Validate(cfg model.Config) error {
	var errs []error
	if cfg.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if u, err := url.Parse(cfg.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("target_url %q is not an absolute http(s) URL", cfg.TargetURL))
	}
	if cfg.MaxTries < 1 {
		errs = append(errs, fmt.Errorf("max_tries must be >= 1, got %d", cfg.MaxTries))
	}
	if cfg.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_minute must be >= 0, got %d", cfg.RateLimitPerMinute))
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be > 0, got %d", cfg.MaxBodyBytes))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat))
	}
	return errors.Join(errs...)
}
