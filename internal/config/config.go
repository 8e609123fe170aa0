package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v10"
	"github.com/cockroachdb/errors"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Store struct {
		Type string `env:"STORE_TYPE" envDefault:"memory"`
		DSN  string `env:"STORE_DSN"`
	}
	Study struct {
		MaxIterations int    `env:"STUDY_MAX_ITERATIONS" envDefault:"50"`
		InitialPoints int    `env:"STUDY_INITIAL_POINTS" envDefault:"10"`
		Seed          int64  `env:"STUDY_SEED" envDefault:"42"`
		Sampler       string `env:"STUDY_SAMPLER" envDefault:"bayesian"`
		Acquisition   string `env:"STUDY_ACQUISITION" envDefault:"ei"`
		Kernel        string `env:"STUDY_KERNEL" envDefault:"matern52"`
		ErrorPolicy   string `env:"STUDY_ERROR_POLICY" envDefault:"abort"`
		Refine        bool   `env:"STUDY_REFINE" envDefault:"false"`
	}
	Dataset struct {
		Path        string `env:"DATASET_PATH"`
		Header      bool   `env:"DATASET_HEADER" envDefault:"true"`
		Comma       string `env:"DATASET_COMMA" envDefault:","`
		Standardize bool   `env:"DATASET_STANDARDIZE" envDefault:"false"`
		Folds       int    `env:"DATASET_FOLDS" envDefault:"5"`
		Seed        uint64 `env:"DATASET_SEED" envDefault:"42"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	cfg.Store.Type = strings.ToLower(cfg.Store.Type)
	if cfg.Store.Type == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join("data", "studies.db")
	}
	if cfg.Store.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Store.DSN); dir != "." && !strings.HasPrefix(cfg.Store.DSN, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "create store directory %s", dir)
			}
		}
	}

	if utf8.RuneCountInString(cfg.Dataset.Comma) != 1 {
		return nil, errors.Newf("DATASET_COMMA must be a single character, got %q", cfg.Dataset.Comma)
	}
	if cfg.Dataset.Folds < 2 {
		return nil, errors.Newf("DATASET_FOLDS must be at least 2, got %d", cfg.Dataset.Folds)
	}
	// A shorter write deadline would cut off responses the request timeout
	// still allows.
	if cfg.HTTP.WriteTimeout < cfg.HTTP.RequestTimeout {
		return nil, errors.Newf("HTTP_WRITE_TIMEOUT (%s) must not be shorter than HTTP_REQUEST_TIMEOUT (%s)",
			cfg.HTTP.WriteTimeout, cfg.HTTP.RequestTimeout)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return nil, errors.Newf("HTTP_PORT out of range: %d", cfg.HTTP.Port)
	}

	return cfg, nil
}
