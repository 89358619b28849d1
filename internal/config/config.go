package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every setting of a probe run. It is loaded once at startup and
// passed explicitly to the components that need it.
type Config struct {
	// Environment selects the logger flavour (development or production).
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// Probe configures how each domain is probed.
	Probe struct {
		// Workers is the number of concurrent probing workers.
		Workers int `env:"PROBE_WORKERS" env-default:"8" yaml:"workers"`
		// Timeout bounds every single HTTP request of a probe.
		Timeout time.Duration `env:"PROBE_TIMEOUT" env-default:"15s" yaml:"timeout"`
		// UserAgent is sent with every request. Empty means the built-in browser User-Agent.
		UserAgent string `env:"PROBE_USER_AGENT" yaml:"userAgent"`
		// StrictWWWCheck decides the www escalation from the https status instead of
		// the original http status.
		StrictWWWCheck bool `env:"PROBE_STRICT_WWW_CHECK" env-default:"false" yaml:"strictWWWCheck"`
	} `yaml:"probe"`

	// Output configures where results are written.
	Output struct {
		// Name is the base name of the result files: codes_{name}.csv and {name}.txt.
		Name string `env:"OUTPUT_NAME" env-default:"results" yaml:"name"`
		// Dir is the directory the result files are created in.
		Dir string `env:"OUTPUT_DIR" env-default:"." yaml:"dir"`
		// FlushOnInterrupt writes the partial results of an interrupted run.
		FlushOnInterrupt bool `env:"OUTPUT_FLUSH_ON_INTERRUPT" env-default:"false" yaml:"flushOnInterrupt"`
	} `yaml:"output"`

	// Metrics configures the optional metrics and pprof listener.
	Metrics struct {
		// Addr is the listen address, e.g. ":9090". Empty disables the listener.
		Addr string `env:"METRICS_ADDR" yaml:"addr"`
		// Path is the URL path Prometheus metrics are served at.
		Path string `env:"METRICS_PATH" env-default:"/metrics" yaml:"path"`
	} `yaml:"metrics"`

	// Tracing configures the optional span export.
	Tracing struct {
		// File receives every request span as JSON. Empty disables tracing.
		File string `env:"TRACING_FILE" yaml:"file"`
	} `yaml:"tracing"`

	// GracefulShutdownTimeout bounds the shutdown of the metrics listener.
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"5s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load reads the yaml file at configPath, then applies environment variables
// and defaults. A missing file is not an error: the configuration then comes
// from the environment alone.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		_, err := os.Stat(configPath)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
				return nil, fmt.Errorf("could not read config: %w", err)
			}

			return &cfg, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("could not stat config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config from environment: %w", err)
	}

	return &cfg, nil
}
