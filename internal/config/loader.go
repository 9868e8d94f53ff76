package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Assist backend
	if cfg.Assist.BaseURL == "" {
		errs = append(errs, errors.New("assist.base_url is required"))
	} else if u, err := url.Parse(cfg.Assist.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("assist.base_url %q is not an absolute URL", cfg.Assist.BaseURL))
	}
	if cfg.Assist.APIKey == "" {
		slog.Warn("assist.api_key is empty; requests will be sent unauthenticated")
	}
	if cfg.Assist.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("assist.timeout_ms %d must not be negative", cfg.Assist.TimeoutMS))
	}

	// Engine debounce windows
	if cfg.Engine.WordDelayMS < 0 {
		errs = append(errs, fmt.Errorf("engine.word_delay_ms %d must not be negative", cfg.Engine.WordDelayMS))
	}
	if cfg.Engine.GrammarDelayMS < 0 {
		errs = append(errs, fmt.Errorf("engine.grammar_delay_ms %d must not be negative", cfg.Engine.GrammarDelayMS))
	}
	if cfg.Engine.PredictionDelayMS < 0 {
		errs = append(errs, fmt.Errorf("engine.prediction_delay_ms %d must not be negative", cfg.Engine.PredictionDelayMS))
	}

	// Dictionary backend
	switch cfg.Dictionary.Backend {
	case "":
		slog.Warn("dictionary.backend is empty; words marked 'never correct' will not persist")
	case DictionaryFile:
		if cfg.Dictionary.Path == "" {
			errs = append(errs, errors.New("dictionary.path is required when backend is file"))
		}
	case DictionaryPostgres:
		if cfg.Dictionary.PostgresDSN == "" {
			errs = append(errs, errors.New("dictionary.postgres_dsn is required when backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("dictionary.backend %q is invalid; valid values: file, postgres", cfg.Dictionary.Backend))
	}

	return errors.Join(errs...)
}
