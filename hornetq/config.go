package hornetq

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries the session-level knobs: endpoint URIs, the failover policy
// invocations observe while the session is between endpoints, and the
// reconnect behavior of the failover coordinator.
type Config struct {
	Endpoints      []string
	FailoverPolicy FailoverPolicy
	RetryStrategy  string
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration
	RetryFactor    float64
	MaxRetries     int
	RequestTimeout time.Duration
}

// DefaultConfig returns the defaults a bare session runs with: block during
// failover, fixed one-second retries, unbounded attempts.
func DefaultConfig() Config {
	return Config{
		FailoverPolicy: FailoverBlock,
		RetryStrategy:  "fixed",
		RetryDelay:     time.Second,
		MaxRetryDelay:  30 * time.Second,
		RetryFactor:    2,
		MaxRetries:     0,
		RequestTimeout: 30 * time.Second,
	}
}

func (config Config) reconnectStrategy() ReconnectDelayStrategy {
	if config.RetryStrategy == "exponential" {
		return NewExponentialDelayStrategy(config.RetryDelay, config.MaxRetryDelay, config.RetryFactor)
	}
	return NewFixedDelayStrategy(config.RetryDelay)
}

type fileConfig struct {
	Session sessionFileConfig `toml:"session"`
}

type sessionFileConfig struct {
	Endpoints      []string `toml:"endpoints"`
	FailoverPolicy string   `toml:"failover_policy"`
	RetryStrategy  string   `toml:"retry_strategy"`
	RetryDelay     string   `toml:"retry_delay"`
	MaxRetryDelay  string   `toml:"max_retry_delay"`
	RetryFactor    float64  `toml:"retry_factor"`
	MaxRetries     int      `toml:"max_retries"`
	RequestTimeout string   `toml:"request_timeout"`
}

// LoadConfig reads a TOML file and overlays its [session] table on the
// defaults. Keys absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load session config: %w", err)
	}

	if meta.IsDefined("session", "endpoints") {
		cfg.Endpoints = nil
		for _, endpoint := range raw.Session.Endpoints {
			endpoint = strings.TrimSpace(endpoint)
			if endpoint != "" {
				cfg.Endpoints = append(cfg.Endpoints, endpoint)
			}
		}
	}

	if meta.IsDefined("session", "failover_policy") {
		switch strings.TrimSpace(raw.Session.FailoverPolicy) {
		case "block":
			cfg.FailoverPolicy = FailoverBlock
		case "fail":
			cfg.FailoverPolicy = FailoverFail
		default:
			return Config{}, fmt.Errorf("parse failover_policy: %q is not block or fail", raw.Session.FailoverPolicy)
		}
	}

	if meta.IsDefined("session", "retry_strategy") {
		strategy := strings.TrimSpace(raw.Session.RetryStrategy)
		if strategy != "fixed" && strategy != "exponential" {
			return Config{}, fmt.Errorf("parse retry_strategy: %q is not fixed or exponential", raw.Session.RetryStrategy)
		}
		cfg.RetryStrategy = strategy
	}

	if meta.IsDefined("session", "retry_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Session.RetryDelay))
		if err != nil {
			return Config{}, fmt.Errorf("parse retry_delay: %w", err)
		}
		cfg.RetryDelay = d
	}

	if meta.IsDefined("session", "max_retry_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Session.MaxRetryDelay))
		if err != nil {
			return Config{}, fmt.Errorf("parse max_retry_delay: %w", err)
		}
		cfg.MaxRetryDelay = d
	}

	if meta.IsDefined("session", "retry_factor") {
		cfg.RetryFactor = raw.Session.RetryFactor
	}

	if meta.IsDefined("session", "max_retries") {
		cfg.MaxRetries = raw.Session.MaxRetries
	}

	if meta.IsDefined("session", "request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Session.RequestTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}
