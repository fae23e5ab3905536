package authapi

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "WARDEN_"

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Config controls auth API behavior.
type Config struct {
	// TrustProxy makes audit entries use X-Forwarded-For / X-Real-IP.
	TrustProxy   bool  `env:"AUTH_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"AUTH_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadConfigFromEnv loads auth config from WARDEN_AUTH_* variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("auth config: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return cfg, nil
}
