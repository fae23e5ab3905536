package app

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "WARDEN_"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`
	// DBAutoMigrate applies the embedded Postgres migrations at startup.
	DBAutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	SQLitePath string `env:"SQLITE_PATH"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://userauth3.netlify.app"`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAgeSeconds    int      `env:"CORS_MAX_AGE_SECONDS" envDefault:"600"`

	// If true, /readyz returns 503 unless a durable store is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`
}

// LoadConfig loads Config from the environment after applying the optional .env file.
// PORT is honoured when WARDEN_HTTP_ADDR is unset.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(EnvString(EnvPrefix+"ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if _, set := os.LookupEnv(EnvPrefix + "HTTP_ADDR"); !set {
		if port := EnvString("PORT", ""); port != "" {
			cfg.HTTPAddr = net.JoinHostPort("0.0.0.0", port)
		}
	}

	cfg.CORSAllowedOrigins = normalizeOrigins(cfg.CORSAllowedOrigins)
	if cfg.DBMinConns > cfg.DBMaxConns && cfg.DBMaxConns > 0 {
		return Config{}, fmt.Errorf("config: %sDB_MIN_CONNS (%d) exceeds %sDB_MAX_CONNS (%d)",
			EnvPrefix, cfg.DBMinConns, EnvPrefix, cfg.DBMaxConns)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
