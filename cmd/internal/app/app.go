// Package app wires the warden server runtime: config, logging, storage, and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"warden/cmd/identity"
	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/credential"
	"warden/cmd/internal/observability/metrics"
	"warden/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// App is the warden server runtime. It owns the store and its connection pool.
type App struct {
	cfg Config
	log Logger

	store   identity.Store
	pool    *pgxpool.Pool
	durable bool

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	auth *authapi.Handler
}

// New constructs a fully wired App from config and logger.
// An unreachable Postgres is logged and tolerated; requests fail individually until it recovers.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	hasher, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	authCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st, pool, durable, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	svc, err := credential.New(st, hasher,
		credential.WithLogger(log),
		credential.WithMetrics(m),
	)
	if err != nil {
		closeStore(st, pool)
		return nil, err
	}
	auth, err := authapi.NewHandler(log, svc, authCfg)
	if err != nil {
		closeStore(st, pool)
		return nil, err
	}

	log.Info("password.hasher",
		"algorithm", string(hasher.Algorithm),
		"min_len", hasher.Policy.MinLength,
		"max_len", hasher.Policy.MaxLength,
	)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		pool:     pool,
		durable:  durable,
		registry: reg,
		metrics:  m,
		auth:     auth,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "durable_store", a.durable)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()
	a.Close()
	a.log.Info("server.stopped")
	return err
}

// Close releases the store and the database pool.
func (a *App) Close() {
	closeStore(a.store, a.pool)
}

func closeStore(st identity.Store, pool *pgxpool.Pool) {
	if st != nil {
		_ = st.Close()
	}
	if pool != nil {
		pool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore selects Postgres, then SQLite, then the in-memory store.
// durable reports whether records survive a restart.
func newStore(ctx context.Context, cfg Config, log Logger) (st identity.Store, pool *pgxpool.Pool, durable bool, err error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, false, fmt.Errorf("postgres config: %w", err)
		}

		// Ownership: app owns the pool; PostgresStore.Close is a no-op.
		pg, err := identity.NewPostgresStore(pool, identity.WithAutoMigrate(cfg.DBAutoMigrate))
		if err != nil {
			pool.Close()
			return nil, nil, false, err
		}
		log.Info("db.enabled.postgres_store", "auto_migrate", cfg.DBAutoMigrate)

		if err := PingDB(ctx, pool, 3*time.Second); err != nil {
			log.Error("db.connect.fail", "err", err)
			return pg, pool, true, nil
		}
		if cfg.DBAutoMigrate {
			migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			n, err := pg.Migrate(migrateCtx)
			if err != nil {
				log.Error("db.migrate.fail", "err", err)
			} else {
				log.Info("db.migrate.ok", "applied", n)
			}
		}
		return pg, pool, true, nil

	case cfg.SQLitePath != "":
		sq, err := identity.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, false, err
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return sq, nil, true, nil

	default:
		log.Info("db.disabled.inmemory_store")
		return identity.NewMemoryStore(), nil, false, nil
	}
}
