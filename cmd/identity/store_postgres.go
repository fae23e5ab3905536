package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"warden/cmd/identity/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultSchema is the schema created by the embedded Postgres migrations.
const DefaultSchema = "warden"

const migrateTimeout = 30 * time.Second

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
//   - Insert relies on ON CONFLICT DO NOTHING, so the database decides the single winner.
//   - When auto-migration is on and the database was unreachable at startup, the schema
//     is applied on the next operation instead.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string

	autoMigrate bool
	migrations  singleflight.Group
	migrated    atomic.Bool
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "warden").
// Auto-migration only manages the default schema; other schemas must be provisioned.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithAutoMigrate makes the store apply the embedded migrations before first use.
func WithAutoMigrate(on bool) PostgresOption {
	return func(s *PostgresStore) error {
		s.autoMigrate = on
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. It does not touch the network.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	if st.autoMigrate && st.schema != DefaultSchema {
		return nil, fmt.Errorf("identity: auto-migrate only supports schema %q", DefaultSchema)
	}
	return st, nil
}

// Migrate applies pending migrations. It is safe to call repeatedly and concurrently:
// concurrent callers share one run, and each caller stops waiting when its ctx ends.
func (s *PostgresStore) Migrate(ctx context.Context) (int, error) {
	if s.migrated.Load() {
		return 0, nil
	}

	ch := s.migrations.DoChan("migrate", func() (any, error) {
		// The shared run outlives any single caller's cancellation.
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), migrateTimeout)
		defer cancel()
		return s.migrate(mctx)
	})
	select {
	case res := <-ch:
		n, _ := res.Val.(int)
		return n, res.Err
	case <-ctx.Done():
		return 0, UnavailableError{Op: "identity.Migrate", Err: ctx.Err()}
	}
}

func (s *PostgresStore) migrate(ctx context.Context) (int, error) {
	const op = "identity.Migrate"

	if s.migrated.Load() {
		return 0, nil
	}
	if err := s.pool.Ping(ctx); err != nil {
		return 0, UnavailableError{Op: op, Err: err}
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer func() { _ = db.Close() }()

	n, err := applyMigrations(ctx, goose.DialectPostgres, db, migrations.Postgres())
	if err != nil {
		if pgIsUnavailable(err) {
			return n, UnavailableError{Op: op, Err: err}
		}
		return n, err
	}
	s.migrated.Store(true)
	return n, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if !s.autoMigrate {
		return nil
	}
	_, err := s.Migrate(ctx)
	return err
}

// FindByUsername returns the record stored under exactly username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "identity.FindByUsername"

	if s == nil || s.pool == nil {
		return Credential{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if username == "" {
		return Credential{}, invalid(op, "username is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Credential{}, err
	}

	creds := pgIdent(s.schema, "credentials")

	var c Credential
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, created_at
		   FROM `+creds+`
		  WHERE username = $1`,
		username,
	).Scan(&c.Username, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, credentialNotFound(op)
		}
		return Credential{}, pgWrap(op, err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// Insert stores c unless a record for c.Username already exists.
func (s *PostgresStore) Insert(ctx context.Context, c Credential) error {
	const op = "identity.Insert"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := checkInsert(op, c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	now := c.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	creds := pgIdent(s.schema, "credentials")

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+creds+` (username, password_hash, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO NOTHING`,
		c.Username, c.PasswordHash, now,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return usernameTaken(op)
		}
		return pgWrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return usernameTaken(op)
	}
	return nil
}

// Ping checks if we can acquire a connection within the context deadline.
func (s *PostgresStore) Ping(ctx context.Context) error {
	const op = "identity.Ping"

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return UnavailableError{Op: op, Err: err}
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return UnavailableError{Op: op, Err: err}
	}
	return nil
}

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// ---- helpers ----

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgWrap(op string, err error) error {
	if pgIsUnavailable(err) {
		return UnavailableError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}

// pgIsUnavailable reports errors that mean "the database could not be reached",
// as opposed to errors about the statement itself.
func pgIsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection_exception class
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P03", pgErr.Code == "53300":
			// admin_shutdown, cannot_connect_now, too_many_connections
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
