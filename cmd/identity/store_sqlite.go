package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"warden/cmd/identity/migrations"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists credentials in a local SQLite file.
// It suits single-node deployments that need durability without a database server.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("identity: sqlite path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time keeps insert ordering simple and avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := applyMigrations(ctx, goose.DialectSQLite3, db, migrations.SQLite()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// FindByUsername returns the record stored under exactly username.
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "identity.FindByUsername"

	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if username == "" {
		return Credential{}, invalid(op, "username is required")
	}

	var (
		c         Credential
		createdMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM credentials WHERE username = ?`,
		username,
	).Scan(&c.Username, &c.PasswordHash, &createdMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, credentialNotFound(op)
		}
		return Credential{}, fmt.Errorf("%s: %w", op, err)
	}
	c.CreatedAt = fromMillis(createdMS)
	return c, nil
}

// Insert stores c unless a record for c.Username already exists.
func (s *SQLiteStore) Insert(ctx context.Context, c Credential) error {
	const op = "identity.Insert"

	if err := checkInsert(op, c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := c.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (username, password_hash, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		c.Username, c.PasswordHash, toMillis(now),
	)
	if err != nil {
		if sqliteIsUniqueViolation(err) {
			return usernameTaken(op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return usernameTaken(op)
	}
	return nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return UnavailableError{Op: "identity.Ping", Err: err}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func sqliteIsUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
