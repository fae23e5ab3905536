package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func mustOpenSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	t.Parallel()

	runStoreContract(t, "", func(t *testing.T) Store {
		t.Helper()
		s := mustOpenSQLite(t, filepath.Join(t.TempDir(), "credentials.db"))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := context.Background()

	s := mustOpenSQLite(t, path)
	if err := s.Insert(ctx, Credential{Username: "alice", PasswordHash: "opaque"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening re-runs migrations, which must be a no-op.
	s = mustOpenSQLite(t, path)
	defer func() { _ = s.Close() }()

	got, err := s.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername after reopen: %v", err)
	}
	if got.PasswordHash != "opaque" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
