package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runStoreContract exercises the Store contract against any backend.
// newStore must return an empty store; usernames are prefixed so shared databases stay isolated.
func runStoreContract(t *testing.T, prefix string, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("insert then find", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		in := Credential{Username: prefix + "alice", PasswordHash: "$argon2id$opaque", CreatedAt: created}
		if err := s.Insert(ctx, in); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		got, err := s.FindByUsername(ctx, prefix+"alice")
		if err != nil {
			t.Fatalf("FindByUsername: %v", err)
		}
		if got.Username != in.Username || got.PasswordHash != in.PasswordHash {
			t.Fatalf("got %+v want %+v", got, in)
		}
		if !got.CreatedAt.Equal(created) {
			t.Fatalf("created_at=%v want=%v", got.CreatedAt, created)
		}
	})

	t.Run("missing is not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindByUsername(context.Background(), prefix+"nobody")
		if !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("exact match only", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Insert(ctx, Credential{Username: prefix + "Bob", PasswordHash: "h1"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		for _, probe := range []string{prefix + "bob", prefix + "BOB", " " + prefix + "Bob", prefix + "Bob "} {
			if _, err := s.FindByUsername(ctx, probe); !IsNotFound(err) {
				t.Fatalf("FindByUsername(%q): expected not found, got %v", probe, err)
			}
		}

		// Differently-cased names are distinct records.
		if err := s.Insert(ctx, Credential{Username: prefix + "bob", PasswordHash: "h2"}); err != nil {
			t.Fatalf("Insert lower-case variant: %v", err)
		}
	})

	t.Run("duplicate insert conflicts and keeps original", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Insert(ctx, Credential{Username: prefix + "carol", PasswordHash: "first"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		err := s.Insert(ctx, Credential{Username: prefix + "carol", PasswordHash: "second"})
		if !IsConflict(err) || !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}

		got, err := s.FindByUsername(ctx, prefix+"carol")
		if err != nil {
			t.Fatalf("FindByUsername: %v", err)
		}
		if got.PasswordHash != "first" {
			t.Fatalf("original record changed: %+v", got)
		}
	})

	t.Run("concurrent inserts have exactly one winner", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		const workers = 16
		var (
			wg        sync.WaitGroup
			ok        atomic.Int32
			conflicts atomic.Int32
			start     = make(chan struct{})
			other     = make(chan error, workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				err := s.Insert(ctx, Credential{Username: prefix + "race", PasswordHash: fmt.Sprintf("hash-%d", i)})
				switch {
				case err == nil:
					ok.Add(1)
				case IsConflict(err):
					conflicts.Add(1)
				default:
					other <- err
				}
			}(i)
		}
		close(start)
		wg.Wait()
		close(other)

		for err := range other {
			t.Fatalf("unexpected insert error: %v", err)
		}
		if ok.Load() != 1 || conflicts.Load() != workers-1 {
			t.Fatalf("ok=%d conflicts=%d; want 1 and %d", ok.Load(), conflicts.Load(), workers-1)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Insert(ctx, Credential{Username: "", PasswordHash: "h"}); !IsInvalidInput(err) {
			t.Fatalf("empty username: expected invalid input, got %v", err)
		}
		if err := s.Insert(ctx, Credential{Username: prefix + "dave", PasswordHash: ""}); !IsInvalidInput(err) {
			t.Fatalf("empty hash: expected invalid input, got %v", err)
		}
		if _, err := s.FindByUsername(ctx, ""); !IsInvalidInput(err) {
			t.Fatalf("empty lookup: expected invalid input, got %v", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}
