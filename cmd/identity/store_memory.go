package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a volatile Store for development and tests.
// Records are lost when the process exits.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential

	now func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]Credential),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FindByUsername returns the record stored under exactly username.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "identity.FindByUsername"

	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if username == "" {
		return Credential{}, invalid(op, "username is required")
	}

	s.mu.RLock()
	c, ok := s.creds[username]
	s.mu.RUnlock()

	if !ok {
		return Credential{}, credentialNotFound(op)
	}
	return c, nil
}

// Insert stores c unless a record for c.Username already exists.
// The existence check and the write happen under one lock.
func (s *MemoryStore) Insert(ctx context.Context, c Credential) error {
	const op = "identity.Insert"

	if err := checkInsert(op, c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.creds[c.Username]; exists {
		return usernameTaken(op)
	}
	s.creds[c.Username] = c
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }
