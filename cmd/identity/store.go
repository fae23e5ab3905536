package identity

import (
	"context"
	"strings"
	"time"
)

// Credential is the stored username + password hash pair.
// PasswordHash is opaque here; it is produced and checked by security/password.
type Credential struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store is the credential persistence boundary.
//
// Contract:
//   - FindByUsername is an exact-match lookup. A missing record returns ErrNotFound.
//   - Insert is atomic per username: at most one insert for a given username ever
//     succeeds; every later or concurrent attempt returns a ConflictError (ErrConflict).
//   - Records are never updated or deleted through this interface.
//   - Backend connectivity failures surface as ErrUnavailable.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Credential, error)
	Insert(ctx context.Context, c Credential) error

	// Ping reports whether the backend can serve requests right now.
	Ping(ctx context.Context) error
	Close() error
}

// checkInsert applies the input rules shared by every backend.
func checkInsert(op string, c Credential) error {
	if c.Username == "" {
		return invalid(op, "username is required")
	}
	if strings.TrimSpace(c.PasswordHash) == "" {
		return invalid(op, "password hash is required")
	}
	return nil
}
