package identity

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// applyMigrations runs every pending up-migration in fsys and returns how many ran.
func applyMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) (int, error) {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}

	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("migrations up: %w", err)
	}
	return len(res), nil
}
