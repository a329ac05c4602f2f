package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	ierr "github.com/rentpay/rentpay/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
func (c *Client) Migrate(ctx context.Context) error {
	db := c.db.WithContext(ctx)
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create migrations table").
			Mark(ierr.ErrDatabase)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int64
		if err := db.Table("schema_migrations").Where("version = ?", name).Count(&applied).Error; err != nil {
			return ierr.WithError(err).
				WithHint("Failed to read migration state").
				Mark(ierr.ErrDatabase)
		}
		if applied > 0 {
			continue
		}

		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return ierr.WithError(err).Mark(ierr.ErrInternal)
		}

		err = c.WithTx(ctx, func(ctx context.Context) error {
			q := c.Querier(ctx)
			if err := q.Exec(string(body)).Error; err != nil {
				return err
			}
			return q.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, name).Error
		})
		if err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to apply migration %s", name).
				Mark(ierr.ErrDatabase)
		}
		c.logger.Infow("applied migration", "version", name)
	}
	return nil
}
