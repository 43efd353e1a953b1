package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	ID    string
	UpSQL string
}

var allMigrations = []Migration{
	{
		ID: "020241019120000_create_feed_items_table",
		UpSQL: `
		CREATE TABLE feed_items(
		feed TEXT NOT NULL,
		id UUID NOT NULL,
		location TEXT NULL,
		description TEXT NULL,
		image_url TEXT NOT NULL,
		position INTEGER NOT NULL,
		synced_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (feed, id)
		);`,
	},
	{
		ID: "020241019120100_index_feed_items_position",
		UpSQL: `
		CREATE INDEX feed_items_feed_position_idx ON feed_items (feed, position);`,
	},
}

// Apply применяет все необходимые миграции к базе данных.
// Каждая миграция применяется один раз, список примененных хранится в schema_migrations.
func Apply(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) error {
	log = log.With(slog.String("component", "migrations"))
	log.Info("Starting database migrations check...")
	if _, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
	id TEXT PRIMARY KEY
	);
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	applied, err := appliedIDs(ctx, pool)
	if err != nil {
		return err
	}
	todo := pending(allMigrations, applied)
	if len(todo) == 0 {
		log.Info("Database is up to date, no new migrations found.")
		return nil
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, m := range todo {
		log.Info("Applying migration", slog.String("id", m.ID))
		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (id) VALUES ($1)", m.ID); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations transaction: %w", err)
	}
	log.Info("Database migrations applied successfully", slog.Int("count", len(todo)))
	return nil
}

func appliedIDs(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration id: %w", err)
	}
	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

// pending возвращает непримененные миграции, отсортированные по ID.
func pending(all []Migration, applied map[string]bool) []Migration {
	var todo []Migration
	for _, m := range all {
		if !applied[m.ID] {
			todo = append(todo, m)
		}
	}
	sort.Slice(todo, func(i, j int) bool {
		return todo[i].ID < todo[j].ID
	})
	return todo
}
