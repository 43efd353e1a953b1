package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"feedloader/internal/config"
	"feedloader/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresFeedDB struct {
	pool              *pgxpool.Pool
	log               *slog.Logger
	defaultItemsLimit int
}

var _ Storage = (*PostgresFeedDB)(nil)

func NewPostgresFeedDB(pool *pgxpool.Pool, appCfg config.AppConfig, log *slog.Logger) *PostgresFeedDB {
	log.Info("Initializing Postgres feed storage")
	return &PostgresFeedDB{
		pool:              pool,
		log:               log.With(slog.String("component", "storage")),
		defaultItemsLimit: appCfg.DefaultItemsLimit,
	}
}

func (db *PostgresFeedDB) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

// SaveItems заменяет снимок ленты новым, сохраняя порядок элементов в колонке position.
func (db *PostgresFeedDB) SaveItems(ctx context.Context, feed string, items []domain.FeedItem) (saved int, err error) {
	const op = "storage.postgres.SaveItems"
	log := db.log.With(slog.String("op", op), slog.String("feed", feed))
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	if _, err = tx.Exec(ctx, `DELETE FROM feed_items WHERE feed = $1;`, feed); err != nil {
		log.Error("Failed to clear previous snapshot", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to clear feed: %w", op, err)
	}
	unique := uniqueByID(items)
	if dropped := len(items) - len(unique); dropped > 0 {
		log.Warn("Duplicate item ids skipped", slog.Int("dropped", dropped))
	}
	batch := &pgx.Batch{}
	query := `
	INSERT INTO feed_items (feed, id, location, description, image_url, position)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (feed, id) DO NOTHING;
	`
	for i, item := range unique {
		batch.Queue(
			query,
			feed,
			item.ID,
			item.Location,
			item.Description,
			item.ImageURL.String(),
			i,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range unique {
		tag, execErr := results.Exec()
		if execErr != nil {
			err = execErr
			break
		}
		saved += int(tag.RowsAffected())
	}
	if closeErr := results.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Error("Failed to execute batch", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to execute batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	log.Debug("Feed snapshot saved", slog.Int("count", saved))
	return saved, nil
}

// uniqueByID оставляет первое вхождение каждого id, сохраняя порядок.
func uniqueByID(items []domain.FeedItem) []domain.FeedItem {
	seen := make(map[uuid.UUID]struct{}, len(items))
	unique := make([]domain.FeedItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

func (db *PostgresFeedDB) GetItems(ctx context.Context, feed string, n int) ([]domain.FeedItem, error) {
	limit := n
	if limit <= 0 {
		limit = db.defaultItemsLimit
	}
	const op = "storage.postgres.GetItems"
	log := db.log.With(
		slog.String("op", op),
		slog.String("feed", feed),
		slog.Int("limit", limit),
	)
	query := `
	SELECT id, location, description, image_url
	FROM feed_items
	WHERE feed = $1
	ORDER BY position ASC
	LIMIT $2;
	`
	rows, err := db.pool.Query(ctx, query, feed, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FeedItem, error) {
		var (
			id          uuid.UUID
			location    *string
			description *string
			rawImageURL string
		)
		if err := row.Scan(&id, &location, &description, &rawImageURL); err != nil {
			return domain.FeedItem{}, err
		}
		imageURL, err := url.Parse(rawImageURL)
		if err != nil {
			return domain.FeedItem{}, fmt.Errorf("invalid stored image url %q: %w", rawImageURL, err)
		}
		return domain.NewFeedItem(id, location, description, *imageURL), nil
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Info("Successfully retrieved feed items", slog.Int("count", len(items)))
	return items, nil
}
