package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedloader/internal/domain"
)

// Feed связывает имя ленты с ее загрузчиком.
type Feed struct {
	Name   string
	Loader domain.FeedLoader
}

// FeedSyncUseCase реализует бизнес-логику синхронизации ленты.
// Загружает ленту через FeedLoader, учитывает метрики и сохраняет снимок в хранилище.
type FeedSyncUseCase struct {
	storage FeedStorage
	metrics SyncMetrics
	log     *slog.Logger
}

// NewFeedSyncUseCase создает новый экземпляр UseCase для синхронизации лент.
// metrics может быть nil.
func NewFeedSyncUseCase(storage FeedStorage, metrics SyncMetrics, log *slog.Logger) *FeedSyncUseCase {
	return &FeedSyncUseCase{
		storage: storage,
		metrics: metrics,
		log:     log,
	}
}

// Sync выполняет один цикл: загрузка ленты и сохранение элементов.
// Если ctx завершится раньше загрузчика, результат загрузки будет отброшен.
func (uc *FeedSyncUseCase) Sync(ctx context.Context, feed Feed) error {
	start := time.Now()
	log := uc.log.With(
		slog.String("component", "feed-sync"),
		slog.String("feed", feed.Name),
	)
	log.Info("Feed sync started")

	result, err := load(ctx, feed.Loader)
	if err != nil {
		log.Error("Feed load interrupted",
			slog.String("stage", "load"),
			slog.Any("error", err),
		)
		return fmt.Errorf("load interrupted for %s: %w", feed.Name, err)
	}
	if uc.metrics != nil {
		uc.metrics.ObserveLoad(feed.Name, result.Err, time.Since(start).Seconds())
	}
	if result.Err != nil {
		log.Error("Feed load failed",
			slog.String("stage", "load"),
			slog.Any("error", result.Err),
		)
		return fmt.Errorf("load failed for %s: %w", feed.Name, result.Err)
	}
	log.Debug("Feed loaded successfully",
		slog.String("stage", "load"),
		slog.Int("items_found", len(result.Items)),
	)

	savedCount, err := uc.storage.SaveItems(ctx, feed.Name, result.Items)
	if err != nil {
		log.Error("Feed save failed",
			slog.String("stage", "save"),
			slog.Any("error", err),
		)
		return fmt.Errorf("save failed for %s: %w", feed.Name, err)
	}
	if uc.metrics != nil {
		uc.metrics.SetItems(feed.Name, savedCount)
	}

	log.Info("Feed sync completed successfully",
		slog.Int("items_found", len(result.Items)),
		slog.Int("items_saved", savedCount),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// load ждет единственный результат загрузчика или отмену ctx.
// Канал буферизован, поэтому поздний результат не блокирует транспорт.
func load(ctx context.Context, loader domain.FeedLoader) (domain.LoadResult, error) {
	results := make(chan domain.LoadResult, 1)
	loader.Load(func(r domain.LoadResult) {
		results <- r
	})
	select {
	case r := <-results:
		return r, nil
	case <-ctx.Done():
		return domain.LoadResult{}, ctx.Err()
	}
}
