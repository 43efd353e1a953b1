package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"feedloader/internal/usecase"
)

// FeedSyncer определяет интерфейс синхронизации одной ленты.
type FeedSyncer interface {
	Sync(ctx context.Context, feed usecase.Feed) error
}

// Worker периодически синхронизирует все настроенные ленты.
// Ленты одного цикла обрабатываются параллельно.
type Worker struct {
	syncer      FeedSyncer
	feeds       []usecase.Feed
	interval    time.Duration
	syncTimeout time.Duration
	log         *slog.Logger
	cancel      context.CancelFunc
	done        chan struct{}
}

// New создает воркер. Первый цикл выполняется сразу после Start.
// syncTimeout ограничивает синхронизацию одной ленты.
func New(syncer FeedSyncer, feeds []usecase.Feed, interval, syncTimeout time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		syncer:      syncer,
		feeds:       feeds,
		interval:    interval,
		syncTimeout: syncTimeout,
		log:         log.With(slog.String("component", "worker")),
	}
}

// Start запускает воркер в отдельной горутине.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Stop отменяет текущий цикл и ждет завершения горутины воркера.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	w.log.Info("Feed sync worker started",
		slog.String("interval", w.interval.String()),
		slog.Int("feed_count", len(w.feeds)),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.SyncAll(ctx)
	for {
		select {
		case <-ticker.C:
			w.SyncAll(ctx)
		case <-ctx.Done():
			w.log.Info("Worker stopping")
			return
		}
	}
}

// SyncAll синхронизирует все ленты параллельно и возвращает число успешных синхронизаций.
func (w *Worker) SyncAll(ctx context.Context) int {
	start := time.Now()
	w.log.Info("Feed sync cycle started", slog.Int("feeds_to_sync", len(w.feeds)))
	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	for _, feed := range w.feeds {
		wg.Add(1)
		go func(f usecase.Feed) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			opCtx, opCancel := context.WithTimeout(ctx, w.syncTimeout)
			defer opCancel()
			if err := w.syncer.Sync(opCtx, f); err != nil {
				errorCount.Add(1)
				w.log.Error("Feed sync failed",
					slog.String("feed", f.Name),
					slog.Any("error", err),
				)
				return
			}
			successCount.Add(1)
		}(feed)
	}
	wg.Wait()
	w.log.Info("Feed sync cycle completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("errors", errorCount.Load()),
		slog.Int("total", len(w.feeds)),
		slog.Duration("duration", time.Since(start)),
	)
	return int(successCount.Load())
}

// Feeds возвращает ленты, которые обрабатывает воркер.
func (w *Worker) Feeds() []usecase.Feed { return w.feeds }

// Interval возвращает интервал синхронизации.
func (w *Worker) Interval() time.Duration { return w.interval }
