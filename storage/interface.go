package storage

import (
	"context"
	"feedloader/internal/domain"
)

// Storage определяет общий интерфейс хранилища снимков лент.
// Объединяет сохранение и чтение элементов, а также закрытие соединения.
type Storage interface {
	SaveItems(ctx context.Context, feed string, items []domain.FeedItem) (int, error)
	GetItems(ctx context.Context, feed string, limit int) ([]domain.FeedItem, error)
	Close()
}
