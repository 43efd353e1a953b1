package usecase

import (
	"context"
	"net/url"

	"feedloader/internal/domain"
)

// HTTPCompletion получает результат одного GET-запроса.
// err не равен nil, если ответ не был получен вовсе.
type HTTPCompletion func(resp domain.RawResponse, err error)

// HTTPClient определяет транспорт для загрузки ленты.
// Get выполняет один запрос и вызывает completion не более одного раза.
// Все исходы, включая ошибки, приходят только через completion.
type HTTPClient interface {
	Get(u *url.URL, completion HTTPCompletion)
}

// ItemsMapper преобразует код ответа и тело в элементы ленты.
// Ошибка означает, что ответ не является корректной лентой.
type ItemsMapper func(data []byte, statusCode int) ([]domain.FeedItem, error)

// FeedStorage определяет интерфейс для сохранения элементов ленты.
// Возвращает количество сохраненных элементов.
type FeedStorage interface {
	SaveItems(ctx context.Context, feed string, items []domain.FeedItem) (int, error)
}

// ItemsStorage определяет интерфейс для чтения сохраненных элементов.
type ItemsStorage interface {
	GetItems(ctx context.Context, feed string, limit int) ([]domain.FeedItem, error)
}

// SyncMetrics принимает результаты синхронизации для мониторинга.
type SyncMetrics interface {
	ObserveLoad(feed string, err error, seconds float64)
	SetItems(feed string, count int)
}
