package usecase

import (
	"context"

	"feedloader/internal/domain"
)

// ItemsGetterUseCase отдает сохраненные элементы ленты для API.
type ItemsGetterUseCase struct {
	storage ItemsStorage
}

// NewItemsGetterUseCase создает новый экземпляр UseCase для чтения элементов.
func NewItemsGetterUseCase(s ItemsStorage) *ItemsGetterUseCase {
	return &ItemsGetterUseCase{storage: s}
}

// GetItems возвращает элементы ленты в исходном порядке с ограничением по количеству.
func (uc *ItemsGetterUseCase) GetItems(ctx context.Context, feed string, limit int) ([]domain.FeedItem, error) {
	return uc.storage.GetItems(ctx, feed, limit)
}
