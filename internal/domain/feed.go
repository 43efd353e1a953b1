package domain

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

var (
	// ErrConnectivity означает, что транспорт не получил ответа от сервера.
	ErrConnectivity = errors.New("connectivity")
	// ErrInvalidData означает, что ответ получен, но не прошел проверку.
	ErrInvalidData = errors.New("invalid data")
)

// FeedItem представляет отдельный элемент ленты.
// Location и Description необязательны: nil означает отсутствие значения.
type FeedItem struct {
	ID          uuid.UUID
	Location    *string
	Description *string
	ImageURL    url.URL
}

// NewFeedItem создает элемент ленты из готовых значений.
func NewFeedItem(id uuid.UUID, location, description *string, imageURL url.URL) FeedItem {
	return FeedItem{
		ID:          id,
		Location:    location,
		Description: description,
		ImageURL:    imageURL,
	}
}

// Equal сравнивает элементы по всем четырем полям.
func (i FeedItem) Equal(other FeedItem) bool {
	return i.ID == other.ID &&
		equalOptional(i.Location, other.Location) &&
		equalOptional(i.Description, other.Description) &&
		i.ImageURL.String() == other.ImageURL.String()
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// RawResponse - сырой ответ транспорта, передаваемый мапперу.
type RawResponse struct {
	Data       []byte
	StatusCode int
	Header     http.Header
}

// LoadResult - результат одного вызова Load.
// Err равен nil при успехе, иначе ErrConnectivity или ErrInvalidData.
type LoadResult struct {
	Items []FeedItem
	Err   error
}

// Success создает успешный результат.
func Success(items []FeedItem) LoadResult {
	return LoadResult{Items: items}
}

// Failure создает неуспешный результат.
func Failure(err error) LoadResult {
	return LoadResult{Err: err}
}

// FeedLoader определяет асинхронный загрузчик ленты.
// completion вызывается ровно один раз на каждый вызов Load.
type FeedLoader interface {
	Load(completion func(LoadResult))
}
