package usecase

import (
	"log/slog"
	"net/url"
	"sync/atomic"

	"feedloader/internal/domain"
)

// RemoteFeedLoader загружает ленту с одного HTTP-адреса через HTTPClient.
// URL и клиент не меняются за время жизни загрузчика.
// Загрузчик не держит блокировок: каждый Load владеет своим замыканием.
type RemoteFeedLoader struct {
	url    url.URL
	client HTTPClient
	mapper ItemsMapper
	log    *slog.Logger
	closed atomic.Bool
}

var _ domain.FeedLoader = (*RemoteFeedLoader)(nil)

// NewRemoteFeedLoader создает загрузчик. Запросов при создании не выполняется.
func NewRemoteFeedLoader(u *url.URL, client HTTPClient, mapper ItemsMapper, log *slog.Logger) *RemoteFeedLoader {
	return &RemoteFeedLoader{
		url:    *u,
		client: client,
		mapper: mapper,
		log: log.With(
			slog.String("component", "remote-loader"),
			slog.String("url", u.String()),
		),
	}
}

// Load выполняет один запрос и передает результат в completion ровно один раз.
// После Close результат не доставляется.
func (l *RemoteFeedLoader) Load(completion func(domain.LoadResult)) {
	const op = "usecase.RemoteFeedLoader.Load"
	log := l.log.With(slog.String("op", op))
	if l.closed.Load() {
		log.Debug("Loader is closed, request skipped")
		return
	}
	requestURL := l.url
	var delivered atomic.Bool
	l.client.Get(&requestURL, func(resp domain.RawResponse, err error) {
		if l.closed.Load() {
			log.Debug("Loader closed before completion, result dropped")
			return
		}
		if !delivered.CompareAndSwap(false, true) {
			log.Warn("Duplicate transport completion ignored")
			return
		}
		completion(l.result(log, resp, err))
	})
}

// Close завершает логическое время жизни загрузчика.
// Незавершенные запросы продолжаются в транспорте, но их результаты отбрасываются.
func (l *RemoteFeedLoader) Close() {
	l.closed.Store(true)
}

func (l *RemoteFeedLoader) result(log *slog.Logger, resp domain.RawResponse, err error) domain.LoadResult {
	if err != nil {
		log.Warn("Feed request failed", slog.Any("error", err))
		return domain.Failure(domain.ErrConnectivity)
	}
	items, err := l.mapper(resp.Data, resp.StatusCode)
	if err != nil {
		log.Warn("Feed response rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.Any("error", err),
		)
		return domain.Failure(domain.ErrInvalidData)
	}
	log.Debug("Feed loaded", slog.Int("items", len(items)))
	return domain.Success(items)
}
