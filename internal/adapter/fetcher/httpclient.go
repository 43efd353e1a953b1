package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"feedloader/internal/domain"
	"feedloader/internal/usecase"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 5 << 20
)

// Options задает ограничения одного запроса.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// HTTPClient реализует usecase.HTTPClient поверх net/http.
// Пул соединений общий для всех вызовов Get.
// Каждый запрос выполняется в отдельной горутине и ограничен Timeout.
type HTTPClient struct {
	client  *http.Client
	log     *slog.Logger
	timeout time.Duration
	maxBody int64
}

var _ usecase.HTTPClient = (*HTTPClient)(nil)

// NewHTTPClient создает транспорт с переданным http.Client.
// Если client равен nil, используется http.DefaultClient.
func NewHTTPClient(client *http.Client, opts Options, log *slog.Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPClient{
		client:  client,
		log:     log.With(slog.String("component", "http-client")),
		timeout: opts.Timeout,
		maxBody: opts.MaxBodyBytes,
	}
}

// Get выполняет GET-запрос асинхронно и вызывает completion ровно один раз.
// Любой полученный ответ, независимо от кода, передается без ошибки.
func (c *HTTPClient) Get(u *url.URL, completion usecase.HTTPCompletion) {
	if u == nil {
		go completion(domain.RawResponse{}, errors.New("nil request url"))
		return
	}
	target := u.String()
	go func() {
		resp, err := c.do(target)
		completion(resp, err)
	}()
}

func (c *HTTPClient) do(target string) (domain.RawResponse, error) {
	log := c.log.With(slog.String("url", target))
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return domain.RawResponse{}, fmt.Errorf("failed to create request for url %s: %w", target, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return domain.RawResponse{}, fmt.Errorf("failed to fetch url %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		log.Error("Failed to read response body",
			slog.Int("status_code", resp.StatusCode),
			slog.Any("error", err),
		)
		return domain.RawResponse{}, fmt.Errorf("failed to read body from %s: %w", target, err)
	}
	log.Debug("Response received",
		slog.Int("status_code", resp.StatusCode),
		slog.Int("bytes", len(data)),
	)
	return domain.RawResponse{
		Data:       data,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}, nil
}
