package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"feedloader/internal/adapter/parser"
	"feedloader/internal/domain"

	"github.com/google/uuid"
)

type itemsGetter interface {
	GetItems(ctx context.Context, feed string, limit int) ([]domain.FeedItem, error)
}

// Handler обслуживает чтение сохраненных лент и проверку состояния.
type Handler struct {
	log         *slog.Logger
	itemsGetter itemsGetter
	defaultFeed string
}

// NewHandler создает обработчики API. defaultFeed используется, если параметр feed не задан.
func NewHandler(log *slog.Logger, getter itemsGetter, defaultFeed string) *Handler {
	return &Handler{
		log:         log,
		itemsGetter: getter,
		defaultFeed: defaultFeed,
	}
}

// getFeed - хендлер для эндпоинта GET /api/feed.
// Отдает сохраненный снимок ленты в том же формате {"items": [...]}, который читает загрузчик.
func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getFeed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", requestID(r.Context())),
	)
	if r.Method != http.MethodGet {
		log.Warn("method not allowed")
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	feed := r.URL.Query().Get("feed")
	if feed == "" {
		feed = h.defaultFeed
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			log.Warn("invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}

	items, err := h.itemsGetter.GetItems(r.Context(), feed, limit)
	if err != nil {
		log.Error("Failed to get feed items", slog.String("feed", feed), slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	body, err := parser.EncodeItems(items)
	if err != nil {
		log.Error("Failed to encode feed items", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return uuid.NewString()
}
