package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// ServerOptions задает ограничения и CORS для API.
// RateLimit равный 0 отключает ограничение частоты запросов.
type ServerOptions struct {
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
}

// NewServer создает HTTP-обработчик с роутингом и middleware.
// Регистрирует /api/feed, /api/health и /metrics.
func NewServer(log *slog.Logger, h *Handler, opts ServerOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/feed", h.getFeed)
	mux.HandleFunc("/api/health", h.healthCheck)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		handler = rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst))(handler)
	}
	handler = loggingMiddleware(log)(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(handler)
	return handler
}
