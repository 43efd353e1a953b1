// Package metrics собирает метрики синхронизации лент в формате Prometheus.
package metrics

import (
	"errors"

	"feedloader/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess      = "success"
	resultConnectivity = "connectivity"
	resultInvalidData  = "invalid_data"
	resultOther        = "error"
)

// Metrics хранит счетчики загрузок, длительность и размер последнего снимка ленты.
type Metrics struct {
	loadsTotal      *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	items           *prometheus.GaugeVec
}

// New создает метрики и регистрирует их в reg.
// Имена метрик начинаются с namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_loads_total",
				Help:      "Total feed loads by feed and result.",
			},
			[]string{"feed", "result"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feed_load_duration_seconds",
				Help:      "Feed load duration.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"feed"},
		),
		items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "feed_items",
				Help:      "Items in the last successfully loaded snapshot.",
			},
			[]string{"feed"},
		),
	}
	reg.MustRegister(m.loadsTotal, m.durationSeconds, m.items)
	return m
}

// ObserveLoad учитывает один завершенный вызов Load.
func (m *Metrics) ObserveLoad(feed string, err error, seconds float64) {
	m.loadsTotal.WithLabelValues(feed, resultLabel(err)).Inc()
	m.durationSeconds.WithLabelValues(feed).Observe(seconds)
}

// SetItems запоминает размер последнего снимка ленты.
func (m *Metrics) SetItems(feed string, count int) {
	m.items.WithLabelValues(feed).Set(float64(count))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, domain.ErrConnectivity):
		return resultConnectivity
	case errors.Is(err, domain.ErrInvalidData):
		return resultInvalidData
	default:
		return resultOther
	}
}
