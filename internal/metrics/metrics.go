package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	transfers     *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	llmRequests   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksense_transfers_total",
			Help: "Stock transfers by resulting status.",
		}, []string{"status"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksense_alerts_created_total",
			Help: "Stock alerts created by the alert scan.",
		}, []string{"type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksense_notifications_total",
			Help: "Notification deliveries by sink and result.",
		}, []string{"sink", "result"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksense_llm_requests_total",
			Help: "LLM provider calls by operation and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.transfers, m.alerts, m.notifications, m.llmRequests)
	return m
}

func (m *Metrics) TransferStatus(status string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(status).Inc()
}

func (m *Metrics) AlertCreated(alertType string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(alertType).Inc()
}

func (m *Metrics) Notification(sink string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(sink, result(ok)).Inc()
}

func (m *Metrics) LLMRequest(op string, ok bool) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(op, result(ok)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
