package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.TransferStatus("Completed")
	m.TransferStatus("Completed")
	m.AlertCreated("LowStock")
	m.Notification("webhook", false)
	m.LLMRequest("describe", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transfers.WithLabelValues("Completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("LowStock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("webhook", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("describe", "success")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransferStatus("Completed")
		m.AlertCreated("OutOfStock")
		m.Notification("kafka", true)
		m.LLMRequest("predict", false)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.AlertCreated("OutOfStock")

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `stocksense_alerts_created_total{type="OutOfStock"} 1`))
}
