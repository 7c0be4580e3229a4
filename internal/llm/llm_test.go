package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stocksense-backend/internal/config"
	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

// completionServer answers every chat completion with reply and records the last request.
func completionServer(t *testing.T, status int, reply string, last *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if last != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		body, _ := json.Marshal(reply)
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, timeout time.Duration, m *metrics.Metrics) *OpenAI {
	return NewOpenAI("test-key", srv.URL+"/v1", "gpt-4o", timeout, zap.NewNop(), m)
}

func history() []models.SalesHistory {
	return []models.SalesHistory{
		{Quantity: 12, SaleDate: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
		{Quantity: 18, SaleDate: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
	}
}

func llmCounter(op, result string, n int) string {
	return fmt.Sprintf(`
# HELP stocksense_llm_requests_total LLM provider calls by operation and result.
# TYPE stocksense_llm_requests_total counter
stocksense_llm_requests_total{op=%q,result=%q} %d
`, op, result, n)
}

func TestPredictNextMonthSales(t *testing.T) {
	var req chatRequest
	m := metrics.New()
	c := newClient(completionServer(t, http.StatusOK, " 42\n", &req), time.Second, m)

	assert.Equal(t, 42, c.PredictNextMonthSales(context.Background(), history()))
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 10, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "2026-01: 12, 2026-02: 18")
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(),
		strings.NewReader(llmCounter(opPredict, "success", 1)), "stocksense_llm_requests_total"))
}

func TestPredictNextMonthSales_Failures(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		reply  string
	}{
		{"provider error", http.StatusInternalServerError, ""},
		{"not a number", http.StatusOK, "about forty"},
		{"negative", http.StatusOK, "-3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			c := newClient(completionServer(t, tc.status, tc.reply, nil), time.Second, m)
			assert.Zero(t, c.PredictNextMonthSales(context.Background(), history()))
			assert.NoError(t, testutil.GatherAndCompare(m.Registry(),
				strings.NewReader(llmCounter(opPredict, "failure", 1)), "stocksense_llm_requests_total"))
		})
	}
}

func TestGenerateDescription(t *testing.T) {
	var req chatRequest
	c := newClient(completionServer(t, http.StatusOK, "A sturdy steel bolt.", &req), time.Second, nil)

	got := c.GenerateDescription(context.Background(), "Bolt", "Hardware")
	assert.Equal(t, "A sturdy steel bolt.", got)
	assert.Equal(t, 200, req.MaxTokens)
	assert.Equal(t, "Generate a product description for Bolt in the Hardware category.", req.Messages[1].Content)
}

func TestTimeoutReturnsSentinel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := newClient(srv, 50*time.Millisecond, nil)
	start := time.Now()
	assert.Equal(t, "", c.GenerateDescription(context.Background(), "Bolt", "Hardware"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNew(t *testing.T) {
	assert.IsType(t, Disabled{}, New(&config.Config{}, zap.NewNop(), nil))
	assert.IsType(t, &OpenAI{}, New(&config.Config{OpenAIAPIKey: "k", OpenAIModel: "gpt-4o", LLMTimeout: time.Second}, zap.NewNop(), nil))

	var d Disabled
	assert.Zero(t, d.PredictNextMonthSales(context.Background(), history()))
	assert.Empty(t, d.GenerateDescription(context.Background(), "Bolt", "Hardware"))
}
