package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	secretHeader     = "X-Webhook-Secret"
	maxResponseBytes = 4 << 10
)

// WebhookNotifier POSTs events to every active webhook subscribed to the event kind and
// records one WebhookLog per attempt. There are no retries.
type WebhookNotifier struct {
	db      *gorm.DB
	client  *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewWebhookNotifier(db *gorm.DB, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *WebhookNotifier {
	return &WebhookNotifier{
		db:      db,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		metrics: m,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, ev Event) {
	var hooks []models.WebhookConfig
	err := w.db.WithContext(ctx).
		Where("is_active = ? AND (event_types & ?) <> 0", true, uint(ev.Type)).
		Find(&hooks).Error
	if err != nil {
		w.log.Error("load webhooks", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	for i := range hooks {
		w.Send(ctx, &hooks[i], ev)
	}
}

// Send delivers ev to a single webhook regardless of its subscriptions and reports success.
func (w *WebhookNotifier) Send(ctx context.Context, hook *models.WebhookConfig, ev Event) bool {
	body, err := json.Marshal(ev)
	if err != nil {
		w.log.Error("encode webhook payload", zap.String("event", ev.Name), zap.Error(err))
		return false
	}

	entry := models.WebhookLog{
		WebhookConfigID: hook.ID,
		EventID:         ev.ID,
		EventType:       ev.Name,
		Payload:         string(body),
		SentAt:          time.Now(),
	}

	status, respBody, err := w.post(ctx, hook, body)
	switch {
	case err != nil:
		entry.ErrorMessage = truncate(err.Error(), 500)
	default:
		entry.StatusCode = &status
		entry.Response = respBody
		entry.IsSuccess = status >= 200 && status < 300
		if !entry.IsSuccess {
			entry.ErrorMessage = fmt.Sprintf("webhook responded %d", status)
		}
	}

	counter := "failure_count"
	if entry.IsSuccess {
		counter = "success_count"
	}
	updates := map[string]any{counter: gorm.Expr(counter + " + 1")}
	if err == nil {
		updates["last_triggered_at"] = entry.SentAt
	}

	// the caller's context may already be done; bookkeeping still has to land
	db := w.db.WithContext(context.WithoutCancel(ctx))
	if dbErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.WebhookConfig{}).Where("id = ?", hook.ID).Updates(updates).Error
	}); dbErr != nil {
		w.log.Error("record webhook attempt", zap.Uint("webhook_id", hook.ID), zap.Error(dbErr))
	}

	w.metrics.Notification("webhook", entry.IsSuccess)
	if !entry.IsSuccess {
		w.log.Warn("webhook delivery failed",
			zap.Uint("webhook_id", hook.ID),
			zap.String("event", ev.Name),
			zap.String("error", entry.ErrorMessage),
		)
	}
	return entry.IsSuccess
}

func (w *WebhookNotifier) post(ctx context.Context, hook *models.WebhookConfig, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.SecretKey != "" {
		req.Header.Set(secretHeader, hook.SecretKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
