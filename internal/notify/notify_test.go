package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/database/dbtest"
	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type received struct {
	mu      sync.Mutex
	secrets []string
	events  []Event
}

func newReceiver(t *testing.T, status int) (*httptest.Server, *received) {
	t.Helper()
	rec := &received{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		rec.mu.Lock()
		rec.secrets = append(rec.secrets, r.Header.Get("X-Webhook-Secret"))
		rec.events = append(rec.events, ev)
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func (r *received) snapshot() ([]string, []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.secrets...), append([]Event(nil), r.events...)
}

func createHook(t *testing.T, db *gorm.DB, url string, events models.WebhookEvent, active bool) models.WebhookConfig {
	t.Helper()
	hook := models.WebhookConfig{Name: "shop", WebhookURL: url, SecretKey: "s3cret", IsActive: active, EventTypes: events}
	require.NoError(t, db.Create(&hook).Error)
	return hook
}

func TestWebhookNotifier_DeliversToSubscribers(t *testing.T) {
	db := dbtest.Open(t)
	srv, rec := newReceiver(t, http.StatusOK)
	subscribed := createHook(t, db, srv.URL, models.EventStockUpdated|models.EventLowStockAlert, true)
	createHook(t, db, srv.URL, models.EventOrderCreated, true)
	createHook(t, db, srv.URL, models.EventAll, false)

	n := NewWebhookNotifier(db, time.Second, zap.NewNop(), metrics.New())
	n.Notify(context.Background(), NewEvent(models.EventStockUpdated, StockUpdated{Type: "stock_updated", ProductID: 3, NewStock: 4}))

	secrets, events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "s3cret", secrets[0])
	assert.Equal(t, "StockUpdated", events[0].Name)
	assert.NotEmpty(t, events[0].ID)

	var logs []models.WebhookLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, subscribed.ID, logs[0].WebhookConfigID)
	assert.True(t, logs[0].IsSuccess)
	require.NotNil(t, logs[0].StatusCode)
	assert.Equal(t, http.StatusOK, *logs[0].StatusCode)
	assert.Equal(t, "ok", logs[0].Response)

	var reloaded models.WebhookConfig
	require.NoError(t, db.First(&reloaded, subscribed.ID).Error)
	assert.Equal(t, 1, reloaded.SuccessCount)
	assert.Zero(t, reloaded.FailureCount)
	assert.NotNil(t, reloaded.LastTriggeredAt)
}

func TestWebhookNotifier_RecordsFailures(t *testing.T) {
	db := dbtest.Open(t)
	srv, _ := newReceiver(t, http.StatusInternalServerError)
	failing := createHook(t, db, srv.URL, models.EventAll, true)
	unreachable := createHook(t, db, "http://127.0.0.1:1/hook", models.EventAll, true)

	n := NewWebhookNotifier(db, time.Second, zap.NewNop(), nil)
	n.Notify(context.Background(), NewEvent(models.EventOrderCreated, map[string]any{"orderId": 1}))

	var logs []models.WebhookLog
	require.NoError(t, db.Order("webhook_config_id").Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.False(t, l.IsSuccess)
		assert.NotEmpty(t, l.ErrorMessage)
	}
	assert.Nil(t, logs[1].StatusCode, "no response from an unreachable host")

	for _, id := range []uint{failing.ID, unreachable.ID} {
		var h models.WebhookConfig
		require.NoError(t, db.First(&h, id).Error)
		assert.Equal(t, 1, h.FailureCount)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestMulti(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Multi{a, Nop{}, b}.Notify(context.Background(), NewEvent(models.EventProductCreated, nil))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

type blockingNotifier struct {
	calls    atomic.Int32
	deadline atomic.Bool
}

func (b *blockingNotifier) Notify(ctx context.Context, _ Event) {
	b.calls.Add(1)
	_, ok := ctx.Deadline()
	b.deadline.Store(ok)
}

func TestAsync_DetachesFromRequestContext(t *testing.T) {
	inner := &blockingNotifier{}
	a := NewAsync(inner, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Notify(ctx, NewEvent(models.EventStockUpdated, nil))
	a.Notify(ctx, NewEvent(models.EventStockUpdated, nil))
	a.Wait()

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.True(t, inner.deadline.Load())
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, Event) { panic("boom") }

func TestAsync_RecoversPanics(t *testing.T) {
	a := NewAsync(panickingNotifier{}, time.Second, zap.NewNop())
	a.Notify(context.Background(), NewEvent(models.EventStockUpdated, nil))
	assert.NotPanics(t, a.Wait)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSink(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, zap.NewNop(), metrics.New())

	ev := NewEvent(models.EventLowStockAlert, LowStockAlert{Type: "low_stock_alert", ProductID: 9, CurrentStock: 2, ReorderLevel: 10})
	sink.Notify(context.Background(), ev)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, ev.ID, string(w.msgs[0].Key))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "LowStockAlert", decoded["event"])
	assert.Equal(t, "LowStockAlert", string(w.msgs[0].Headers[0].Value))

	w.err = errors.New("broker down")
	assert.NotPanics(t, func() { sink.Notify(context.Background(), ev) })
}

func TestThresholdCrossed(t *testing.T) {
	assert.True(t, ThresholdCrossed(11, 10, 10))
	assert.True(t, ThresholdCrossed(20, 0, 10))
	assert.False(t, ThresholdCrossed(10, 5, 10), "already below")
	assert.False(t, ThresholdCrossed(30, 11, 10))
}

func TestCentralStockEvents(t *testing.T) {
	p := &models.Product{ID: 3, Name: "Bolt", StockCount: 8, ReorderLevel: 10}

	events := CentralStockEvents(p, 12, "order")
	require.Len(t, events, 2)
	assert.Equal(t, "StockUpdated", events[0].Name)
	assert.Equal(t, "LowStockAlert", events[1].Name)
	upd := events[0].Data.(StockUpdated)
	assert.Equal(t, 12, upd.OldStock)
	assert.Equal(t, 8, upd.NewStock)
	assert.Equal(t, "order", upd.Reason)
	assert.Nil(t, upd.WarehouseID)

	assert.Len(t, CentralStockEvents(p, 9, "order"), 1)
}

func TestService_CRUD(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, NewWebhookNotifier(db, time.Second, zap.NewNop(), nil))
	ctx := context.Background()

	_, err := svc.Create(ctx, WebhookInput{Name: "x", WebhookURL: "ftp://nope"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Create(ctx, WebhookInput{Name: "x", WebhookURL: "https://a.example", EventTypes: 128})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	created, err := svc.Create(ctx, WebhookInput{Name: "Shopify", WebhookURL: "https://a.example/hook", EventTypes: 5})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{"OrderCreated", "StockUpdated"}, created.EnabledEvents)

	inactive := false
	updated, err := svc.Update(ctx, created.ID, WebhookInput{Name: "Shopify", WebhookURL: "https://b.example/hook", IsActive: &inactive, EventTypes: 127})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Len(t, updated.EnabledEvents, 7)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), apperr.ErrNotFound)
}

func TestTestWebhookHandler(t *testing.T) {
	db := dbtest.Open(t)
	srv, rec := newReceiver(t, http.StatusAccepted)
	hook := createHook(t, db, srv.URL, models.EventNone, false)
	svc := NewService(db, NewWebhookNotifier(db, time.Second, zap.NewNop(), nil))

	app := fiber.New()
	Register(app.Group("/webhooks"), svc, func(c *fiber.Ctx) error { return c.Next() })

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhooks/"+itoa(hook.ID)+"/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `"success":true`))
	_, events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "Test", events[0].Name)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/webhooks/logs?webhook_id="+itoa(hook.ID), nil))
	require.NoError(t, err)
	var logs []WebhookLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "shop", logs[0].WebhookName)
	assert.Equal(t, "Test", logs[0].EventType)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/webhooks/abc/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
