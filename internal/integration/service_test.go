package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/database/dbtest"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

func newService(t *testing.T) (*Service, *gorm.DB, *recorder) {
	t.Helper()
	db := dbtest.Open(t)
	rec := &recorder{}
	hooks := notify.NewService(db, notify.NewWebhookNotifier(db, time.Second, zap.NewNop(), nil))
	return NewService(db, zap.NewNop(), rec, hooks, WithClock(func() time.Time { return fixedNow })), db, rec
}

func product(t *testing.T, db *gorm.DB, name, sku string, stock, reorder int) models.Product {
	t.Helper()
	p := models.Product{Name: name, SKU: &sku, Price: decimal.NewFromInt(10), StockCount: stock, ReorderLevel: reorder}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.StockCount
}

func order(id string, items ...IncomingOrderItem) IncomingOrder {
	return IncomingOrder{
		ExternalOrderID: id,
		Platform:        "Shopify",
		CustomerName:    "Ada",
		TotalAmount:     decimal.RequireFromString("42.5"),
		Items:           items,
	}
}

func TestProcessIncomingOrder(t *testing.T) {
	svc, db, rec := newService(t)
	ctx := context.Background()
	widget := product(t, db, "Widget", "W-1", 12, 10)
	bolt := product(t, db, "Bolt", "B-1", 2, 1)

	got, err := svc.ProcessIncomingOrder(ctx, order("1001",
		IncomingOrderItem{SKU: "W-1", Quantity: 3, UnitPrice: decimal.NewFromInt(10)},
		IncomingOrderItem{SKU: " B-1 ", ProductName: "Bolt pack", Quantity: 5},
		IncomingOrderItem{SKU: "NOPE", ProductName: "Mystery", Quantity: 1},
		IncomingOrderItem{ExternalProductID: "ext-9", ProductName: "Gift card", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderPending), got.Status)
	assert.Equal(t, 4, got.ItemCount)
	assert.Equal(t, fixedNow, got.ReceivedAt)
	assert.Equal(t, "42.50", got.TotalAmount.StringFixed(2))

	items := got.Items
	assert.True(t, items[0].ProductMatched)
	assert.True(t, items[0].StockDeducted)
	assert.Equal(t, "Widget", items[0].ProductName, "name taken from the matched product")
	assert.True(t, items[1].ProductMatched)
	assert.False(t, items[1].StockDeducted, "insufficient stock keeps the item undeducted")
	assert.False(t, items[2].ProductMatched)
	assert.False(t, items[3].ProductMatched)

	assert.Equal(t, 9, stockOf(t, db, widget.ID))
	assert.Equal(t, 2, stockOf(t, db, bolt.ID))
	assert.Equal(t, []string{"OrderCreated", "StockUpdated", "LowStockAlert"}, rec.names())

	created := rec.events[0].Data.(notify.OrderEvent)
	assert.Equal(t, "ordercreated", created.Type)
	assert.Equal(t, 4, created.ItemCount)
	assert.Equal(t, "42.50", created.TotalAmount)

	_, err = svc.ProcessIncomingOrder(ctx, order("1001", IncomingOrderItem{SKU: "W-1", Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 9, stockOf(t, db, widget.ID), "duplicate order is rejected before any debit")

	var stored int64
	db.Model(&models.ExternalOrderItem{}).Count(&stored)
	assert.Equal(t, int64(4), stored)

	var logs int64
	db.Model(&models.AuditLog{}).Where("entity_type = ? AND user_name = ?", "external_order", "integration:Shopify").Count(&logs)
	assert.Equal(t, int64(1), logs)
}

func TestProcessIncomingOrder_Validation(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	for name, in := range map[string]IncomingOrder{
		"no id":        {Platform: "Shopify", Items: []IncomingOrderItem{{Quantity: 1}}},
		"no platform":  {ExternalOrderID: "1", Items: []IncomingOrderItem{{Quantity: 1}}},
		"no items":     order("1"),
		"zero qty":     order("1", IncomingOrderItem{SKU: "W-1"}),
		"negative sum": {ExternalOrderID: "1", Platform: "Shopify", TotalAmount: decimal.NewFromInt(-1), Items: []IncomingOrderItem{{Quantity: 1}}},
	} {
		_, err := svc.ProcessIncomingOrder(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
	assert.Empty(t, rec.names())
}

func TestUpdateOrderStatus(t *testing.T) {
	svc, db, rec := newService(t)
	ctx := context.Background()
	product(t, db, "Widget", "W-1", 12, 1)
	o, err := svc.ProcessIncomingOrder(ctx, order("7", IncomingOrderItem{SKU: "W-1", Quantity: 2}))
	require.NoError(t, err)
	assert.Nil(t, o.ProcessedAt)

	got, err := svc.UpdateOrderStatus(ctx, audit.Actor{UserID: 1, UserName: "admin"}, o.ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderProcessing), got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.True(t, got.ProcessedAt.Equal(fixedNow))
	assert.Equal(t, "OrderUpdated", rec.names()[len(rec.names())-1])
	assert.Equal(t, 10, stockOf(t, db, *got.Items[0].ProductID), "status changes never move stock")

	_, err = svc.UpdateOrderStatus(ctx, audit.Actor{}, o.ID, "Lost")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateOrderStatus(ctx, audit.Actor{}, 99, "Shipped")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	pending, err := svc.ListOrders(ctx, "Pending")
	require.NoError(t, err)
	assert.Empty(t, pending)
	processing, err := svc.ListOrders(ctx, "Processing")
	require.NoError(t, err)
	assert.Len(t, processing, 1)
	_, err = svc.ListOrders(ctx, "bogus")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDashboard(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	active := models.WebhookConfig{Name: "shop", WebhookURL: "http://example.invalid", IsActive: true, EventTypes: models.EventAll}
	idle := models.WebhookConfig{Name: "old", WebhookURL: "http://example.invalid", EventTypes: models.EventAll}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&idle).Error)
	require.NoError(t, db.Create(&models.WebhookLog{WebhookConfigID: active.ID, EventType: "OrderCreated", SentAt: fixedNow}).Error)

	a, err := svc.ProcessIncomingOrder(ctx, order("1", IncomingOrderItem{ProductName: "x", Quantity: 1}))
	require.NoError(t, err)
	_, err = svc.ProcessIncomingOrder(ctx, order("2", IncomingOrderItem{ProductName: "y", Quantity: 1}))
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, audit.Actor{}, a.ID, "Shipped")
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalWebhooks)
	assert.Equal(t, int64(1), d.ActiveWebhooks)
	assert.Equal(t, int64(2), d.TotalOrdersReceived)
	assert.Equal(t, int64(1), d.PendingOrders)
	assert.Equal(t, int64(1), d.ProcessedToday)
	require.Len(t, d.RecentLogs, 1)
	assert.Equal(t, "shop", d.RecentLogs[0].WebhookName)
}

func TestOrderHandlers(t *testing.T) {
	svc, db, _ := newService(t)
	product(t, db, "Widget", "W-1", 12, 1)

	app := fiber.New()
	RegisterIncoming(app.Group("/integrations"), svc, "s3cret")
	Register(app.Group("/integrations"), svc, func(c *fiber.Ctx) error { return c.Next() })

	body := `{"external_order_id":"55","platform":"WooCommerce","total_amount":"20","items":[{"sku":"W-1","quantity":2,"unit_price":"10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/integrations/orders/incoming", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/integrations/orders/incoming", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, stockOf(t, db, 1))

	req = httptest.NewRequest(http.MethodPatch, "/integrations/orders/1/status", strings.NewReader(`{"status":"Delivered"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/integrations/orders/x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/integrations/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
