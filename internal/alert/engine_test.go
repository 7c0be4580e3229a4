package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

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

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func newEngine(t *testing.T) (*Engine, *gorm.DB, *recorder) {
	t.Helper()
	db := dbtest.Open(t)
	rec := &recorder{}
	return NewEngine(db, zap.NewNop(), rec, nil), db, rec
}

func product(t *testing.T, db *gorm.DB, name string, stock, reorder int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.NewFromInt(10), StockCount: stock, ReorderLevel: reorder}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func openAlerts(t *testing.T, db *gorm.DB) []models.StockAlert {
	t.Helper()
	var alerts []models.StockAlert
	require.NoError(t, db.Where("is_resolved = ?", false).Order("product_id").Find(&alerts).Error)
	return alerts
}

func TestCheckAndCreateAlerts_Idempotent(t *testing.T) {
	e, db, rec := newEngine(t)
	ctx := context.Background()
	out := product(t, db, "Bolt", 0, 10)
	low := product(t, db, "Nut", 4, 10)
	product(t, db, "Washer", 50, 10)
	edge := product(t, db, "Gear", 10, 10)

	n, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i := 0; i < 4; i++ {
		n, err = e.CheckAndCreateAlerts(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	alerts := openAlerts(t, db)
	require.Len(t, alerts, 3)
	assert.Equal(t, out.ID, alerts[0].ProductID)
	assert.Equal(t, models.AlertOutOfStock, alerts[0].Type)
	assert.Equal(t, "Bolt is out of stock!", alerts[0].Message)
	assert.Equal(t, low.ID, alerts[1].ProductID)
	assert.Equal(t, models.AlertLowStock, alerts[1].Type)
	assert.Equal(t, "Nut is running low (4 remaining)", alerts[1].Message)
	assert.Equal(t, edge.ID, alerts[2].ProductID, "stock equal to the reorder level is low")

	assert.Len(t, rec.events, 3)
	for _, ev := range rec.events {
		assert.Equal(t, "LowStockAlert", ev.Name)
	}
}

func TestCheckAndCreateAlerts_ReRaiseAfterResolve(t *testing.T) {
	e, db, _ := newEngine(t)
	ctx := context.Background()
	p := product(t, db, "Bolt", 2, 10)

	_, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	first := openAlerts(t, db)
	require.Len(t, first, 1)

	require.NoError(t, e.Resolve(ctx, first[0].ID))
	assert.Empty(t, openAlerts(t, db))

	n, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second := openAlerts(t, db)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, p.ID, second[0].ProductID)

	var total int64
	db.Model(&models.StockAlert{}).Count(&total)
	assert.Equal(t, int64(2), total, "resolved alerts are kept")
}

func TestCheckAndCreateAlerts_NoAutoResolve(t *testing.T) {
	e, db, _ := newEngine(t)
	ctx := context.Background()
	p := product(t, db, "Bolt", 0, 10)

	_, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Model(&p).Update("stock_count", 5).Error)
	n, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "low stock is a separate type from out of stock")

	require.NoError(t, db.Model(&p).Update("stock_count", 100).Error)
	_, err = e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, openAlerts(t, db), 2)
}

func TestMarkAsReadAndResolve(t *testing.T) {
	e, db, _ := newEngine(t)
	ctx := context.Background()
	product(t, db, "Bolt", 0, 10)
	_, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)
	a := openAlerts(t, db)[0]

	require.NoError(t, e.MarkAsRead(ctx, a.ID))
	require.NoError(t, e.MarkAsRead(ctx, a.ID))
	require.NoError(t, e.MarkAsRead(ctx, 999))

	require.NoError(t, e.Resolve(ctx, a.ID))
	var resolved models.StockAlert
	require.NoError(t, db.First(&resolved, a.ID).Error)
	assert.True(t, resolved.IsRead)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.ResolvedAt)
	stamp := *resolved.ResolvedAt

	require.NoError(t, e.Resolve(ctx, a.ID))
	require.NoError(t, e.Resolve(ctx, 999))
	require.NoError(t, db.First(&resolved, a.ID).Error)
	assert.True(t, stamp.Equal(*resolved.ResolvedAt), "first resolution time is kept")
}

func TestGetActiveAlerts(t *testing.T) {
	e, db, _ := newEngine(t)
	ctx := context.Background()
	product(t, db, "Bolt", 0, 10)
	product(t, db, "Nut", 3, 10)
	_, err := e.CheckAndCreateAlerts(ctx)
	require.NoError(t, err)

	active, err := e.GetActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Nut", active[0].ProductName, "newest first")
	assert.Equal(t, 3, active[0].CurrentStock)
}

func TestAlertHandlers(t *testing.T) {
	e, db, _ := newEngine(t)
	product(t, db, "Bolt", 0, 10)

	app := fiber.New()
	Register(app.Group("/alerts"), e)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/alerts/check", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/alerts/1/resolve", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/alerts/0/read", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
