package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/database/dbtest"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

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

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fakeLLM struct {
	description string
	prediction  int
	history     int
}

func (f *fakeLLM) PredictNextMonthSales(_ context.Context, history []models.SalesHistory) int {
	f.history = len(history)
	return f.prediction
}

func (f *fakeLLM) GenerateDescription(context.Context, string, string) string {
	return f.description
}

var (
	fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	admin    = Actor{UserID: 1, UserName: "admin"}
)

type fixture struct {
	db  *gorm.DB
	svc *Service
	rec *recorder
	llm *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{db: db, rec: &recorder{}, llm: &fakeLLM{}}
	f.svc = NewService(db, zap.NewNop(), f.rec, f.llm, WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) product(t *testing.T, name, sku string, stock, reorder int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.NewFromInt(10), StockCount: stock, ReorderLevel: reorder}
	if sku != "" {
		p.SKU = &sku
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) supplier(t *testing.T, name string) models.Supplier {
	t.Helper()
	s := models.Supplier{Name: name, AverageLeadTimeDays: 5, IsActive: true}
	require.NoError(t, f.db.Create(&s).Error)
	return s
}

func ptr[T any](v T) *T { return &v }

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supplier(t, "Acme")

	got, err := f.svc.CreateProduct(ctx, admin, ProductInput{
		Name:       "  Widget ",
		SKU:        ptr(" W-1 "),
		Price:      decimal.RequireFromString("4.995"),
		Category:   "Parts",
		StockCount: 25,
		SupplierID: &sup.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	require.NotNil(t, got.SKU)
	assert.Equal(t, "W-1", *got.SKU)
	assert.Equal(t, "5.00", got.Price.StringFixed(2))
	assert.Equal(t, models.DefaultReorderLevel, got.ReorderLevel)
	assert.Equal(t, 25, got.StockCount)
	require.NotNil(t, got.SupplierName)
	assert.Equal(t, "Acme", *got.SupplierName)
	assert.Equal(t, []string{"ProductCreated"}, f.rec.names())

	_, err = f.svc.CreateProduct(ctx, admin, ProductInput{Name: "Other", SKU: ptr("W-1")})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.CreateProduct(ctx, admin, ProductInput{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.CreateProduct(ctx, admin, ProductInput{Name: "Neg", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.CreateProduct(ctx, admin, ProductInput{Name: "Orphan", SupplierID: ptr(uint(99))})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	noSKU, err := f.svc.CreateProduct(ctx, admin, ProductInput{Name: "Loose", SKU: ptr("  ")})
	require.NoError(t, err)
	assert.Nil(t, noSKU.SKU)

	var logs int64
	f.db.Model(&models.AuditLog{}).Where("entity_type = ?", "product").Count(&logs)
	assert.Equal(t, int64(2), logs)
}

func TestUpdateProduct_KeepsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Widget", "W-1", 40, 10)
	f.product(t, "Gadget", "G-1", 5, 10)

	got, err := f.svc.UpdateProduct(ctx, admin, p.ID, ProductInput{
		Name:         "Widget XL",
		SKU:          ptr("W-1"),
		Price:        decimal.NewFromInt(12),
		StockCount:   999,
		ReorderLevel: ptr(15),
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget XL", got.Name)
	assert.Equal(t, 40, got.StockCount)
	assert.Equal(t, 15, got.ReorderLevel)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.Equal(t, 40, stored.StockCount)
	assert.Equal(t, "12.00", stored.Price.StringFixed(2))

	_, err = f.svc.UpdateProduct(ctx, admin, p.ID, ProductInput{Name: "Widget", SKU: ptr("G-1")})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.UpdateProduct(ctx, admin, 99, ProductInput{Name: "Ghost"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{"ProductUpdated"}, f.rec.names())
}

func TestListProducts_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bolt := f.product(t, "Bolt", "BLT-1", 2, 10)
	f.product(t, "Nut", "NUT-1", 50, 10)
	f.db.Model(&bolt).Update("category", "Hardware")

	all, err := f.svc.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	low, err := f.svc.ListProducts(ctx, ProductFilter{LowStock: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Bolt", low[0].Name)
	assert.True(t, low[0].IsLowStock)

	bySKU, err := f.svc.ListProducts(ctx, ProductFilter{Search: "nut-"})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "Nut", bySKU[0].Name)

	byCat, err := f.svc.ListProducts(ctx, ProductFilter{Category: "Hardware"})
	require.NoError(t, err)
	assert.Len(t, byCat, 1)
}

func TestDeleteProduct_Guarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sold := f.product(t, "Sold", "", 5, 1)
	fresh := f.product(t, "Fresh", "", 5, 1)
	require.NoError(t, f.db.Create(&models.SalesHistory{ProductID: sold.ID, Quantity: 3, SaleDate: fixedNow}).Error)

	err := f.svc.DeleteProduct(ctx, admin, sold.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, f.svc.DeleteProduct(ctx, admin, fresh.ID))
	_, err = f.svc.GetProduct(ctx, fresh.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, admin, fresh.ID), apperr.ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Widget", "W-1", 12, 10)

	got, err := f.svc.AdjustStock(ctx, admin, p.ID, StockAdjustmentInput{Delta: -3})
	require.NoError(t, err)
	assert.Equal(t, 9, got.StockCount)
	assert.Equal(t, []string{"StockUpdated", "LowStockAlert"}, f.rec.names())

	upd, ok := f.rec.events[0].Data.(notify.StockUpdated)
	require.True(t, ok)
	assert.Equal(t, 12, upd.OldStock)
	assert.Equal(t, 9, upd.NewStock)
	assert.Equal(t, "manual_adjustment", upd.Reason)

	f.rec.reset()
	got, err = f.svc.AdjustStock(ctx, admin, p.ID, StockAdjustmentInput{Delta: -2, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.StockCount)
	assert.Equal(t, []string{"StockUpdated"}, f.rec.names(), "already below the threshold")

	_, err = f.svc.AdjustStock(ctx, admin, p.ID, StockAdjustmentInput{Delta: -8})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.EqualError(t, err, "Insufficient stock for Widget")

	_, err = f.svc.AdjustStock(ctx, admin, p.ID, StockAdjustmentInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.AdjustStock(ctx, admin, 99, StockAdjustmentInput{Delta: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.Equal(t, 7, stored.StockCount)
}

func TestGenerateDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Widget", "", 1, 1)
	f.db.Model(&p).Update("description", "old copy")

	got, err := f.svc.GenerateDescription(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Generated)
	assert.Equal(t, "old copy", got.Description)
	assert.Empty(t, f.rec.names())

	f.llm.description = "A sturdy widget."
	got, err = f.svc.GenerateDescription(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Generated)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.Equal(t, "A sturdy widget.", stored.Description)
	assert.Equal(t, []string{"ProductUpdated"}, f.rec.names())

	_, err = f.svc.GenerateDescription(ctx, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPredictSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Widget", "", 1, 1)
	require.NoError(t, f.db.Create(&[]models.SalesHistory{
		{ProductID: p.ID, Quantity: 4, SaleDate: fixedNow.AddDate(0, -2, 0)},
		{ProductID: p.ID, Quantity: 6, SaleDate: fixedNow.AddDate(0, -1, 0)},
	}).Error)
	f.llm.prediction = 7

	got, err := f.svc.PredictSales(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.PredictedSales)
	assert.Equal(t, "Widget", got.ProductName)
	assert.Equal(t, 2, f.llm.history)
}

func TestSuppliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sup, err := f.svc.CreateSupplier(ctx, admin, SupplierInput{Name: " Acme ", ContactEmail: "sales@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", sup.Name)
	assert.True(t, sup.IsActive)
	assert.Equal(t, defaultLeadTimeDays, sup.AverageLeadTimeDays)

	_, err = f.svc.CreateSupplier(ctx, admin, SupplierInput{Name: "Bad", ContactEmail: "not-an-email"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	upd, err := f.svc.UpdateSupplier(ctx, admin, sup.ID, SupplierInput{Name: "Acme Ltd", AverageLeadTimeDays: ptr(3), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 3, upd.AverageLeadTimeDays)
	assert.False(t, upd.IsActive)

	p := f.product(t, "Widget", "", 1, 1)
	f.db.Model(&p).Update("supplier_id", sup.ID)

	got, err := f.svc.GetSupplier(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProductCount)

	assert.ErrorIs(t, f.svc.DeleteSupplier(ctx, admin, sup.ID), apperr.ErrConflict)
	f.db.Model(&p).Update("supplier_id", nil)
	require.NoError(t, f.svc.DeleteSupplier(ctx, admin, sup.ID))

	list, err := f.svc.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBarcodeLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Widget", "W-1", 8, 2)

	code, err := f.svc.Barcode(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, BarcodeData(p.ID), code.BarcodeData)
	assert.Equal(t, "STOCK:1", code.BarcodeData)

	byID, err := f.svc.LookupBarcode(ctx, code.BarcodeData)
	require.NoError(t, err)
	assert.True(t, byID.Found)
	assert.Equal(t, p.ID, byID.ProductID)
	assert.Nil(t, byID.WarehouseLocation)

	wh := models.Warehouse{Name: "Main", IsActive: true}
	require.NoError(t, f.db.Create(&wh).Error)
	require.NoError(t, f.db.Create(&models.WarehouseStock{WarehouseID: wh.ID, ProductID: p.ID, Quantity: 3, ReorderLevel: 1}).Error)

	bySKU, err := f.svc.LookupBarcode(ctx, "W-1")
	require.NoError(t, err)
	assert.True(t, bySKU.Found)
	assert.Equal(t, 8, bySKU.StockCount)
	require.NotNil(t, bySKU.WarehouseLocation)
	assert.Equal(t, "Main", *bySKU.WarehouseLocation)

	missing, err := f.svc.LookupBarcode(ctx, "STOCK:42")
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Equal(t, "No product found for barcode: STOCK:42", missing.Message)

	_, err = f.svc.Barcode(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReportSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supplier(t, "Acme")
	out := f.product(t, "Out", "", 0, 5)
	f.product(t, "Low", "", 3, 5)
	f.product(t, "Plenty", "", 20, 5)
	f.db.Model(&models.Product{}).Where("name = ?", "Low").Update("price", decimal.NewFromInt(4))
	f.db.Model(&models.Product{}).Where("name = ?", "Plenty").Update("price", decimal.RequireFromString("1.5"))

	for _, st := range []models.ShipmentStatus{models.ShipmentPending, models.ShipmentInTransit, models.ShipmentDelivered} {
		require.NoError(t, f.db.Create(&models.Shipment{
			ProductID: out.ID, SupplierID: sup.ID, Quantity: 1, ExpectedArrival: fixedNow, Status: st,
		}).Error)
	}

	r, err := f.svc.ReportSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalProducts)
	assert.Equal(t, 1, r.LowStockProducts)
	assert.Equal(t, 1, r.OutOfStockProducts)
	assert.Equal(t, int64(1), r.TotalSuppliers)
	assert.Equal(t, int64(2), r.ActiveShipments)
	assert.Equal(t, "42.00", r.TotalInventoryValue.StringFixed(2))
	assert.Equal(t, fixedNow, r.GeneratedAt)
}
