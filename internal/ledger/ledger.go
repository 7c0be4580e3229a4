// Package ledger holds per-warehouse and central stock quantities. Adjust and
// AdjustCentral are the only quantity mutations; both refuse to go below zero.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/models"

	"gorm.io/gorm"
)

type Ledger struct {
	db                  *gorm.DB
	defaultReorderLevel int
	now                 func() time.Time
}

type Option func(*Ledger)

// WithDefaultReorderLevel sets the reorder level given to lazily created rows.
func WithDefaultReorderLevel(level int) Option {
	return func(l *Ledger) { l.defaultReorderLevel = level }
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New binds a ledger to db, normally the *gorm.DB of an open transaction.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:                  db,
		defaultReorderLevel: models.DefaultReorderLevel,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetOrCreate returns the stored row or, when absent, a zero-quantity row that is not persisted.
func (l *Ledger) GetOrCreate(ctx context.Context, warehouseID, productID uint) (*models.WarehouseStock, error) {
	stock, err := l.find(ctx, warehouseID, productID)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load stock w%d/p%d: %w", warehouseID, productID, err)
	}
	return l.blank(warehouseID, productID), nil
}

// GetOrInsertDefault returns the stored row, inserting a zero-quantity row first if needed.
func (l *Ledger) GetOrInsertDefault(ctx context.Context, warehouseID, productID uint) (*models.WarehouseStock, error) {
	stock, err := l.GetOrCreate(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if stock.ID != 0 {
		return stock, nil
	}
	if err := l.db.WithContext(ctx).Create(stock).Error; err != nil {
		return nil, fmt.Errorf("insert stock w%d/p%d: %w", warehouseID, productID, err)
	}
	return stock, nil
}

// Adjust applies quantity += delta to one (warehouse, product) row. A debit is a single
// conditional UPDATE guarded by quantity >= -delta; when no row matches the request fails
// with ErrInsufficientStock and nothing is written. A credit creates the row if missing.
func (l *Ledger) Adjust(ctx context.Context, warehouseID, productID uint, delta int) (*models.WarehouseStock, error) {
	if delta == 0 {
		return nil, apperr.Validation("stock adjustment must be non-zero")
	}
	db := l.db.WithContext(ctx)
	now := l.now()

	q := db.Model(&models.WarehouseStock{}).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID)
	if delta < 0 {
		q = q.Where("quantity >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		"quantity":     gorm.Expr("quantity + ?", delta),
		"last_updated": now,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("adjust stock w%d/p%d: %w", warehouseID, productID, res.Error)
	}

	if res.RowsAffected == 0 {
		if delta < 0 {
			return nil, apperr.Insufficient(fmt.Sprintf("Insufficient stock at warehouse %d", warehouseID))
		}
		stock := l.blank(warehouseID, productID)
		stock.Quantity = delta
		stock.LastUpdated = now
		if err := db.Create(stock).Error; err != nil {
			return nil, fmt.Errorf("create stock w%d/p%d: %w", warehouseID, productID, err)
		}
		return stock, nil
	}

	return l.find(ctx, warehouseID, productID)
}

// SetInput is a direct stock count for one row.
type SetInput struct {
	WarehouseID  uint
	ProductID    uint
	Quantity     int
	ReorderLevel *int
	Location     *string
}

// Set moves the row to an absolute quantity by adjusting with the difference, then
// updates its reorder level and location.
func (l *Ledger) Set(ctx context.Context, in SetInput) (*models.WarehouseStock, error) {
	if in.Quantity < 0 {
		return nil, apperr.Validation("quantity must be zero or greater")
	}
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return nil, apperr.Validation("reorder level must be zero or greater")
	}

	stock, err := l.GetOrInsertDefault(ctx, in.WarehouseID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if diff := in.Quantity - stock.Quantity; diff != 0 {
		if stock, err = l.Adjust(ctx, in.WarehouseID, in.ProductID, diff); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{"last_updated": l.now()}
	if in.ReorderLevel != nil {
		updates["reorder_level"] = *in.ReorderLevel
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if err := l.db.WithContext(ctx).Model(&models.WarehouseStock{}).
		Where("id = ?", stock.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update stock %d: %w", stock.ID, err)
	}
	return l.find(ctx, in.WarehouseID, in.ProductID)
}

// AdjustCentral applies stock_count += delta on a product with the same guard as Adjust.
func (l *Ledger) AdjustCentral(ctx context.Context, productID uint, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, apperr.Validation("stock adjustment must be non-zero")
	}
	db := l.db.WithContext(ctx)

	q := db.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		q = q.Where("stock_count >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		"stock_count": gorm.Expr("stock_count + ?", delta),
		"updated_at":  l.now(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("adjust central stock p%d: %w", productID, res.Error)
	}

	var p models.Product
	if err := db.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Insufficient(fmt.Sprintf("Insufficient stock for %s", p.Name))
	}
	return &p, nil
}

// Quantity is a read-only shortcut; absent rows count as zero.
func (l *Ledger) Quantity(ctx context.Context, warehouseID, productID uint) (int, error) {
	stock, err := l.GetOrCreate(ctx, warehouseID, productID)
	if err != nil {
		return 0, err
	}
	return stock.Quantity, nil
}

func (l *Ledger) find(ctx context.Context, warehouseID, productID uint) (*models.WarehouseStock, error) {
	var stock models.WarehouseStock
	err := l.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (l *Ledger) blank(warehouseID, productID uint) *models.WarehouseStock {
	return &models.WarehouseStock{
		WarehouseID:  warehouseID,
		ProductID:    productID,
		ReorderLevel: l.defaultReorderLevel,
		LastUpdated:  l.now(),
	}
}
