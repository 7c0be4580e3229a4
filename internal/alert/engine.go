// Package alert materialises low-stock alerts and serves the computed alert views.
package alert

import (
	"context"
	"fmt"
	"time"

	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEngine(db *gorm.DB, log *zap.Logger, notifier notify.Notifier, m *metrics.Metrics) *Engine {
	return &Engine{db: db, log: log, notifier: notifier, metrics: m, now: time.Now}
}

// classify returns the alert a product should carry, or "" when it is healthy.
func classify(p models.Product) (models.AlertType, string) {
	switch {
	case p.StockCount == 0:
		return models.AlertOutOfStock, fmt.Sprintf("%s is out of stock!", p.Name)
	case p.StockCount <= p.ReorderLevel:
		return models.AlertLowStock, fmt.Sprintf("%s is running low (%d remaining)", p.Name, p.StockCount)
	}
	return "", ""
}

// CheckAndCreateAlerts scans every product and inserts an alert for each breaching one
// that has no unresolved alert of the same type. Existing alerts are never resolved here.
// It returns the number of alerts created.
func (e *Engine) CheckAndCreateAlerts(ctx context.Context) (int, error) {
	var created []models.StockAlert
	products := map[uint]models.Product{}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var all []models.Product
		if err := tx.Order("id").Find(&all).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		for _, p := range all {
			typ, msg := classify(p)
			if typ == "" {
				continue
			}

			var open int64
			if err := tx.Model(&models.StockAlert{}).
				Where("product_id = ? AND type = ? AND is_resolved = ?", p.ID, typ, false).
				Count(&open).Error; err != nil {
				return fmt.Errorf("check open alerts for product %d: %w", p.ID, err)
			}
			if open > 0 {
				continue
			}

			a := models.StockAlert{ProductID: p.ID, Type: typ, Message: msg, CreatedAt: e.now()}
			// a concurrent scan may have inserted the same alert; the unique index rejects it
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
			if res.Error != nil {
				return fmt.Errorf("create alert for product %d: %w", p.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			created = append(created, a)
			products[p.ID] = p
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, a := range created {
		p := products[a.ProductID]
		e.metrics.AlertCreated(string(a.Type))
		e.notifier.Notify(ctx, notify.NewEvent(models.EventLowStockAlert, notify.LowStockAlert{
			Type:         "low_stock_alert",
			ProductID:    p.ID,
			ProductName:  p.Name,
			SKU:          p.SKU,
			CurrentStock: p.StockCount,
			ReorderLevel: p.ReorderLevel,
			AlertType:    string(a.Type),
			Timestamp:    a.CreatedAt.UTC(),
		}))
	}
	if len(created) > 0 {
		e.log.Info("stock alerts created", zap.Int("count", len(created)))
	}
	return len(created), nil
}

// MarkAsRead is a no-op for unknown ids.
func (e *Engine) MarkAsRead(ctx context.Context, id uint) error {
	err := e.db.WithContext(ctx).Model(&models.StockAlert{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark alert %d read: %w", id, err)
	}
	return nil
}

// Resolve stamps ResolvedAt the first time; later calls and unknown ids are no-ops.
func (e *Engine) Resolve(ctx context.Context, id uint) error {
	err := e.db.WithContext(ctx).Model(&models.StockAlert{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]any{"is_resolved": true, "resolved_at": e.now()}).Error
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	return nil
}

type AlertResponse struct {
	ID           uint             `json:"id"`
	ProductID    uint             `json:"product_id"`
	ProductName  string           `json:"product_name"`
	SKU          *string          `json:"sku"`
	CurrentStock int              `json:"current_stock"`
	ReorderLevel int              `json:"reorder_level"`
	AlertType    models.AlertType `json:"alert_type"`
	Message      string           `json:"message"`
	IsRead       bool             `json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
}

// GetActiveAlerts lists unresolved alerts, newest first.
func (e *Engine) GetActiveAlerts(ctx context.Context) ([]AlertResponse, error) {
	var alerts []models.StockAlert
	if err := e.db.WithContext(ctx).Preload("Product").
		Where("is_resolved = ?", false).
		Order("created_at DESC, id DESC").
		Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}

	resp := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, AlertResponse{
			ID:           a.ID,
			ProductID:    a.ProductID,
			ProductName:  a.Product.Name,
			SKU:          a.Product.SKU,
			CurrentStock: a.Product.StockCount,
			ReorderLevel: a.Product.ReorderLevel,
			AlertType:    a.Type,
			Message:      a.Message,
			IsRead:       a.IsRead,
			CreatedAt:    a.CreatedAt,
		})
	}
	return resp, nil
}
