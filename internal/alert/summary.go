package alert

import (
	"context"
	"fmt"
	"sort"

	"stocksense-backend/internal/models"
)

type Level string

const (
	LevelCritical Level = "Critical"
	LevelLow      Level = "Low"
	LevelWarning  Level = "Warning"
)

const topAlerts = 5

type LowStockProduct struct {
	ID                     uint    `json:"id"`
	Name                   string  `json:"name"`
	SKU                    *string `json:"sku"`
	Category               string  `json:"category"`
	CurrentStock           int     `json:"current_stock"`
	ReorderLevel           int     `json:"reorder_level"`
	LeadTimeDays           int     `json:"lead_time_days"`
	SupplierName           *string `json:"supplier_name"`
	AlertLevel             Level   `json:"alert_level"`
	SuggestedOrderQuantity int     `json:"suggested_order_quantity"`
}

type Summary struct {
	TotalAlerts   int               `json:"total_alerts"`
	CriticalCount int               `json:"critical_count"`
	LowStockCount int               `json:"low_stock_count"`
	WarningCount  int               `json:"warning_count"`
	TopAlerts     []LowStockProduct `json:"top_alerts"`
}

// LevelOf classifies a product at or below its reorder level. The half-level cut uses
// integer division, so a reorder level of 5 makes 2 the last Low quantity.
func LevelOf(stock, reorderLevel int) Level {
	switch {
	case stock == 0:
		return LevelCritical
	case stock <= reorderLevel/2:
		return LevelLow
	}
	return LevelWarning
}

func toLowStock(p models.Product) LowStockProduct {
	out := LowStockProduct{
		ID:                     p.ID,
		Name:                   p.Name,
		SKU:                    p.SKU,
		Category:               p.Category,
		CurrentStock:           p.StockCount,
		ReorderLevel:           p.ReorderLevel,
		LeadTimeDays:           p.LeadTimeDays,
		AlertLevel:             LevelOf(p.StockCount, p.ReorderLevel),
		SuggestedOrderQuantity: max(2*p.ReorderLevel-p.StockCount, 0),
	}
	if p.Supplier != nil {
		name := p.Supplier.Name
		out.SupplierName = &name
	}
	return out
}

// GetLowStockProducts lists every product at or below its reorder level, lowest stock first.
func (e *Engine) GetLowStockProducts(ctx context.Context) ([]LowStockProduct, error) {
	var products []models.Product
	if err := e.db.WithContext(ctx).Preload("Supplier").
		Where("stock_count <= reorder_level").
		Order("stock_count, id").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}

	out := make([]LowStockProduct, 0, len(products))
	for _, p := range products {
		out = append(out, toLowStock(p))
	}
	return out, nil
}

// GetAlertSummary is computed from products alone and is independent of stored alerts.
func (e *Engine) GetAlertSummary(ctx context.Context) (*Summary, error) {
	low, err := e.GetLowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(low), nil
}

func summarize(low []LowStockProduct) *Summary {
	sort.SliceStable(low, func(i, j int) bool { return low[i].CurrentStock < low[j].CurrentStock })

	s := &Summary{TotalAlerts: len(low)}
	for _, p := range low {
		switch p.AlertLevel {
		case LevelCritical:
			s.CriticalCount++
		case LevelLow:
			s.LowStockCount++
		case LevelWarning:
			s.WarningCount++
		}
	}
	s.TopAlerts = low[:min(topAlerts, len(low))]
	return s
}
