package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultReorderLevel = 10

type Product struct {
	ID           uint            `gorm:"primaryKey"`
	Name         string          `gorm:"size:150;not null"`
	SKU          *string         `gorm:"column:sku;size:64;uniqueIndex"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Category     string          `gorm:"size:100;index"`
	Description  string          `gorm:"type:text"`
	StockCount   int             `gorm:"not null;default:0;check:stock_count >= 0"` // central warehouse quantity
	ReorderLevel int             `gorm:"not null"`
	LeadTimeDays int             `gorm:"not null;default:0"`
	SupplierID   *uint           `gorm:"index"`
	Supplier     *Supplier
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLowStock reports whether central stock is at or below the reorder level.
func (p Product) IsLowStock() bool {
	return p.StockCount <= p.ReorderLevel
}
