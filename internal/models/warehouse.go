package models

import "time"

type Warehouse struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Code         string `gorm:"size:20;index"` // e.g. WH-01
	Address      string `gorm:"size:255"`
	City         string `gorm:"size:100"`
	Country      string `gorm:"size:100"`
	ContactPhone string `gorm:"size:50"`
	ManagerName  string `gorm:"size:100"`
	IsActive     bool   `gorm:"not null"`
	IsPrimary    bool   `gorm:"not null;default:false;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Stocks []WarehouseStock
}

// WarehouseStock is one ledger row: the quantity of a product held at a warehouse.
type WarehouseStock struct {
	ID           uint `gorm:"primaryKey"`
	WarehouseID  uint `gorm:"not null;uniqueIndex:idx_warehouse_product"`
	Warehouse    Warehouse
	ProductID    uint `gorm:"not null;uniqueIndex:idx_warehouse_product;index"`
	Product      Product
	Quantity     int    `gorm:"not null;default:0;check:quantity >= 0"`
	ReorderLevel int    `gorm:"not null"`
	Location     string `gorm:"size:100"` // aisle / shelf
	LastUpdated  time.Time
}

func (s WarehouseStock) IsLowStock() bool {
	return s.Quantity <= s.ReorderLevel
}
