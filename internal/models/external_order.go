package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ExternalOrderStatus string

const (
	OrderPending    ExternalOrderStatus = "Pending"
	OrderProcessing ExternalOrderStatus = "Processing"
	OrderShipped    ExternalOrderStatus = "Shipped"
	OrderDelivered  ExternalOrderStatus = "Delivered"
	OrderCancelled  ExternalOrderStatus = "Cancelled"
)

var externalOrderStatuses = []ExternalOrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// ParseExternalOrderStatus is case-insensitive.
func ParseExternalOrderStatus(s string) (ExternalOrderStatus, bool) {
	for _, st := range externalOrderStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// MarksProcessed reports whether moving to s stamps ProcessedAt.
func (s ExternalOrderStatus) MarksProcessed() bool {
	return s == OrderProcessing || s == OrderShipped
}

// ExternalOrder is an order pushed in by a marketplace integration.
type ExternalOrder struct {
	ID              uint                `gorm:"primaryKey"`
	ExternalOrderID string              `gorm:"size:100;index;not null"`
	Platform        string              `gorm:"size:50;not null"`
	CustomerName    string              `gorm:"size:150"`
	CustomerEmail   string              `gorm:"size:150"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Status          ExternalOrderStatus `gorm:"size:20;index;not null"`
	ReceivedAt      time.Time           `gorm:"index"`
	ProcessedAt     *time.Time

	Items []ExternalOrderItem `gorm:"foreignKey:ExternalOrderID;constraint:OnDelete:CASCADE"`
}

type ExternalOrderItem struct {
	ID                uint  `gorm:"primaryKey"`
	ExternalOrderID   uint  `gorm:"index;not null"`
	ProductID         *uint `gorm:"index"` // nil when the SKU did not match
	ExternalProductID string          `gorm:"size:100"`
	SKU               string          `gorm:"column:sku;size:64"`
	ProductName       string          `gorm:"size:150"`
	Quantity          int             `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StockDeducted     bool            `gorm:"not null;default:false"`
}
