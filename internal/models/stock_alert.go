package models

import "time"

type AlertType string

const (
	AlertLowStock          AlertType = "LowStock"
	AlertOutOfStock        AlertType = "OutOfStock"
	AlertReorderSuggestion AlertType = "ReorderSuggestion"
)

// StockAlert rows are never deleted. The partial unique index allows at most one
// unresolved row per (ProductID, Type).
type StockAlert struct {
	ID         uint `gorm:"primaryKey"`
	ProductID  uint `gorm:"uniqueIndex:idx_alert_open,where:is_resolved = false;not null"`
	Product    Product
	Type       AlertType `gorm:"size:30;uniqueIndex:idx_alert_open,where:is_resolved = false;not null"`
	Message    string    `gorm:"size:255"`
	IsRead     bool      `gorm:"not null;default:false"`
	IsResolved bool      `gorm:"index;not null;default:false"`
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

type AlertSettings struct {
	ID                        uint `gorm:"primaryKey"`
	UserID                    uint `gorm:"uniqueIndex;not null"`
	EmailNotificationsEnabled bool
	NotificationEmail         string `gorm:"size:150"`
	GlobalLowStockThreshold   int    `gorm:"not null"`
	NotifyOnLowStock          bool   `gorm:"not null"`
	NotifyOnOutOfStock        bool   `gorm:"not null"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}
