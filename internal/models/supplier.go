package models

import "time"

type Supplier struct {
	ID                  uint   `gorm:"primaryKey"`
	Name                string `gorm:"size:150;not null"`
	ContactEmail        string `gorm:"size:150"`
	ContactPhone        string `gorm:"size:50"`
	Address             string `gorm:"size:255"`
	AverageLeadTimeDays int    `gorm:"not null"`
	IsActive            bool   `gorm:"not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Products  []Product
	Shipments []Shipment
}
