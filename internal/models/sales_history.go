package models

import "time"

type SalesHistory struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"index;not null"`
	Quantity  int  `gorm:"not null"`
	SaleDate  time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// Month returns the YYYY-MM bucket of the sale.
func (s SalesHistory) Month() string {
	return s.SaleDate.Format("2006-01")
}
