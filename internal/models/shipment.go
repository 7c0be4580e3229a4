package models

import (
	"strings"
	"time"
)

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "Pending"
	ShipmentInTransit ShipmentStatus = "InTransit"
	ShipmentDelivered ShipmentStatus = "Delivered"
	ShipmentDelayed   ShipmentStatus = "Delayed"
	ShipmentCancelled ShipmentStatus = "Cancelled"
)

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentPending:   {ShipmentInTransit, ShipmentDelivered, ShipmentDelayed, ShipmentCancelled},
	ShipmentInTransit: {ShipmentDelivered, ShipmentDelayed, ShipmentCancelled},
	ShipmentDelayed:   {ShipmentInTransit, ShipmentDelivered, ShipmentCancelled},
}

// ParseShipmentStatus is case-insensitive.
func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	for _, st := range []ShipmentStatus{ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentDelayed, ShipmentCancelled} {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ShipmentStatus) IsTerminal() bool {
	return len(shipmentTransitions[s]) == 0
}

// Shipment: inbound delivery from a supplier into central stock
type Shipment struct {
	ID              uint `gorm:"primaryKey"`
	ProductID       uint `gorm:"index;not null"`
	Product         Product
	SupplierID      uint `gorm:"index;not null"`
	Supplier        Supplier
	Quantity        int            `gorm:"not null;check:quantity > 0"`
	ExpectedArrival time.Time      `gorm:"index;not null"`
	ActualArrival   *time.Time
	Status          ShipmentStatus `gorm:"size:20;index;not null;default:Pending"`
	TrackingNumber  string         `gorm:"size:100"`
	Notes           string         `gorm:"size:255"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
