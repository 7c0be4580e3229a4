package models

import "time"

type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferInTransit TransferStatus = "InTransit"
	TransferCompleted TransferStatus = "Completed"
	TransferCancelled TransferStatus = "Cancelled"
)

// Completed and Cancelled have no outgoing edges.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferPending:   {TransferInTransit, TransferCancelled},
	TransferInTransit: {TransferCompleted, TransferCancelled},
}

func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return len(transferTransitions[s]) == 0
}

type StockTransfer struct {
	ID                     uint `gorm:"primaryKey"`
	SourceWarehouseID      uint `gorm:"index;not null"`
	SourceWarehouse        Warehouse
	DestinationWarehouseID uint `gorm:"index;not null"`
	DestinationWarehouse   Warehouse
	ProductID              uint `gorm:"index;not null"`
	Product                Product
	Quantity               int            `gorm:"not null;check:quantity > 0"`
	Status                 TransferStatus `gorm:"size:20;index;not null"`
	Notes                  string         `gorm:"size:255"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
	CompletedAt            *time.Time
	CancelledAt            *time.Time
}
