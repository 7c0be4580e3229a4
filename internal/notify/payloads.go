package notify

import (
	"time"

	"stocksense-backend/internal/models"
)

type StockUpdated struct {
	Type        string    `json:"type"`
	ProductID   uint      `json:"productId"`
	ProductName string    `json:"productName"`
	SKU         *string   `json:"sku"`
	WarehouseID *uint     `json:"warehouseId,omitempty"`
	OldStock    int       `json:"oldStock"`
	NewStock    int       `json:"newStock"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type LowStockAlert struct {
	Type         string    `json:"type"`
	ProductID    uint      `json:"productId"`
	ProductName  string    `json:"productName"`
	SKU          *string   `json:"sku"`
	CurrentStock int       `json:"currentStock"`
	ReorderLevel int       `json:"reorderLevel"`
	AlertType    string    `json:"alertType,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type OrderEvent struct {
	Type            string    `json:"type"`
	OrderID         uint      `json:"orderId"`
	ExternalOrderID string    `json:"externalOrderId"`
	Platform        string    `json:"platform"`
	Status          string    `json:"status"`
	TotalAmount     string    `json:"totalAmount"`
	ItemCount       int       `json:"itemCount"`
	Timestamp       time.Time `json:"timestamp"`
}

type ShipmentEvent struct {
	Type       string    `json:"type"`
	ShipmentID uint      `json:"shipmentId"`
	ProductID  uint      `json:"productId"`
	Quantity   int       `json:"quantity"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Timestamp  time.Time `json:"timestamp"`
}

type ProductEvent struct {
	Type        string    `json:"type"`
	ProductID   uint      `json:"productId"`
	ProductName string    `json:"productName"`
	SKU         *string   `json:"sku"`
	Price       string    `json:"price"`
	StockCount  int       `json:"stockCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// ThresholdCrossed reports a drop from above the reorder level to at or below it.
func ThresholdCrossed(oldStock, newStock, reorderLevel int) bool {
	return oldStock > reorderLevel && newStock <= reorderLevel
}

// CentralStockEvents describes a change to a product's central stock: a StockUpdated event,
// plus LowStockAlert when the change crossed the reorder level.
func CentralStockEvents(p *models.Product, oldQty int, reason string) []Event {
	now := time.Now().UTC()
	events := []Event{NewEvent(models.EventStockUpdated, StockUpdated{
		Type:        "stock_updated",
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		OldStock:    oldQty,
		NewStock:    p.StockCount,
		Reason:      reason,
		Timestamp:   now,
	})}
	if ThresholdCrossed(oldQty, p.StockCount, p.ReorderLevel) {
		events = append(events, NewEvent(models.EventLowStockAlert, LowStockAlert{
			Type:         "low_stock_alert",
			ProductID:    p.ID,
			ProductName:  p.Name,
			SKU:          p.SKU,
			CurrentStock: p.StockCount,
			ReorderLevel: p.ReorderLevel,
			Timestamp:    now,
		}))
	}
	return events
}
