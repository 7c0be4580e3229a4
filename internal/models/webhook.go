package models

import "time"

// WebhookEvent is a bit set of subscribable event kinds.
type WebhookEvent uint

const (
	EventOrderCreated WebhookEvent = 1 << iota
	EventOrderUpdated
	EventStockUpdated
	EventProductCreated
	EventProductUpdated
	EventLowStockAlert
	EventShipmentUpdated

	EventNone WebhookEvent = 0
	EventAll               = EventOrderCreated | EventOrderUpdated | EventStockUpdated | EventProductCreated |
		EventProductUpdated | EventLowStockAlert | EventShipmentUpdated
)

var webhookEventNames = []struct {
	Event WebhookEvent
	Name  string
}{
	{EventOrderCreated, "OrderCreated"},
	{EventOrderUpdated, "OrderUpdated"},
	{EventStockUpdated, "StockUpdated"},
	{EventProductCreated, "ProductCreated"},
	{EventProductUpdated, "ProductUpdated"},
	{EventLowStockAlert, "LowStockAlert"},
	{EventShipmentUpdated, "ShipmentUpdated"},
}

// String returns the name of a single event flag, or "" for combined sets.
func (e WebhookEvent) String() string {
	for _, n := range webhookEventNames {
		if n.Event == e {
			return n.Name
		}
	}
	return ""
}

func (e WebhookEvent) Has(flag WebhookEvent) bool {
	return e&flag != 0
}

// Names lists every single flag contained in e.
func (e WebhookEvent) Names() []string {
	names := make([]string, 0, len(webhookEventNames))
	for _, n := range webhookEventNames {
		if e.Has(n.Event) {
			names = append(names, n.Name)
		}
	}
	return names
}

type WebhookConfig struct {
	ID              uint         `gorm:"primaryKey"`
	Name            string       `gorm:"size:100;not null"`
	Description     string       `gorm:"size:255"`
	Platform        string       `gorm:"size:50"` // Shopify, WooCommerce, Magento, Custom
	WebhookURL      string       `gorm:"column:webhook_url;size:500;not null"`
	SecretKey       string       `gorm:"size:255"`
	IsActive        bool         `gorm:"not null;index"`
	EventTypes      WebhookEvent `gorm:"not null"`
	LastTriggeredAt *time.Time
	SuccessCount    int `gorm:"not null;default:0"`
	FailureCount    int `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WebhookLog is one delivery attempt.
type WebhookLog struct {
	ID              uint `gorm:"primaryKey"`
	WebhookConfigID uint `gorm:"index;not null"`
	WebhookConfig   WebhookConfig
	EventID         string `gorm:"size:36;index"`
	EventType       string `gorm:"size:50;not null"`
	Payload         string `gorm:"type:text"`
	Response        string `gorm:"type:text"`
	StatusCode      *int
	IsSuccess       bool
	ErrorMessage    string    `gorm:"size:500"`
	SentAt          time.Time `gorm:"index"`
}
