package integration

import (
	"time"

	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"github.com/shopspring/decimal"
)

type IncomingOrderItem struct {
	ExternalProductID string          `json:"external_product_id"`
	SKU               string          `json:"sku"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

type IncomingOrder struct {
	ExternalOrderID string              `json:"external_order_id"`
	Platform        string              `json:"platform"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Items           []IncomingOrderItem `json:"items"`
}

type OrderItemResponse struct {
	ProductID      *uint           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	SKU            string          `json:"sku"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ProductMatched bool            `json:"product_matched"`
	StockDeducted  bool            `json:"stock_deducted"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	ExternalOrderID string              `json:"external_order_id"`
	Platform        string              `json:"platform"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Status          string              `json:"status"`
	ReceivedAt      time.Time           `json:"received_at"`
	ProcessedAt     *time.Time          `json:"processed_at"`
	ItemCount       int                 `json:"item_count"`
	Items           []OrderItemResponse `json:"items"`
}

type Dashboard struct {
	TotalWebhooks       int64                       `json:"total_webhooks"`
	ActiveWebhooks      int64                       `json:"active_webhooks"`
	TotalOrdersReceived int64                       `json:"total_orders_received"`
	PendingOrders       int64                       `json:"pending_orders"`
	ProcessedToday      int64                       `json:"processed_today"`
	RecentLogs          []notify.WebhookLogResponse `json:"recent_logs"`
}

func toOrderResponse(o models.ExternalOrder) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		ExternalOrderID: o.ExternalOrderID,
		Platform:        o.Platform,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ReceivedAt:      o.ReceivedAt,
		ProcessedAt:     o.ProcessedAt,
		ItemCount:       len(o.Items),
		Items:           make([]OrderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			ProductMatched: it.ProductID != nil,
			StockDeducted:  it.StockDeducted,
		})
	}
	return resp
}
