package warehouse

import (
	"time"

	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"
)

type WarehouseInput struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ContactPhone string `json:"contact_phone"`
	ManagerName  string `json:"manager_name"`
	IsActive     *bool  `json:"is_active"`
	IsPrimary    bool   `json:"is_primary"`
}

type WarehouseResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
	ContactPhone  string `json:"contact_phone"`
	ManagerName   string `json:"manager_name"`
	IsActive      bool   `json:"is_active"`
	IsPrimary     bool   `json:"is_primary"`
	TotalProducts int    `json:"total_products"`
	TotalStock    int    `json:"total_stock"`
}

type StockInput struct {
	ProductID    uint    `json:"product_id"`
	Quantity     int     `json:"quantity"`
	ReorderLevel *int    `json:"reorder_level"`
	Location     *string `json:"location"`
}

type StockResponse struct {
	ID            uint      `json:"id"`
	WarehouseID   uint      `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	ProductID     uint      `json:"product_id"`
	ProductName   string    `json:"product_name"`
	ProductSKU    *string   `json:"product_sku"`
	Quantity      int       `json:"quantity"`
	ReorderLevel  int       `json:"reorder_level"`
	Location      string    `json:"location"`
	IsLowStock    bool      `json:"is_low_stock"`
	LastUpdated   time.Time `json:"last_updated"`
}

type CreateTransferInput struct {
	SourceWarehouseID      uint   `json:"source_warehouse_id"`
	DestinationWarehouseID uint   `json:"destination_warehouse_id"`
	ProductID              uint   `json:"product_id"`
	Quantity               int    `json:"quantity"`
	Notes                  string `json:"notes"`
}

type TransferResponse struct {
	ID                       uint                  `json:"id"`
	SourceWarehouseID        uint                  `json:"source_warehouse_id"`
	SourceWarehouseName      string                `json:"source_warehouse_name"`
	DestinationWarehouseID   uint                  `json:"destination_warehouse_id"`
	DestinationWarehouseName string                `json:"destination_warehouse_name"`
	ProductID                uint                  `json:"product_id"`
	ProductName              string                `json:"product_name"`
	Quantity                 int                   `json:"quantity"`
	Status                   models.TransferStatus `json:"status"`
	Notes                    string                `json:"notes"`
	CreatedAt                time.Time             `json:"created_at"`
	CompletedAt              *time.Time            `json:"completed_at"`
	CancelledAt              *time.Time            `json:"cancelled_at"`
}

type Actor = audit.Actor

func toWarehouseResponse(w models.Warehouse) WarehouseResponse {
	resp := WarehouseResponse{
		ID:           w.ID,
		Name:         w.Name,
		Code:         w.Code,
		Address:      w.Address,
		City:         w.City,
		Country:      w.Country,
		ContactPhone: w.ContactPhone,
		ManagerName:  w.ManagerName,
		IsActive:     w.IsActive,
		IsPrimary:    w.IsPrimary,
	}
	resp.TotalProducts = len(w.Stocks)
	for _, s := range w.Stocks {
		resp.TotalStock += s.Quantity
	}
	return resp
}

func toStockResponse(s models.WarehouseStock) StockResponse {
	return StockResponse{
		ID:            s.ID,
		WarehouseID:   s.WarehouseID,
		WarehouseName: s.Warehouse.Name,
		ProductID:     s.ProductID,
		ProductName:   s.Product.Name,
		ProductSKU:    s.Product.SKU,
		Quantity:      s.Quantity,
		ReorderLevel:  s.ReorderLevel,
		Location:      s.Location,
		IsLowStock:    s.IsLowStock(),
		LastUpdated:   s.LastUpdated,
	}
}

func toTransferResponse(t models.StockTransfer) TransferResponse {
	return TransferResponse{
		ID:                       t.ID,
		SourceWarehouseID:        t.SourceWarehouseID,
		SourceWarehouseName:      t.SourceWarehouse.Name,
		DestinationWarehouseID:   t.DestinationWarehouseID,
		DestinationWarehouseName: t.DestinationWarehouse.Name,
		ProductID:                t.ProductID,
		ProductName:              t.Product.Name,
		Quantity:                 t.Quantity,
		Status:                   t.Status,
		Notes:                    t.Notes,
		CreatedAt:                t.CreatedAt,
		CompletedAt:              t.CompletedAt,
		CancelledAt:              t.CancelledAt,
	}
}
