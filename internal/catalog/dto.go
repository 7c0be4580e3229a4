package catalog

import (
	"time"

	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"

	"github.com/shopspring/decimal"
)

type Actor = audit.Actor

type ProductInput struct {
	Name         string          `json:"name"`
	SKU          *string         `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	StockCount   int             `json:"stock_count"` // initial central stock, ignored on update
	ReorderLevel *int            `json:"reorder_level"`
	LeadTimeDays int             `json:"lead_time_days"`
	SupplierID   *uint           `json:"supplier_id"`
}

type ProductResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	SKU          *string         `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	StockCount   int             `json:"stock_count"`
	ReorderLevel int             `json:"reorder_level"`
	LeadTimeDays int             `json:"lead_time_days"`
	SupplierID   *uint           `json:"supplier_id"`
	SupplierName *string         `json:"supplier_name"`
	IsLowStock   bool            `json:"is_low_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type StockAdjustmentInput struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type DescriptionResponse struct {
	ProductID   uint   `json:"product_id"`
	Description string `json:"description"`
	Generated   bool   `json:"generated"`
}

type SalesPrediction struct {
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	PredictedSales int    `json:"predicted_sales"`
}

type SupplierInput struct {
	Name                string `json:"name"`
	ContactEmail        string `json:"contact_email"`
	ContactPhone        string `json:"contact_phone"`
	Address             string `json:"address"`
	AverageLeadTimeDays *int   `json:"average_lead_time_days"`
	IsActive            *bool  `json:"is_active"`
}

type SupplierResponse struct {
	ID                  uint      `json:"id"`
	Name                string    `json:"name"`
	ContactEmail        string    `json:"contact_email"`
	ContactPhone        string    `json:"contact_phone"`
	Address             string    `json:"address"`
	AverageLeadTimeDays int       `json:"average_lead_time_days"`
	IsActive            bool      `json:"is_active"`
	ProductCount        int       `json:"product_count"`
	CreatedAt           time.Time `json:"created_at"`
}

type ShipmentInput struct {
	ProductID       uint      `json:"product_id"`
	SupplierID      uint      `json:"supplier_id"`
	Quantity        int       `json:"quantity"`
	ExpectedArrival time.Time `json:"expected_arrival"`
	TrackingNumber  string    `json:"tracking_number"`
	Notes           string    `json:"notes"`
}

type ShipmentResponse struct {
	ID              uint       `json:"id"`
	ProductID       uint       `json:"product_id"`
	ProductName     string     `json:"product_name"`
	SupplierID      uint       `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	Quantity        int        `json:"quantity"`
	ExpectedArrival time.Time  `json:"expected_arrival"`
	ActualArrival   *time.Time `json:"actual_arrival"`
	Status          string     `json:"status"`
	TrackingNumber  string     `json:"tracking_number"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ScanResult struct {
	Found             bool             `json:"found"`
	ProductID         uint             `json:"product_id,omitempty"`
	ProductName       string           `json:"product_name,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	StockCount        int              `json:"stock_count"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	WarehouseLocation *string          `json:"warehouse_location"`
	Message           string           `json:"message"`
}

type BarcodeResponse struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	SKU         *string `json:"sku"`
	BarcodeData string  `json:"barcode_data"`
}

type ReportSummary struct {
	TotalProducts       int             `json:"total_products"`
	LowStockProducts    int             `json:"low_stock_products"`
	OutOfStockProducts  int             `json:"out_of_stock_products"`
	TotalSuppliers      int64           `json:"total_suppliers"`
	ActiveShipments     int64           `json:"active_shipments"`
	TotalInventoryValue decimal.Decimal `json:"total_inventory_value"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

func toProductResponse(p models.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Price:        p.Price,
		Category:     p.Category,
		Description:  p.Description,
		StockCount:   p.StockCount,
		ReorderLevel: p.ReorderLevel,
		LeadTimeDays: p.LeadTimeDays,
		SupplierID:   p.SupplierID,
		IsLowStock:   p.IsLowStock(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Supplier != nil {
		name := p.Supplier.Name
		resp.SupplierName = &name
	}
	return resp
}

func toSupplierResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:                  s.ID,
		Name:                s.Name,
		ContactEmail:        s.ContactEmail,
		ContactPhone:        s.ContactPhone,
		Address:             s.Address,
		AverageLeadTimeDays: s.AverageLeadTimeDays,
		IsActive:            s.IsActive,
		ProductCount:        len(s.Products),
		CreatedAt:           s.CreatedAt,
	}
}

func toShipmentResponse(s models.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:              s.ID,
		ProductID:       s.ProductID,
		ProductName:     s.Product.Name,
		SupplierID:      s.SupplierID,
		SupplierName:    s.Supplier.Name,
		Quantity:        s.Quantity,
		ExpectedArrival: s.ExpectedArrival,
		ActualArrival:   s.ActualArrival,
		Status:          string(s.Status),
		TrackingNumber:  s.TrackingNumber,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
	}
}
