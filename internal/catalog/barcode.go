package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stocksense-backend/internal/models"

	"gorm.io/gorm"
)

const barcodePrefix = "STOCK:"

// BarcodeData is the payload encoded on product labels.
func BarcodeData(productID uint) string {
	return barcodePrefix + strconv.FormatUint(uint64(productID), 10)
}

func (s *Service) Barcode(ctx context.Context, productID uint) (*BarcodeResponse, error) {
	p, err := loadProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	return &BarcodeResponse{
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		BarcodeData: BarcodeData(p.ID),
	}, nil
}

// LookupBarcode resolves "STOCK:<id>" codes by id and anything else by SKU.
// An unknown code is reported with Found=false rather than an error.
func (s *Service) LookupBarcode(ctx context.Context, code string) (*ScanResult, error) {
	code = strings.TrimSpace(code)
	db := s.db.WithContext(ctx)

	q := db.Where("sku = ?", code)
	if rest, ok := strings.CutPrefix(code, barcodePrefix); ok {
		if id, err := strconv.ParseUint(rest, 10, 64); err == nil {
			q = db.Where("id = ?", id)
		}
	}

	var p models.Product
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ScanResult{Message: fmt.Sprintf("No product found for barcode: %s", code)}, nil
		}
		return nil, fmt.Errorf("lookup barcode %q: %w", code, err)
	}

	res := &ScanResult{
		Found:       true,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		StockCount:  p.StockCount,
		Price:       &p.Price,
		Message:     "Product found",
	}

	var stock models.WarehouseStock
	err := db.Preload("Warehouse").Where("product_id = ?", p.ID).Order("id").First(&stock).Error
	switch {
	case err == nil:
		loc := stock.Location
		if loc == "" {
			loc = stock.Warehouse.Name
		}
		res.WarehouseLocation = &loc
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup location for product %d: %w", p.ID, err)
	}
	return res, nil
}
