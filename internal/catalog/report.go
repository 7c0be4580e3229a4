package catalog

import (
	"context"
	"fmt"
	"io"

	"stocksense-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventory"

func stockStatus(p models.Product) string {
	switch {
	case p.StockCount == 0:
		return "OUT OF STOCK"
	case p.IsLowStock():
		return "LOW"
	}
	return "OK"
}

func inventoryValue(products []models.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.StockCount))))
	}
	return total
}

func (s *Service) ReportSummary(ctx context.Context) (*ReportSummary, error) {
	db := s.db.WithContext(ctx)

	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	r := &ReportSummary{
		TotalProducts:       len(products),
		TotalInventoryValue: inventoryValue(products).Round(2),
		GeneratedAt:         s.now().UTC(),
	}
	for _, p := range products {
		switch {
		case p.StockCount == 0:
			r.OutOfStockProducts++
		case p.IsLowStock():
			r.LowStockProducts++
		}
	}

	if err := db.Model(&models.Supplier{}).Count(&r.TotalSuppliers).Error; err != nil {
		return nil, fmt.Errorf("count suppliers: %w", err)
	}
	if err := db.Model(&models.Shipment{}).
		Where("status IN ?", []models.ShipmentStatus{models.ShipmentPending, models.ShipmentInTransit}).
		Count(&r.ActiveShipments).Error; err != nil {
		return nil, fmt.Errorf("count active shipments: %w", err)
	}
	return r, nil
}

// WriteInventoryXLSX writes one row per product followed by a totals row.
func (s *Service) WriteInventoryXLSX(ctx context.Context, w io.Writer) error {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name, id").Find(&products).Error; err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), inventorySheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := []any{"#", "Product", "SKU", "Category", "Stock", "Reorder Level", "Price", "Value", "Status"}
	if err := f.SetSheetRow(inventorySheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(inventorySheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(inventorySheet, "B", "B", 32); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}

	row := 2
	for i, p := range products {
		sku := ""
		if p.SKU != nil {
			sku = *p.SKU
		}
		value := p.Price.Mul(decimal.NewFromInt(int64(p.StockCount)))
		cells := []any{
			i + 1, p.Name, sku, p.Category, p.StockCount, p.ReorderLevel,
			p.Price.InexactFloat64(), value.InexactFloat64(), stockStatus(p),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(inventorySheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	totals := []any{"", "Total", "", "", "", "", "", inventoryValue(products).InexactFloat64(), fmt.Sprintf("%d products", len(products))}
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetSheetRow(inventorySheet, cell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetRowStyle(inventorySheet, row+1, row+1, bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
