package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Import sheet columns.
const (
	colName = iota
	colSKU
	colCategory
	colPrice
	colStock
	colReorder
)

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors"`
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isHeaderRow(row []string) bool {
	switch strings.ToLower(cellAt(row, colName)) {
	case "name", "product", "product name":
		return true
	}
	return false
}

// parseImportRow turns one sheet row into product input. Empty numeric cells keep defaults.
func parseImportRow(row []string) (ProductInput, bool, error) {
	in := ProductInput{Name: cellAt(row, colName), Category: cellAt(row, colCategory)}
	if sku := cellAt(row, colSKU); sku != "" {
		in.SKU = &sku
	}

	if v := cellAt(row, colPrice); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return in, false, fmt.Errorf("invalid price %q", v)
		}
		in.Price = price
	}
	hasStock := false
	if v := cellAt(row, colStock); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, false, fmt.Errorf("invalid stock %q", v)
		}
		in.StockCount = n
		hasStock = true
	}
	if v := cellAt(row, colReorder); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, false, fmt.Errorf("invalid reorder level %q", v)
		}
		in.ReorderLevel = &n
	}
	return in, hasStock, nil
}

// ImportProducts reads the first sheet of an .xlsx workbook. Rows matching an existing
// SKU update that product's catalog fields; other rows create products with the given
// opening stock. Bad rows are reported and skipped.
func (s *Service) ImportProducts(ctx context.Context, actor Actor, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("file is not a readable .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("sheet could not be read")
	}
	start := 0
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start = 1
	}

	res := &ImportResult{Errors: []ImportRowError{}}
	var events []notify.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := start; i < len(rows); i++ {
			if cellAt(rows[i], colName) == "" && cellAt(rows[i], colSKU) == "" {
				continue
			}
			rowNum := i + 1
			in, hasStock, err := parseImportRow(rows[i])
			if err == nil {
				err = in.validate()
			}
			if err != nil {
				res.Errors = append(res.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
				continue
			}

			var existing models.Product
			found := false
			if in.SKU != nil {
				q := tx.Where("sku = ?", *in.SKU).Limit(1).Find(&existing)
				if q.Error != nil {
					return fmt.Errorf("match sku on row %d: %w", rowNum, q.Error)
				}
				found = q.RowsAffected > 0
			}

			if found {
				updates := map[string]any{
					"name":       in.Name,
					"category":   in.Category,
					"price":      in.Price.Round(2),
					"updated_at": s.now(),
				}
				if in.ReorderLevel != nil {
					updates["reorder_level"] = *in.ReorderLevel
				}
				if err := tx.Model(&models.Product{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
					return fmt.Errorf("update product on row %d: %w", rowNum, err)
				}
				if err := tx.First(&existing, existing.ID).Error; err != nil {
					return fmt.Errorf("reload product on row %d: %w", rowNum, err)
				}
				if hasStock && in.StockCount != existing.StockCount {
					res.Errors = append(res.Errors, ImportRowError{Row: rowNum,
						Message: "stock column ignored for existing products, use a stock adjustment"})
				}
				res.Updated++
				events = append(events, productEvent(models.EventProductUpdated, &existing))
				continue
			}

			p := models.Product{ReorderLevel: s.reorderLevel, StockCount: in.StockCount}
			applyProduct(&p, in)
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("create product on row %d: %w", rowNum, err)
			}
			res.Created++
			events = append(events, productEvent(models.EventProductCreated, &p))
		}

		if res.Created+res.Updated == 0 {
			return nil
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "product",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product import: %d created, %d updated", res.Created, res.Updated),
			After:       res,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("products imported",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)))
	s.publish(ctx, events)
	return res, nil
}
