package catalog

import (
	"context"
	"fmt"
	"strings"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProductFilter struct {
	Category string
	Search   string
	LowStock bool
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	v := strings.TrimSpace(*sku)
	if v == "" {
		return nil
	}
	return &v
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.SKU = normalizeSKU(in.SKU)
	switch {
	case in.Name == "":
		return apperr.Validation("name is required")
	case in.Price.IsNegative():
		return apperr.Validation("price must not be negative")
	case in.StockCount < 0:
		return apperr.Validation("stock_count must not be negative")
	case in.ReorderLevel != nil && *in.ReorderLevel < 0:
		return apperr.Validation("reorder_level must not be negative")
	case in.LeadTimeDays < 0:
		return apperr.Validation("lead_time_days must not be negative")
	}
	return nil
}

// ensureUniqueSKU fails when another product already carries sku.
func ensureUniqueSKU(ctx context.Context, tx *gorm.DB, sku *string, exceptID uint) error {
	if sku == nil {
		return nil
	}
	var n int64
	q := tx.WithContext(ctx).Model(&models.Product{}).Where("sku = ?", *sku)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if n > 0 {
		return apperr.New(apperr.ErrConflict, fmt.Sprintf("SKU %s is already in use", *sku))
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]ProductResponse, error) {
	q := s.db.WithContext(ctx).Preload("Supplier")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", like, like)
	}
	if f.LowStock {
		q = q.Where("stock_count <= reorder_level")
	}

	var products []models.Product
	if err := q.Order("name, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	return resp, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*ProductResponse, error) {
	p, err := loadProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(*p)
	return &resp, nil
}

func (s *Service) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*ProductResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := models.Product{ReorderLevel: s.reorderLevel, StockCount: in.StockCount}
	applyProduct(&p, in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueSKU(ctx, tx, p.SKU, 0); err != nil {
			return err
		}
		if p.SupplierID != nil {
			sup, err := loadSupplier(ctx, tx, *p.SupplierID)
			if err != nil {
				return err
			}
			p.Supplier = sup
		}
		if err := tx.Omit("Supplier").Create(&p).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product %s created", p.Name),
			After:       toProductResponse(p),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, []notify.Event{productEvent(models.EventProductCreated, &p)})
	resp := toProductResponse(p)
	return &resp, nil
}

// UpdateProduct edits catalog fields. Central stock only moves through AdjustStock and deliveries.
func (s *Service) UpdateProduct(ctx context.Context, actor Actor, id uint, in ProductInput) (*ProductResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var p *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = loadProduct(ctx, tx, id); err != nil {
			return err
		}
		before := toProductResponse(*p)

		if err := ensureUniqueSKU(ctx, tx, in.SKU, id); err != nil {
			return err
		}
		applyProduct(p, in)
		p.Supplier = nil
		if p.SupplierID != nil {
			if p.Supplier, err = loadSupplier(ctx, tx, *p.SupplierID); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
			"name":           p.Name,
			"sku":            p.SKU,
			"price":          p.Price,
			"category":       p.Category,
			"description":    p.Description,
			"reorder_level":  p.ReorderLevel,
			"lead_time_days": p.LeadTimeDays,
			"supplier_id":    p.SupplierID,
			"updated_at":     s.now(),
		}).Error; err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "product",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Product %s updated", p.Name),
			Before:      before,
			After:       toProductResponse(*p),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, []notify.Event{productEvent(models.EventProductUpdated, p)})
	resp := toProductResponse(*p)
	return &resp, nil
}

// DeleteProduct refuses products that already have stock, shipment, transfer, alert or sales history.
func (s *Service) DeleteProduct(ctx context.Context, actor Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProduct(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, ref := range []any{
			&models.WarehouseStock{}, &models.StockTransfer{}, &models.Shipment{},
			&models.StockAlert{}, &models.SalesHistory{}, &models.ExternalOrderItem{},
		} {
			var n int64
			if err := tx.Model(ref).Where("product_id = ?", id).Count(&n).Error; err != nil {
				return fmt.Errorf("check product references: %w", err)
			}
			if n > 0 {
				return apperr.New(apperr.ErrConflict, fmt.Sprintf("%s has stock or order history and cannot be deleted", p.Name))
			}
		}

		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "product",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Product %s deleted", p.Name),
			Before:      toProductResponse(*p),
		})
	})
}

// AdjustStock moves central stock by delta. Debits never take stock below zero.
func (s *Service) AdjustStock(ctx context.Context, actor Actor, id uint, in StockAdjustmentInput) (*ProductResponse, error) {
	if in.Delta == 0 {
		return nil, apperr.Validation("delta must be non-zero")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "manual_adjustment"
	}

	var (
		p      *models.Product
		events []notify.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := loadProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if p, err = s.ledger(tx).AdjustCentral(ctx, id, in.Delta); err != nil {
			return err
		}
		p.Supplier = before.Supplier

		if err := audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "product",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s stock adjusted by %+d (%s)", p.Name, in.Delta, reason),
			Before:      fmt.Sprintf("stock_count=%d", before.StockCount),
			After:       fmt.Sprintf("stock_count=%d", p.StockCount),
		}); err != nil {
			return err
		}
		events = notify.CentralStockEvents(p, before.StockCount, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	resp := toProductResponse(*p)
	return &resp, nil
}

// GenerateDescription asks the LLM for product copy and stores it. A failed generation
// leaves the stored description untouched.
func (s *Service) GenerateDescription(ctx context.Context, id uint) (*DescriptionResponse, error) {
	p, err := loadProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	text := s.llm.GenerateDescription(ctx, p.Name, p.Category)
	if text == "" {
		return &DescriptionResponse{ProductID: p.ID, Description: p.Description}, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]any{"description": text, "updated_at": s.now()}).Error; err != nil {
		return nil, fmt.Errorf("store description for product %d: %w", id, err)
	}
	s.log.Info("product description generated", zap.Uint("product_id", id))
	p.Description = text
	s.publish(ctx, []notify.Event{productEvent(models.EventProductUpdated, p)})
	return &DescriptionResponse{ProductID: p.ID, Description: text, Generated: true}, nil
}

// PredictSales returns 0 when the LLM cannot produce a prediction.
func (s *Service) PredictSales(ctx context.Context, id uint) (*SalesPrediction, error) {
	p, err := loadProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	var history []models.SalesHistory
	if err := s.db.WithContext(ctx).Where("product_id = ?", id).Order("sale_date").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("load sales history for product %d: %w", id, err)
	}
	return &SalesPrediction{
		ProductID:      p.ID,
		ProductName:    p.Name,
		PredictedSales: s.llm.PredictNextMonthSales(ctx, history),
	}, nil
}

func applyProduct(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.SKU = in.SKU
	p.Price = in.Price.Round(2)
	p.Category = in.Category
	p.Description = in.Description
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
	p.LeadTimeDays = in.LeadTimeDays
	p.SupplierID = in.SupplierID
}
