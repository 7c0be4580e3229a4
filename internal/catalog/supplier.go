package catalog

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"

	"gorm.io/gorm"
)

const defaultLeadTimeDays = 7

func (in *SupplierInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.ContactEmail != "" {
		if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
			return apperr.Validation("contact_email is not a valid address")
		}
	}
	if in.AverageLeadTimeDays != nil && *in.AverageLeadTimeDays < 0 {
		return apperr.Validation("average_lead_time_days must not be negative")
	}
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]SupplierResponse, error) {
	var sups []models.Supplier
	if err := s.db.WithContext(ctx).Preload("Products").Order("name, id").Find(&sups).Error; err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	resp := make([]SupplierResponse, 0, len(sups))
	for _, sup := range sups {
		resp = append(resp, toSupplierResponse(sup))
	}
	return resp, nil
}

func (s *Service) GetSupplier(ctx context.Context, id uint) (*SupplierResponse, error) {
	sup, err := loadSupplier(ctx, s.db.Preload("Products"), id)
	if err != nil {
		return nil, err
	}
	resp := toSupplierResponse(*sup)
	return &resp, nil
}

func (s *Service) CreateSupplier(ctx context.Context, actor Actor, in SupplierInput) (*SupplierResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	sup := models.Supplier{AverageLeadTimeDays: defaultLeadTimeDays, IsActive: true}
	applySupplier(&sup, in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sup).Error; err != nil {
			return fmt.Errorf("create supplier: %w", err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "supplier",
			EntityID:    sup.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Supplier %s created", sup.Name),
			After:       toSupplierResponse(sup),
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toSupplierResponse(sup)
	return &resp, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, actor Actor, id uint, in SupplierInput) (*SupplierResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var sup *models.Supplier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sup, err = loadSupplier(ctx, tx.Preload("Products"), id); err != nil {
			return err
		}
		before := toSupplierResponse(*sup)
		applySupplier(sup, in)

		if err := tx.Model(&models.Supplier{}).Where("id = ?", id).Updates(map[string]any{
			"name":                   sup.Name,
			"contact_email":          sup.ContactEmail,
			"contact_phone":          sup.ContactPhone,
			"address":                sup.Address,
			"average_lead_time_days": sup.AverageLeadTimeDays,
			"is_active":              sup.IsActive,
			"updated_at":             s.now(),
		}).Error; err != nil {
			return fmt.Errorf("update supplier %d: %w", id, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "supplier",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Supplier %s updated", sup.Name),
			Before:      before,
			After:       toSupplierResponse(*sup),
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toSupplierResponse(*sup)
	return &resp, nil
}

// DeleteSupplier refuses suppliers that still have products or shipments.
func (s *Service) DeleteSupplier(ctx context.Context, actor Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sup, err := loadSupplier(ctx, tx, id)
		if err != nil {
			return err
		}

		var products, shipments int64
		if err := tx.Model(&models.Product{}).Where("supplier_id = ?", id).Count(&products).Error; err != nil {
			return fmt.Errorf("count supplier products: %w", err)
		}
		if err := tx.Model(&models.Shipment{}).Where("supplier_id = ?", id).Count(&shipments).Error; err != nil {
			return fmt.Errorf("count supplier shipments: %w", err)
		}
		if products > 0 || shipments > 0 {
			return apperr.New(apperr.ErrConflict, fmt.Sprintf("%s still has products or shipments", sup.Name))
		}

		if err := tx.Delete(&models.Supplier{}, id).Error; err != nil {
			return fmt.Errorf("delete supplier %d: %w", id, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "supplier",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Supplier %s deleted", sup.Name),
			Before:      toSupplierResponse(*sup),
		})
	})
}

// SupplierShipments lists a supplier's shipments, newest first.
func (s *Service) SupplierShipments(ctx context.Context, id uint) ([]ShipmentResponse, error) {
	if _, err := loadSupplier(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.listShipments(ctx, s.db.Where("supplier_id = ?", id).Order("created_at DESC, id DESC"))
}

func applySupplier(sup *models.Supplier, in SupplierInput) {
	sup.Name = in.Name
	sup.ContactEmail = in.ContactEmail
	sup.ContactPhone = strings.TrimSpace(in.ContactPhone)
	sup.Address = strings.TrimSpace(in.Address)
	if in.AverageLeadTimeDays != nil {
		sup.AverageLeadTimeDays = *in.AverageLeadTimeDays
	}
	if in.IsActive != nil {
		sup.IsActive = *in.IsActive
	}
}
