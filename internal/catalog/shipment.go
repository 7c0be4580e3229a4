package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (in *ShipmentInput) validate() error {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	switch {
	case in.ProductID == 0:
		return apperr.Validation("product_id is required")
	case in.SupplierID == 0:
		return apperr.Validation("supplier_id is required")
	case in.Quantity <= 0:
		return apperr.Validation("quantity must be positive")
	case in.ExpectedArrival.IsZero():
		return apperr.Validation("expected_arrival is required")
	}
	return nil
}

func (s *Service) listShipments(ctx context.Context, q *gorm.DB) ([]ShipmentResponse, error) {
	var shipments []models.Shipment
	if err := q.WithContext(ctx).Preload("Product").Preload("Supplier").Find(&shipments).Error; err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	resp := make([]ShipmentResponse, 0, len(shipments))
	for _, sh := range shipments {
		resp = append(resp, toShipmentResponse(sh))
	}
	return resp, nil
}

// ListShipments lists every shipment newest first, optionally narrowed to one status.
func (s *Service) ListShipments(ctx context.Context, status string) ([]ShipmentResponse, error) {
	q := s.db.Order("created_at DESC, id DESC")
	if status != "" {
		st, ok := models.ParseShipmentStatus(status)
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown shipment status %q", status))
		}
		q = q.Where("status = ?", st)
	}
	return s.listShipments(ctx, q)
}

// ListPendingShipments lists shipments still on their way, earliest expected first.
func (s *Service) ListPendingShipments(ctx context.Context) ([]ShipmentResponse, error) {
	return s.listShipments(ctx, s.db.
		Where("status IN ?", []models.ShipmentStatus{models.ShipmentPending, models.ShipmentInTransit}).
		Order("expected_arrival, id"))
}

func (s *Service) GetShipment(ctx context.Context, id uint) (*ShipmentResponse, error) {
	sh, err := loadShipment(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toShipmentResponse(*sh)
	return &resp, nil
}

func (s *Service) CreateShipment(ctx context.Context, actor Actor, in ShipmentInput) (*ShipmentResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var sh models.Shipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		sup, err := loadSupplier(ctx, tx, in.SupplierID)
		if err != nil {
			return err
		}

		sh = models.Shipment{
			ProductID:       p.ID,
			SupplierID:      sup.ID,
			Quantity:        in.Quantity,
			ExpectedArrival: in.ExpectedArrival.UTC(),
			Status:          models.ShipmentPending,
			TrackingNumber:  in.TrackingNumber,
			Notes:           in.Notes,
		}
		if err := tx.Create(&sh).Error; err != nil {
			return fmt.Errorf("create shipment: %w", err)
		}
		sh.Product = *p
		sh.Supplier = *sup

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "shipment",
			EntityID:    sh.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Shipment of %d x %s from %s created", sh.Quantity, p.Name, sup.Name),
			After:       toShipmentResponse(sh),
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toShipmentResponse(sh)
	return &resp, nil
}

// UpdateShipmentStatus moves a shipment along the transition table. Reaching Delivered
// credits central stock by the shipment quantity; the conditional status update makes
// sure that happens at most once.
func (s *Service) UpdateShipmentStatus(ctx context.Context, actor Actor, id uint, status string) (*ShipmentResponse, error) {
	next, ok := models.ParseShipmentStatus(status)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown shipment status %q", status))
	}

	var (
		sh     *models.Shipment
		events []notify.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sh, err = loadShipment(ctx, tx, id); err != nil {
			return err
		}
		from := sh.Status
		if !from.CanTransitionTo(next) {
			return apperr.New(apperr.ErrInvalidTransition,
				fmt.Sprintf("Shipment cannot move from %s to %s", from, next))
		}

		now := s.now()
		updates := map[string]any{"status": next, "updated_at": now}
		if next == models.ShipmentDelivered {
			updates["actual_arrival"] = now
		}
		res := tx.Model(&models.Shipment{}).Where("id = ? AND status = ?", id, from).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update shipment %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.ErrInvalidTransition, "Shipment status changed concurrently")
		}
		sh.Status = next
		if next == models.ShipmentDelivered {
			sh.ActualArrival = &now
		}

		action := models.AuditActionUpdate
		switch next {
		case models.ShipmentDelivered:
			action = models.AuditActionComplete
		case models.ShipmentCancelled:
			action = models.AuditActionCancel
		}
		if err := audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "shipment",
			EntityID:    id,
			Action:      action,
			Description: fmt.Sprintf("Shipment %d moved from %s to %s", id, from, next),
		}); err != nil {
			return err
		}

		events = append(events, notify.NewEvent(models.EventShipmentUpdated, notify.ShipmentEvent{
			Type:       "shipment_updated",
			ShipmentID: id,
			ProductID:  sh.ProductID,
			Quantity:   sh.Quantity,
			OldStatus:  string(from),
			NewStatus:  string(next),
			Timestamp:  now.UTC(),
		}))

		if next != models.ShipmentDelivered {
			return nil
		}
		p, err := s.ledger(tx).AdjustCentral(ctx, sh.ProductID, sh.Quantity)
		if err != nil {
			return err
		}
		sh.Product = *p
		events = append(events, notify.CentralStockEvents(p, p.StockCount-sh.Quantity, "shipment_delivered")...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sh.Status == models.ShipmentDelivered {
		s.log.Info("shipment delivered",
			zap.Uint("shipment_id", id),
			zap.Uint("product_id", sh.ProductID),
			zap.Int("quantity", sh.Quantity))
	}
	s.publish(ctx, events)
	resp := toShipmentResponse(*sh)
	return &resp, nil
}

func (s *Service) MarkDelivered(ctx context.Context, actor Actor, id uint) (*ShipmentResponse, error) {
	return s.UpdateShipmentStatus(ctx, actor, id, string(models.ShipmentDelivered))
}

func (s *Service) CancelShipment(ctx context.Context, actor Actor, id uint) (*ShipmentResponse, error) {
	return s.UpdateShipmentStatus(ctx, actor, id, string(models.ShipmentCancelled))
}

// OverdueShipments lists pending shipments whose expected arrival passed more than a day ago.
func (s *Service) OverdueShipments(ctx context.Context) ([]ShipmentResponse, error) {
	cutoff := s.now().Add(-24 * time.Hour)
	return s.listShipments(ctx, s.db.
		Where("status = ? AND expected_arrival < ?", models.ShipmentPending, cutoff).
		Order("expected_arrival, id"))
}

func loadShipment(ctx context.Context, db *gorm.DB, id uint) (*models.Shipment, error) {
	var sh models.Shipment
	if err := db.WithContext(ctx).Preload("Product").Preload("Supplier").First(&sh, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Shipment not found")
		}
		return nil, fmt.Errorf("load shipment %d: %w", id, err)
	}
	return &sh, nil
}
