package warehouse

import (
	"context"
	"errors"
	"fmt"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Transfers move stock in two steps. Creation debits the source and leaves the
// quantity in flight on an InTransit transfer; completion credits the destination,
// cancellation re-credits the source. Each transfer settles exactly once.

type TransferFilter struct {
	Status      models.TransferStatus
	WarehouseID uint
	ProductID   uint
}

func (in CreateTransferInput) validate() error {
	switch {
	case in.Quantity <= 0:
		return apperr.Validation("quantity must be greater than 0")
	case in.SourceWarehouseID == 0 || in.DestinationWarehouseID == 0:
		return apperr.Validation("source_warehouse_id and destination_warehouse_id are required")
	case in.ProductID == 0:
		return apperr.Validation("product_id is required")
	case in.SourceWarehouseID == in.DestinationWarehouseID:
		return apperr.Validation("source and destination warehouses must differ")
	}
	return nil
}

func (s *Service) CreateTransfer(ctx context.Context, actor Actor, in CreateTransferInput) (*TransferResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		out    models.StockTransfer
		events []notify.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := loadWarehouse(ctx, tx, in.SourceWarehouseID, "Source warehouse not found")
		if err != nil {
			return err
		}
		dst, err := loadWarehouse(ctx, tx, in.DestinationWarehouseID, "Destination warehouse not found")
		if err != nil {
			return err
		}
		p, err := loadProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}

		stock, err := s.ledger(tx).Adjust(ctx, src.ID, p.ID, -in.Quantity)
		if err != nil {
			if errors.Is(err, apperr.ErrInsufficientStock) {
				return apperr.Insufficient("Insufficient stock in source warehouse")
			}
			return err
		}

		t := models.StockTransfer{
			SourceWarehouseID:      src.ID,
			DestinationWarehouseID: dst.ID,
			ProductID:              p.ID,
			Quantity:               in.Quantity,
			Status:                 models.TransferInTransit,
			Notes:                  in.Notes,
		}
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}

		if err := audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "stock_transfer",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%d x %s from %s to %s", t.Quantity, p.Name, src.Name, dst.Name),
			After:       t,
		}); err != nil {
			return err
		}

		t.SourceWarehouse, t.DestinationWarehouse, t.Product = *src, *dst, *p
		out = t
		events = stockEvents(p, src.ID, stock.Quantity+in.Quantity, stock.Quantity, stock.ReorderLevel, "transfer_out")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TransferStatus(string(models.TransferInTransit))
	s.log.Info("transfer created",
		zap.Uint("transfer_id", out.ID),
		zap.Uint("source", out.SourceWarehouseID),
		zap.Uint("destination", out.DestinationWarehouseID),
		zap.Uint("product_id", out.ProductID),
		zap.Int("quantity", out.Quantity),
	)
	s.publish(ctx, events)

	resp := toTransferResponse(out)
	return &resp, nil
}

// CompleteTransfer credits the destination. Only an InTransit transfer can complete.
func (s *Service) CompleteTransfer(ctx context.Context, actor Actor, id uint) (*TransferResponse, error) {
	return s.settle(ctx, actor, id, models.TransferCompleted)
}

// CancelTransfer returns the in-flight quantity to the source.
func (s *Service) CancelTransfer(ctx context.Context, actor Actor, id uint) (*TransferResponse, error) {
	return s.settle(ctx, actor, id, models.TransferCancelled)
}

func (s *Service) settle(ctx context.Context, actor Actor, id uint, next models.TransferStatus) (*TransferResponse, error) {
	var (
		out    models.StockTransfer
		events []notify.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		from := t.Status
		if !from.CanTransitionTo(next) {
			return apperr.New(apperr.ErrInvalidTransition,
				fmt.Sprintf("Transfer is %s and cannot be %s", from, next))
		}

		now := s.now()
		updates := map[string]any{"status": next}
		if next == models.TransferCompleted {
			updates["completed_at"] = now
		} else {
			updates["cancelled_at"] = now
		}
		// the status guard makes a concurrent second settle match no row
		res := tx.Model(&models.StockTransfer{}).Where("id = ? AND status = ?", id, from).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update transfer %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.ErrInvalidTransition, "Transfer was settled concurrently")
		}

		// a Pending transfer never debited its source, so there is nothing to move
		if from == models.TransferInTransit {
			target, reason := t.DestinationWarehouseID, "transfer_in"
			if next == models.TransferCancelled {
				target, reason = t.SourceWarehouseID, "transfer_cancelled"
			}
			stock, err := s.ledger(tx).Adjust(ctx, target, t.ProductID, t.Quantity)
			if err != nil {
				return err
			}
			events = stockEvents(&t.Product, target, stock.Quantity-t.Quantity, stock.Quantity, stock.ReorderLevel, reason)
		}

		action := models.AuditActionComplete
		if next == models.TransferCancelled {
			action = models.AuditActionCancel
		}
		before := *t
		t.Status = next
		if next == models.TransferCompleted {
			t.CompletedAt = &now
		} else {
			t.CancelledAt = &now
		}
		if err := audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "stock_transfer",
			EntityID:    t.ID,
			Action:      action,
			Description: fmt.Sprintf("Transfer %d %s", t.ID, next),
			Before:      before.Status,
			After:       t.Status,
		}); err != nil {
			return err
		}

		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TransferStatus(string(next))
	s.log.Info("transfer settled", zap.Uint("transfer_id", id), zap.String("status", string(next)))
	s.publish(ctx, events)

	resp := toTransferResponse(out)
	return &resp, nil
}

func (s *Service) GetTransfer(ctx context.Context, id uint) (*TransferResponse, error) {
	t, err := loadTransfer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toTransferResponse(*t)
	return &resp, nil
}

// ListTransfers returns transfers newest first.
func (s *Service) ListTransfers(ctx context.Context, f TransferFilter) ([]TransferResponse, error) {
	q := withTransferRefs(s.db.WithContext(ctx))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.WarehouseID != 0 {
		q = q.Where("(source_warehouse_id = ? OR destination_warehouse_id = ?)", f.WarehouseID, f.WarehouseID)
	}
	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}
	return findTransfers(q.Order("created_at DESC, id DESC"))
}

// ListPendingTransfers returns unsettled transfers oldest first.
func (s *Service) ListPendingTransfers(ctx context.Context) ([]TransferResponse, error) {
	q := withTransferRefs(s.db.WithContext(ctx)).
		Where("status IN ?", []models.TransferStatus{models.TransferPending, models.TransferInTransit}).
		Order("created_at, id")
	return findTransfers(q)
}

func withTransferRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("SourceWarehouse").Preload("DestinationWarehouse").Preload("Product")
}

func findTransfers(q *gorm.DB) ([]TransferResponse, error) {
	var ts []models.StockTransfer
	if err := q.Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	resp := make([]TransferResponse, 0, len(ts))
	for _, t := range ts {
		resp = append(resp, toTransferResponse(t))
	}
	return resp, nil
}

func loadTransfer(ctx context.Context, db *gorm.DB, id uint) (*models.StockTransfer, error) {
	var t models.StockTransfer
	if err := withTransferRefs(db.WithContext(ctx)).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Transfer not found")
		}
		return nil, fmt.Errorf("load transfer %d: %w", id, err)
	}
	return &t, nil
}
