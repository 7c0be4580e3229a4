package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/ledger"
	"stocksense-backend/internal/metrics"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns warehouses, their stock rows and the transfers between them.
// Every mutation runs in one transaction; notifications go out after commit.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	notifier     notify.Notifier
	metrics      *metrics.Metrics
	reorderLevel int
	now          func() time.Time
}

type Option func(*Service)

func WithDefaultReorderLevel(level int) Option {
	return func(s *Service) { s.reorderLevel = level }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, log *zap.Logger, notifier notify.Notifier, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		db:           db,
		log:          log,
		notifier:     notifier,
		metrics:      m,
		reorderLevel: models.DefaultReorderLevel,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ledger(tx *gorm.DB) *ledger.Ledger {
	return ledger.New(tx, ledger.WithDefaultReorderLevel(s.reorderLevel), ledger.WithClock(s.now))
}

func (s *Service) publish(ctx context.Context, events []notify.Event) {
	for _, ev := range events {
		s.notifier.Notify(ctx, ev)
	}
}

func (in WarehouseInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if len(in.Code) > 20 {
		return apperr.Validation("code must be at most 20 characters")
	}
	return nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]WarehouseResponse, error) {
	var whs []models.Warehouse
	if err := s.db.WithContext(ctx).Preload("Stocks").Order("is_primary DESC, name").Find(&whs).Error; err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	resp := make([]WarehouseResponse, 0, len(whs))
	for _, w := range whs {
		resp = append(resp, toWarehouseResponse(w))
	}
	return resp, nil
}

func (s *Service) GetWarehouse(ctx context.Context, id uint) (*WarehouseResponse, error) {
	w, err := loadWarehouse(ctx, s.db.Preload("Stocks"), id, "Warehouse not found")
	if err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(*w)
	return &resp, nil
}

func (s *Service) CreateWarehouse(ctx context.Context, actor Actor, in WarehouseInput) (*WarehouseResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	w := models.Warehouse{IsActive: true}
	applyWarehouse(&w, in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if w.IsPrimary {
			if err := unsetPrimary(tx, 0); err != nil {
				return err
			}
		}
		if err := tx.Create(&w).Error; err != nil {
			return fmt.Errorf("create warehouse: %w", err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "warehouse",
			EntityID:    w.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Warehouse %s created", w.Name),
			After:       toWarehouseResponse(w),
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(w)
	return &resp, nil
}

func (s *Service) UpdateWarehouse(ctx context.Context, actor Actor, id uint, in WarehouseInput) (*WarehouseResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out models.Warehouse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := loadWarehouse(ctx, tx.Preload("Stocks"), id, "Warehouse not found")
		if err != nil {
			return err
		}
		before := toWarehouseResponse(*w)

		if in.IsPrimary && !w.IsPrimary {
			if err := unsetPrimary(tx, id); err != nil {
				return err
			}
		}
		applyWarehouse(w, in)
		if err := tx.Model(w).Select("name", "code", "address", "city", "country", "contact_phone", "manager_name", "is_active", "is_primary").
			Updates(w).Error; err != nil {
			return fmt.Errorf("update warehouse %d: %w", id, err)
		}
		out = *w
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "warehouse",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Warehouse %s updated", w.Name),
			Before:      before,
			After:       toWarehouseResponse(*w),
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(out)
	return &resp, nil
}

// DeleteWarehouse refuses while the warehouse still holds stock or has transfers in flight.
func (s *Service) DeleteWarehouse(ctx context.Context, actor Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := loadWarehouse(ctx, tx, id, "Warehouse not found")
		if err != nil {
			return err
		}

		var held int64
		if err := tx.Model(&models.WarehouseStock{}).Where("warehouse_id = ? AND quantity > 0", id).Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return apperr.Validation("Warehouse still holds stock")
		}

		var inFlight int64
		if err := tx.Model(&models.StockTransfer{}).
			Where("(source_warehouse_id = ? OR destination_warehouse_id = ?) AND status IN ?", id, id,
				[]models.TransferStatus{models.TransferPending, models.TransferInTransit}).
			Count(&inFlight).Error; err != nil {
			return err
		}
		if inFlight > 0 {
			return apperr.Validation("Warehouse has transfers in transit")
		}

		var history int64
		if err := tx.Model(&models.StockTransfer{}).
			Where("source_warehouse_id = ? OR destination_warehouse_id = ?", id, id).
			Count(&history).Error; err != nil {
			return err
		}
		if history > 0 {
			return apperr.New(apperr.ErrConflict, "Warehouse has transfer history; deactivate it instead")
		}

		if err := tx.Where("warehouse_id = ?", id).Delete(&models.WarehouseStock{}).Error; err != nil {
			return fmt.Errorf("delete stock rows of warehouse %d: %w", id, err)
		}
		if err := tx.Delete(&models.Warehouse{}, id).Error; err != nil {
			return fmt.Errorf("delete warehouse %d: %w", id, err)
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "warehouse",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Warehouse %s deleted", w.Name),
			Before:      toWarehouseResponse(*w),
		})
	})
}

func (s *Service) GetWarehouseStock(ctx context.Context, warehouseID uint) ([]StockResponse, error) {
	if _, err := loadWarehouse(ctx, s.db, warehouseID, "Warehouse not found"); err != nil {
		return nil, err
	}
	return s.listStock(ctx, "warehouse_id = ?", warehouseID)
}

func (s *Service) GetProductStockAcrossWarehouses(ctx context.Context, productID uint) ([]StockResponse, error) {
	if _, err := loadProduct(ctx, s.db, productID); err != nil {
		return nil, err
	}
	return s.listStock(ctx, "product_id = ?", productID)
}

func (s *Service) listStock(ctx context.Context, cond string, arg uint) ([]StockResponse, error) {
	var rows []models.WarehouseStock
	if err := s.db.WithContext(ctx).Preload("Warehouse").Preload("Product").
		Where(cond, arg).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	resp := make([]StockResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, toStockResponse(r))
	}
	return resp, nil
}

// SetStock records a direct stock count for one product at a warehouse.
func (s *Service) SetStock(ctx context.Context, actor Actor, warehouseID uint, in StockInput) (*StockResponse, error) {
	if in.ProductID == 0 {
		return nil, apperr.Validation("product_id is required")
	}

	var (
		out    models.WarehouseStock
		events []notify.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := loadWarehouse(ctx, tx, warehouseID, "Warehouse not found")
		if err != nil {
			return err
		}
		p, err := loadProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}

		l := s.ledger(tx)
		before, err := l.GetOrCreate(ctx, warehouseID, in.ProductID)
		if err != nil {
			return err
		}
		after, err := l.Set(ctx, ledger.SetInput{
			WarehouseID:  warehouseID,
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			ReorderLevel: in.ReorderLevel,
			Location:     in.Location,
		})
		if err != nil {
			return err
		}

		if err := audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "warehouse_stock",
			EntityID:    after.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s at %s set to %d", p.Name, w.Name, after.Quantity),
			Before:      before,
			After:       after,
		}); err != nil {
			return err
		}

		after.Warehouse = *w
		after.Product = *p
		out = *after
		if before.Quantity != after.Quantity {
			events = stockEvents(p, warehouseID, before.Quantity, after.Quantity, after.ReorderLevel, "stock_set")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	resp := toStockResponse(out)
	return &resp, nil
}

func stockEvents(p *models.Product, warehouseID uint, oldQty, newQty, reorderLevel int, reason string) []notify.Event {
	now := time.Now().UTC()
	wid := warehouseID
	events := []notify.Event{notify.NewEvent(models.EventStockUpdated, notify.StockUpdated{
		Type:        "stock_updated",
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		WarehouseID: &wid,
		OldStock:    oldQty,
		NewStock:    newQty,
		Reason:      reason,
		Timestamp:   now,
	})}
	if notify.ThresholdCrossed(oldQty, newQty, reorderLevel) {
		events = append(events, notify.NewEvent(models.EventLowStockAlert, notify.LowStockAlert{
			Type:         "low_stock_alert",
			ProductID:    p.ID,
			ProductName:  p.Name,
			SKU:          p.SKU,
			CurrentStock: newQty,
			ReorderLevel: reorderLevel,
			Timestamp:    now,
		}))
	}
	return events
}

func unsetPrimary(tx *gorm.DB, exceptID uint) error {
	q := tx.Model(&models.Warehouse{}).Where("is_primary = ?", true)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("unset primary warehouse: %w", err)
	}
	return nil
}

func applyWarehouse(w *models.Warehouse, in WarehouseInput) {
	w.Name = strings.TrimSpace(in.Name)
	w.Code = strings.TrimSpace(in.Code)
	w.Address = in.Address
	w.City = in.City
	w.Country = in.Country
	w.ContactPhone = in.ContactPhone
	w.ManagerName = in.ManagerName
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	}
	w.IsPrimary = in.IsPrimary
}

func loadWarehouse(ctx context.Context, db *gorm.DB, id uint, notFound string) (*models.Warehouse, error) {
	var w models.Warehouse
	if err := db.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(notFound)
		}
		return nil, fmt.Errorf("load warehouse %d: %w", id, err)
	}
	return &w, nil
}

func loadProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &p, nil
}
