// Package integration receives orders from external sales platforms and debits central
// stock for the items it can match by SKU.
package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/ledger"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	notifier notify.Notifier
	webhooks *notify.Service
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, log *zap.Logger, notifier notify.Notifier, webhooks *notify.Service, opts ...Option) *Service {
	s := &Service{db: db, log: log, notifier: notifier, webhooks: webhooks, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (in *IncomingOrder) validate() error {
	in.ExternalOrderID = strings.TrimSpace(in.ExternalOrderID)
	in.Platform = strings.TrimSpace(in.Platform)
	switch {
	case in.ExternalOrderID == "":
		return apperr.Validation("external_order_id is required")
	case in.Platform == "":
		return apperr.Validation("platform is required")
	case in.TotalAmount.IsNegative():
		return apperr.Validation("total_amount must not be negative")
	case len(in.Items) == 0:
		return apperr.Validation("order has no items")
	}
	for i := range in.Items {
		it := &in.Items[i]
		it.SKU = strings.TrimSpace(it.SKU)
		if it.Quantity <= 0 {
			return apperr.Validation(fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if it.UnitPrice.IsNegative() {
			return apperr.Validation(fmt.Sprintf("item %d: unit_price must not be negative", i+1))
		}
	}
	return nil
}

func orderEvent(kind models.WebhookEvent, o *models.ExternalOrder) notify.Event {
	typ := "ordercreated"
	if kind == models.EventOrderUpdated {
		typ = "orderupdated"
	}
	return notify.NewEvent(kind, notify.OrderEvent{
		Type:            typ,
		OrderID:         o.ID,
		ExternalOrderID: o.ExternalOrderID,
		Platform:        o.Platform,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		ItemCount:       len(o.Items),
		Timestamp:       time.Now().UTC(),
	})
}

// ProcessIncomingOrder stores an order pushed by a platform. Items are matched to products
// by SKU; a matched item debits central stock only when enough is on hand, otherwise it is
// kept with StockDeducted=false. The same platform order id is accepted once.
func (s *Service) ProcessIncomingOrder(ctx context.Context, in IncomingOrder) (*OrderResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	order := models.ExternalOrder{
		ExternalOrderID: in.ExternalOrderID,
		Platform:        in.Platform,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		TotalAmount:     in.TotalAmount.Round(2),
		Status:          models.OrderPending,
		ReceivedAt:      s.now().UTC(),
	}
	var stockEvents []notify.Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&models.ExternalOrder{}).
			Where("platform = ? AND external_order_id = ?", order.Platform, order.ExternalOrderID).
			Count(&dup).Error; err != nil {
			return fmt.Errorf("check duplicate order: %w", err)
		}
		if dup > 0 {
			return apperr.New(apperr.ErrConflict,
				fmt.Sprintf("Order %s from %s was already received", order.ExternalOrderID, order.Platform))
		}

		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		l := ledger.New(tx, ledger.WithClock(s.now))
		reason := fmt.Sprintf("order %s/%s", order.Platform, order.ExternalOrderID)
		for _, it := range in.Items {
			item := models.ExternalOrderItem{
				ExternalOrderID:   order.ID,
				ExternalProductID: it.ExternalProductID,
				SKU:               it.SKU,
				ProductName:       it.ProductName,
				Quantity:          it.Quantity,
				UnitPrice:         it.UnitPrice.Round(2),
			}

			if it.SKU != "" {
				var p models.Product
				res := tx.Where("sku = ?", it.SKU).Limit(1).Find(&p)
				if res.Error != nil {
					return fmt.Errorf("match sku %s: %w", it.SKU, res.Error)
				}
				if res.RowsAffected > 0 {
					item.ProductID = &p.ID
					if item.ProductName == "" {
						item.ProductName = p.Name
					}
					updated, err := l.AdjustCentral(ctx, p.ID, -it.Quantity)
					switch {
					case err == nil:
						item.StockDeducted = true
						stockEvents = append(stockEvents, notify.CentralStockEvents(updated, p.StockCount, reason)...)
					case errors.Is(err, apperr.ErrInsufficientStock):
						s.log.Warn("order item not deducted, insufficient stock",
							zap.String("order", order.ExternalOrderID),
							zap.String("sku", it.SKU),
							zap.Int("requested", it.Quantity),
							zap.Int("available", p.StockCount))
					default:
						return err
					}
				}
			}

			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		return audit.Write(tx, audit.LogOptions{
			UserName:    "integration:" + order.Platform,
			EntityType:  "external_order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Order %s received from %s with %d item(s)", order.ExternalOrderID, order.Platform, len(order.Items)),
			After:       toOrderResponse(order),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("external order received",
		zap.Uint("order_id", order.ID),
		zap.String("platform", order.Platform),
		zap.Int("items", len(order.Items)))
	s.notifier.Notify(ctx, orderEvent(models.EventOrderCreated, &order))
	for _, ev := range stockEvents {
		s.notifier.Notify(ctx, ev)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

// ListOrders returns orders newest first, optionally for one status.
func (s *Service) ListOrders(ctx context.Context, status string) ([]OrderResponse, error) {
	q := s.db.WithContext(ctx).Preload("Items").Order("received_at DESC, id DESC")
	if status != "" {
		st, ok := models.ParseExternalOrderStatus(status)
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown order status %q", status))
		}
		q = q.Where("status = ?", st)
	}

	var orders []models.ExternalOrder
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	return resp, nil
}

func (s *Service) GetOrder(ctx context.Context, id uint) (*OrderResponse, error) {
	o, err := loadOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(*o)
	return &resp, nil
}

// UpdateOrderStatus sets the order status. Processing and Shipped stamp ProcessedAt.
// Stock is not touched.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor audit.Actor, id uint, status string) (*OrderResponse, error) {
	next, ok := models.ParseExternalOrderStatus(status)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown order status %q", status))
	}

	var o *models.ExternalOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = loadOrder(ctx, tx, id); err != nil {
			return err
		}
		from := o.Status

		updates := map[string]any{"status": next}
		if next.MarksProcessed() {
			now := s.now().UTC()
			updates["processed_at"] = now
			o.ProcessedAt = &now
		}
		if err := tx.Model(&models.ExternalOrder{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update order %d: %w", id, err)
		}
		o.Status = next

		action := models.AuditActionUpdate
		if next == models.OrderCancelled {
			action = models.AuditActionCancel
		}
		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "external_order",
			EntityID:    id,
			Action:      action,
			Description: fmt.Sprintf("Order %s moved from %s to %s", o.ExternalOrderID, from, next),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, orderEvent(models.EventOrderUpdated, o))
	resp := toOrderResponse(*o)
	return &resp, nil
}

// Dashboard summarises webhooks and orders. "Today" is the current UTC day.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{}

	if err := db.Model(&models.WebhookConfig{}).Count(&d.TotalWebhooks).Error; err != nil {
		return nil, fmt.Errorf("count webhooks: %w", err)
	}
	if err := db.Model(&models.WebhookConfig{}).Where("is_active = ?", true).Count(&d.ActiveWebhooks).Error; err != nil {
		return nil, fmt.Errorf("count active webhooks: %w", err)
	}
	if err := db.Model(&models.ExternalOrder{}).Count(&d.TotalOrdersReceived).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if err := db.Model(&models.ExternalOrder{}).Where("status = ?", models.OrderPending).Count(&d.PendingOrders).Error; err != nil {
		return nil, fmt.Errorf("count pending orders: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	if err := db.Model(&models.ExternalOrder{}).
		Where("processed_at >= ? AND processed_at < ?", today, today.Add(24*time.Hour)).
		Count(&d.ProcessedToday).Error; err != nil {
		return nil, fmt.Errorf("count processed orders: %w", err)
	}

	logs, err := s.webhooks.Logs(ctx, 0, 10)
	if err != nil {
		return nil, err
	}
	d.RecentLogs = logs
	return d, nil
}

func loadOrder(ctx context.Context, db *gorm.DB, id uint) (*models.ExternalOrder, error) {
	var o models.ExternalOrder
	if err := db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &o, nil
}
