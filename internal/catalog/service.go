// Package catalog manages products, suppliers and inbound shipments, and serves the
// barcode, report and spreadsheet endpoints built on them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/ledger"
	"stocksense-backend/internal/llm"
	"stocksense-backend/internal/models"
	"stocksense-backend/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	notifier     notify.Notifier
	llm          llm.Client
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

func NewService(db *gorm.DB, log *zap.Logger, notifier notify.Notifier, client llm.Client, opts ...Option) *Service {
	s := &Service{
		db:           db,
		log:          log,
		notifier:     notifier,
		llm:          client,
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

func productEvent(kind models.WebhookEvent, p *models.Product) notify.Event {
	typ := "product_created"
	if kind == models.EventProductUpdated {
		typ = "product_updated"
	}
	return notify.NewEvent(kind, notify.ProductEvent{
		Type:        typ,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Price:       p.Price.StringFixed(2),
		StockCount:  p.StockCount,
		Timestamp:   time.Now().UTC(),
	})
}

func loadProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.WithContext(ctx).Preload("Supplier").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &p, nil
}

func loadSupplier(ctx context.Context, db *gorm.DB, id uint) (*models.Supplier, error) {
	var sup models.Supplier
	if err := db.WithContext(ctx).First(&sup, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Supplier not found")
		}
		return nil, fmt.Errorf("load supplier %d: %w", id, err)
	}
	return &sup, nil
}
