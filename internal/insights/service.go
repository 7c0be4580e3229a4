package insights

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Report struct {
	PriceOptimizations []PriceSuggestion `json:"price_optimizations"`
	Anomalies          []Anomaly         `json:"anomalies"`
	OverallSummary     string            `json:"overall_summary"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

func (s *Service) loadProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &p, nil
}

func (s *Service) PriceFor(ctx context.Context, productID uint) (PriceSuggestion, error) {
	p, err := s.loadProduct(ctx, productID)
	if err != nil {
		return PriceSuggestion{}, err
	}
	return PriceOptimization(*p), nil
}

// Prices lists suggestions that change the price, largest relative change first.
func (s *Service) Prices(ctx context.Context) ([]PriceSuggestion, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make([]PriceSuggestion, 0, len(products))
	for _, p := range products {
		if sug := PriceOptimization(p); !sug.PriceChange.IsZero() {
			out = append(out, sug)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceChangePercent.Abs().GreaterThan(out[j].PriceChangePercent.Abs())
	})
	return out, nil
}

func (s *Service) Anomalies(ctx context.Context) ([]Anomaly, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var products []models.Product
	if err := db.Preload("Supplier").Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var overdue []models.Shipment
	if err := db.Preload("Product").
		Where("status = ? AND expected_arrival < ?", models.ShipmentPending, now.AddDate(0, 0, -1)).
		Order("expected_arrival, id").
		Find(&overdue).Error; err != nil {
		return nil, fmt.Errorf("list overdue shipments: %w", err)
	}
	return AnomalyScan(products, overdue, now), nil
}

func (s *Service) Trend(ctx context.Context, productID uint) (Trend, error) {
	p, err := s.loadProduct(ctx, productID)
	if err != nil {
		return Trend{}, err
	}
	var history []models.SalesHistory
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sale_date").
		Find(&history).Error; err != nil {
		return Trend{}, fmt.Errorf("load sales history for product %d: %w", productID, err)
	}
	return TrendAnalysis(*p, history), nil
}

func (s *Service) Report(ctx context.Context) (*Report, error) {
	prices, err := s.Prices(ctx)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.Anomalies(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debug("insights generated", zap.Int("prices", len(prices)), zap.Int("anomalies", len(anomalies)))
	return &Report{
		PriceOptimizations: prices,
		Anomalies:          anomalies,
		OverallSummary:     OverallSummary(prices, anomalies),
		GeneratedAt:        s.now().UTC(),
	}, nil
}
