// Package insights holds the deterministic pricing, anomaly and trend heuristics and the
// service that feeds them from the database.
package insights

import (
	"fmt"
	"sort"
	"time"

	"stocksense-backend/internal/models"

	"github.com/shopspring/decimal"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

const (
	AnomalyStock       = "StockAnomaly"
	AnomalyPrice       = "PriceAnomaly"
	AnomalySupplyChain = "SupplyChainAnomaly"
)

type PriceSuggestion struct {
	ProductID          uint            `json:"product_id"`
	ProductName        string          `json:"product_name"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	SuggestedPrice     decimal.Decimal `json:"suggested_price"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	Reasoning          string          `json:"reasoning"`
	Confidence         Confidence      `json:"confidence"`
}

type Anomaly struct {
	ProductID       uint      `json:"product_id"`
	ProductName     string    `json:"product_name"`
	AnomalyType     string    `json:"anomaly_type"`
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	SuggestedAction string    `json:"suggested_action"`
	DetectedAt      time.Time `json:"detected_at"`
}

var (
	hundred     = decimal.NewFromInt(100)
	maxDiscount = decimal.RequireFromString("0.15")
	stepDown    = decimal.RequireFromString("0.05")
	baseRaise   = decimal.RequireFromString("0.05")
	stepUp      = decimal.RequireFromString("0.1")
	overstocked = decimal.NewFromInt(3)
	understock  = decimal.RequireFromString("0.5")
)

// PriceOptimization suggests a price from the ratio of stock to reorder level.
// Suggested prices are rounded to cents.
func PriceOptimization(p models.Product) PriceSuggestion {
	ratio := decimal.NewFromInt(int64(p.StockCount)).Div(decimal.NewFromInt(int64(max(p.ReorderLevel, 1))))

	s := PriceSuggestion{
		ProductID:      p.ID,
		ProductName:    p.Name,
		CurrentPrice:   p.Price,
		SuggestedPrice: p.Price,
		Confidence:     ConfidenceHigh,
		Reasoning:      "Stock levels are optimal. Current pricing is appropriate.",
	}

	switch {
	case p.StockCount == 0:
		s.Confidence = ConfidenceLow
		s.Reasoning = "Product is out of stock. Maintain current price until restocked."
	case ratio.GreaterThan(overstocked):
		discount := decimal.Min(maxDiscount, ratio.Sub(decimal.NewFromInt(2)).Mul(stepDown))
		s.SuggestedPrice = p.Price.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)
		s.Reasoning = fmt.Sprintf("High stock levels (%d units, %sx reorder level). Consider a %s%% price reduction to accelerate sales.",
			p.StockCount, ratio.StringFixed(1), discount.Mul(hundred).StringFixed(0))
	case ratio.LessThan(understock):
		increase := baseRaise.Add(understock.Sub(ratio).Mul(stepUp))
		s.SuggestedPrice = p.Price.Mul(decimal.NewFromInt(1).Add(increase)).Round(2)
		s.Confidence = ConfidenceMedium
		s.Reasoning = fmt.Sprintf("Low stock (%d units) indicates high demand. Consider a %s%% price increase.",
			p.StockCount, increase.Mul(hundred).StringFixed(0))
	}

	s.PriceChange = s.SuggestedPrice.Sub(p.Price)
	s.PriceChangePercent = decimal.Zero
	if p.Price.IsPositive() {
		s.PriceChangePercent = s.PriceChange.Div(p.Price).Mul(hundred).Round(2)
	}
	return s
}

// AnomalyScan reports stock and price anomalies per product and overdue pending shipments.
// The result is ordered Critical, Warning, Info and keeps input order within a severity.
func AnomalyScan(products []models.Product, shipments []models.Shipment, now time.Time) []Anomaly {
	var out []Anomaly
	add := func(a Anomaly) {
		a.DetectedAt = now
		out = append(out, a)
	}

	for _, p := range products {
		switch {
		case p.StockCount == 0:
			supplier := "supplier"
			if p.Supplier != nil && p.Supplier.Name != "" {
				supplier = p.Supplier.Name
			}
			add(Anomaly{
				ProductID:       p.ID,
				ProductName:     p.Name,
				AnomalyType:     AnomalyStock,
				Severity:        SeverityCritical,
				Description:     fmt.Sprintf("%s is completely out of stock!", p.Name),
				SuggestedAction: fmt.Sprintf("Order at least %d units immediately from %s.", p.ReorderLevel*2, supplier),
			})
		case p.StockCount <= p.ReorderLevel/2:
			add(Anomaly{
				ProductID:       p.ID,
				ProductName:     p.Name,
				AnomalyType:     AnomalyStock,
				Severity:        SeverityWarning,
				Description:     fmt.Sprintf("%s is critically low at %d units (below 50%% of reorder level).", p.Name, p.StockCount),
				SuggestedAction: "Place an urgent restock order.",
			})
		case p.StockCount > p.ReorderLevel*5:
			add(Anomaly{
				ProductID:       p.ID,
				ProductName:     p.Name,
				AnomalyType:     AnomalyStock,
				Severity:        SeverityInfo,
				Description:     fmt.Sprintf("%s is overstocked at %d units (5x reorder level).", p.Name, p.StockCount),
				SuggestedAction: "Consider running a promotion or adjusting future order quantities.",
			})
		}

		if p.Price.LessThan(decimal.NewFromInt(1)) {
			add(Anomaly{
				ProductID:       p.ID,
				ProductName:     p.Name,
				AnomalyType:     AnomalyPrice,
				Severity:        SeverityWarning,
				Description:     fmt.Sprintf("%s has an unusually low price of $%s.", p.Name, p.Price.StringFixed(2)),
				SuggestedAction: "Review pricing to ensure profitability.",
			})
		}
	}

	cutoff := now.AddDate(0, 0, -1)
	for _, s := range shipments {
		if s.Status != models.ShipmentPending || !s.ExpectedArrival.Before(cutoff) {
			continue
		}
		name := s.Product.Name
		if name == "" {
			name = "Unknown"
		}
		add(Anomaly{
			ProductID:       s.ProductID,
			ProductName:     name,
			AnomalyType:     AnomalySupplyChain,
			Severity:        SeverityWarning,
			Description:     fmt.Sprintf("Shipment of %d units is overdue (expected %s).", s.Quantity, s.ExpectedArrival.Format("2006-01-02")),
			SuggestedAction: "Contact supplier for status update.",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity.rank() < out[j].Severity.rank() })
	return out
}

// OverallSummary is a one-line digest of a full insights run.
func OverallSummary(prices []PriceSuggestion, anomalies []Anomaly) string {
	var critical, warning int
	for _, a := range anomalies {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}

	switch {
	case critical > 0:
		return fmt.Sprintf("%d critical issue(s) require immediate attention. %d warnings and %d price optimization suggestions.",
			critical, warning, len(prices))
	case warning > 0:
		return fmt.Sprintf("%d warning(s) detected. %d products have price optimization opportunities.", warning, len(prices))
	case len(prices) > 0:
		return fmt.Sprintf("No major issues. %d price optimization suggestions available.", len(prices))
	}
	return "All systems operating normally. No issues or optimizations to report."
}
