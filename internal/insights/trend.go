package insights

import (
	"sort"
	"time"

	"stocksense-backend/internal/models"
)

type Direction string

const (
	Rising    Direction = "Rising"
	Stable    Direction = "Stable"
	Declining Direction = "Declining"
)

const forecastMonths = 3

type Trend struct {
	ProductID       uint      `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Trend           Direction `json:"trend"`
	SeasonalPattern string    `json:"seasonal_pattern"`
	PeakSeason      string    `json:"peak_season"`
	Recommendation  string    `json:"recommendation"`
	MonthlyForecast []int     `json:"monthly_forecast"`
}

type monthTotal struct {
	key   string
	month time.Month
	qty   int
}

// monthlyTotals sums sales per YYYY-MM bucket, oldest month first.
func monthlyTotals(history []models.SalesHistory) []monthTotal {
	idx := map[string]int{}
	var out []monthTotal
	for _, h := range history {
		key := h.Month()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, monthTotal{key: key, month: h.SaleDate.Month()})
		}
		out[i].qty += h.Quantity
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func seasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	}
	return "Fall"
}

// TrendAnalysis needs at least three months of sales. With less it forecasts a third of
// current stock per month and reports a stable trend.
func TrendAnalysis(p models.Product, history []models.SalesHistory) Trend {
	t := Trend{
		ProductID:       p.ID,
		ProductName:     p.Name,
		Trend:           Stable,
		SeasonalPattern: "No clear pattern",
		PeakSeason:      "N/A",
		MonthlyForecast: make([]int, forecastMonths),
	}

	months := monthlyTotals(history)
	if len(months) < 3 {
		for i := range t.MonthlyForecast {
			t.MonthlyForecast[i] = p.StockCount / 3
		}
	} else {
		a, b, c := months[len(months)-3].qty, months[len(months)-2].qty, months[len(months)-1].qty
		switch {
		case c > b && b > a:
			t.Trend = Rising
		case c < b && b < a:
			t.Trend = Declining
		}

		var total int
		peak := months[0]
		for _, m := range months {
			total += m.qty
			if m.qty > peak.qty {
				peak = m
			}
		}
		next := total / len(months)
		switch t.Trend {
		case Rising:
			next += 10
		case Declining:
			next -= 5
		}
		for i := range t.MonthlyForecast {
			t.MonthlyForecast[i] = next
		}

		t.PeakSeason = seasonOf(peak.month)
		t.SeasonalPattern = "Peak sales typically occur in " + t.PeakSeason
	}

	switch t.Trend {
	case Rising:
		t.Recommendation = "Consider increasing stock levels to meet growing demand."
	case Declining:
		t.Recommendation = "Review pricing strategy and marketing efforts. Consider promotions."
	default:
		t.Recommendation = "Maintain current inventory and pricing strategy."
	}
	return t
}
