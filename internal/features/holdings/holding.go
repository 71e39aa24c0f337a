package holdings

import (
	"math"
	"time"
)

// Holding is one open position. Amount is in raw token units.
type Holding struct {
	Mint         string
	Amount       uint64
	Decimals     int
	TotalCost    float64 // SOL spent on the remaining amount
	CurrentPrice float64 // SOL per UI token
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

func (h Holding) UIAmount() float64 {
	return float64(h.Amount) / math.Pow10(h.Decimals)
}

// AvgPrice is the weighted average buy price in SOL per UI token.
func (h Holding) AvgPrice() float64 {
	ui := h.UIAmount()
	if ui == 0 {
		return 0
	}
	return h.TotalCost / ui
}

// MovePercent is the untruncated move of the current price against the
// average price. Alert thresholds compare against it.
func (h Holding) MovePercent() float64 {
	avg := h.AvgPrice()
	if avg == 0 {
		return 0
	}
	return (h.CurrentPrice - avg) / avg * 100
}

// ChangePercent is the move of the current price against the average price,
// truncated toward zero. Zero when there is no average.
func (h Holding) ChangePercent() int {
	return int(h.MovePercent())
}

func (h Holding) Value() float64 {
	return h.UIAmount() * h.CurrentPrice
}

func (h Holding) PnL() float64 {
	return h.Value() - h.TotalCost
}

// Summary aggregates a whole portfolio.
type Summary struct {
	TotalValue float64
	TotalCost  float64
	PnL        float64
	PnLPercent int
}

func summarize(hs []Holding) Summary {
	var s Summary
	for _, h := range hs {
		s.TotalValue += h.Value()
		s.TotalCost += h.TotalCost
	}
	s.PnL = s.TotalValue - s.TotalCost
	if s.TotalCost > 0 {
		s.PnLPercent = int(s.PnL / s.TotalCost * 100)
	}
	return s
}
