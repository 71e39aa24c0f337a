package holdings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mintA = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	mintB = "MintBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

// ui converts whole tokens to raw units at 6 decimals.
func ui(tokens uint64) uint64 { return tokens * 1_000_000 }

func newTestPortfolio() *Portfolio {
	p := NewPortfolio(10_000, 6)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	return p
}

func TestApplyTradeBuysAverageCost(t *testing.T) {
	p := newTestPortfolio()

	h, change := p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})
	assert.Equal(t, ChangeOpened, change)
	assert.InDelta(t, 0.1, h.TotalCost, 1e-12)
	assert.Equal(t, 6, h.Decimals)

	h, change = p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000003})
	assert.Equal(t, ChangeIncreased, change)
	assert.Equal(t, ui(200_000), h.Amount)
	assert.InDelta(t, 0.4, h.TotalCost, 1e-12)
	assert.InDelta(t, 0.000002, h.AvgPrice(), 1e-15)
	assert.InDelta(t, 0.000003, h.CurrentPrice, 1e-15)
	assert.Equal(t, 50, h.ChangePercent())
	assert.InDelta(t, 0.6, h.Value(), 1e-12)
	assert.InDelta(t, 0.2, h.PnL(), 1e-12)
}

func TestApplyTradeSellReducesCostProportionally(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000002})

	h, change := p.ApplyTrade(Trade{Mint: mintA, TokenAmount: ui(25_000), Price: 0.000004})
	assert.Equal(t, ChangeReduced, change)
	assert.Equal(t, ui(75_000), h.Amount)
	assert.InDelta(t, 0.15, h.TotalCost, 1e-12)
	assert.InDelta(t, 0.000002, h.AvgPrice(), 1e-15)
	assert.Equal(t, 100, h.ChangePercent())
}

func TestApplyTradeSellBelowMinimumCloses(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(20_000), Price: 0.000001})
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(1), Price: 0.00001})
	p.MarkAlerted(mintA, DirectionUp)
	require.True(t, p.Alerted(mintA, DirectionUp))

	_, change := p.ApplyTrade(Trade{Mint: mintA, TokenAmount: ui(15_000), Price: 0.000001})
	assert.Equal(t, ChangeClosed, change)
	assert.False(t, p.Holds(mintA))
	assert.False(t, p.Alerted(mintA, DirectionUp))
}

func TestApplyTradeOversellSaturates(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(50_000), Price: 0.000001})

	h, change := p.ApplyTrade(Trade{Mint: mintA, TokenAmount: ui(80_000), Price: 0.000001})
	assert.Equal(t, ChangeClosed, change)
	assert.Zero(t, h.Amount)
	assert.Zero(t, h.TotalCost)
	assert.Zero(t, p.Len())
}

func TestApplyTradeSellUnknownMintIgnored(t *testing.T) {
	p := newTestPortfolio()
	_, change := p.ApplyTrade(Trade{Mint: mintB, TokenAmount: ui(10), Price: 1})
	assert.Equal(t, ChangeIgnored, change)
	assert.Zero(t, p.Len())
}

func TestUpdatePrice(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})

	h, ok := p.UpdatePrice(mintA, 0.000002, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 100, h.ChangePercent())

	_, ok = p.UpdatePrice(mintA, 0, time.Time{})
	assert.False(t, ok)
	got, _ := p.Get(mintA)
	assert.InDelta(t, 0.000002, got.CurrentPrice, 1e-15)

	_, ok = p.UpdatePrice(mintB, 1, time.Time{})
	assert.False(t, ok)
}

func TestUpdatePriceDropsSmallPosition(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(500), Price: 0.000001})
	require.True(t, p.Holds(mintA))

	_, ok := p.UpdatePrice(mintA, 0.000002, time.Time{})
	assert.False(t, ok)
	assert.False(t, p.Holds(mintA))
}

func TestPrune(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(500), Price: 0.000001})
	p.ApplyTrade(Trade{Mint: mintB, IsBuy: true, TokenAmount: ui(50_000), Price: 0.000001})

	removed := p.Prune()
	require.Len(t, removed, 1)
	assert.Equal(t, mintA, removed[0].Mint)
	assert.Equal(t, []string{mintB}, p.Mints())
}

func TestSnapshotAndSummary(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})
	p.ApplyTrade(Trade{Mint: mintB, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000004})
	p.UpdatePrice(mintA, 0.000002, time.Time{})
	p.UpdatePrice(mintB, 0.000002, time.Time{})

	snap := p.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, mintA, snap[0].Mint) // equal values, ordered by mint
	assert.InDelta(t, 0.2, snap[0].Value(), 1e-12)

	s := p.Summary()
	assert.InDelta(t, 0.4, s.TotalValue, 1e-12)
	assert.InDelta(t, 0.5, s.TotalCost, 1e-12)
	assert.InDelta(t, -0.1, s.PnL, 1e-12)
	assert.Equal(t, -20, s.PnLPercent)
	assert.Equal(t, s, Summarize(snap))
}

func TestAlertDueOncePerDirection(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})

	_, due := p.AlertDue(mintA, 5)
	assert.False(t, due, "no move yet")

	p.UpdatePrice(mintA, 0.00000106, time.Time{})
	dir, due := p.AlertDue(mintA, 5)
	require.True(t, due)
	assert.Equal(t, DirectionUp, dir)

	// not marked: still due, a failed send is retried on the next change
	_, due = p.AlertDue(mintA, 5)
	assert.True(t, due)

	p.MarkAlerted(mintA, DirectionUp)
	p.UpdatePrice(mintA, 0.000002, time.Time{})
	_, due = p.AlertDue(mintA, 5)
	assert.False(t, due)

	p.UpdatePrice(mintA, 0.0000009, time.Time{})
	dir, due = p.AlertDue(mintA, 5)
	require.True(t, due)
	assert.Equal(t, DirectionDown, dir)
	p.MarkAlerted(mintA, DirectionDown)

	p.UpdatePrice(mintA, 0.0000008, time.Time{})
	_, due = p.AlertDue(mintA, 5)
	assert.False(t, due)
}

func TestAlertDueOscillationAlertsEachDirectionOnce(t *testing.T) {
	p := newTestPortfolio()
	p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})

	sent := 0
	for _, price := range []float64{0.000002, 0.0000005, 0.000002, 0.0000005, 0.000002} {
		p.UpdatePrice(mintA, price, time.Time{})
		if dir, due := p.AlertDue(mintA, 5); due {
			p.MarkAlerted(mintA, dir)
			sent++
		}
	}
	assert.Equal(t, 2, sent)
	assert.True(t, p.Alerted(mintA, DirectionUp))
	assert.True(t, p.Alerted(mintA, DirectionDown))

	p.ApplyTrade(Trade{Mint: mintA, TokenAmount: ui(100_000), Price: 0.000002})
	assert.False(t, p.Alerted(mintA, DirectionUp))
	assert.False(t, p.Alerted(mintA, DirectionDown))
}

func TestAlertDueComparesUntruncatedMove(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		threshold float64
		due       bool
	}{
		{"just above five", 0.0000010501, 5, true},
		{"five point nine", 0.00000105900, 5, true},
		{"below fractional threshold", 0.00000105400, 5.5, false},
		{"above fractional threshold", 0.00000105600, 5.5, true},
		{"exactly at threshold", 0.00000105, 5, false},
		{"down just past five", 0.0000009490, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortfolio()
			p.ApplyTrade(Trade{Mint: mintA, IsBuy: true, TokenAmount: ui(100_000), Price: 0.000001})
			p.UpdatePrice(mintA, tt.price, time.Time{})
			_, due := p.AlertDue(mintA, tt.threshold)
			assert.Equal(t, tt.due, due)
		})
	}

	p := newTestPortfolio()
	_, due := p.AlertDue(mintB, 5)
	assert.False(t, due)
}

func TestMarkAlertedIgnoresUnknownMint(t *testing.T) {
	p := newTestPortfolio()
	p.MarkAlerted(mintB, DirectionUp)
	assert.False(t, p.Alerted(mintB, DirectionUp))
}

func TestChangeAndDirectionStrings(t *testing.T) {
	assert.Equal(t, "closed", ChangeClosed.String())
	assert.Equal(t, "ignored", Change(99).String())
	assert.Equal(t, "down", DirectionDown.String())
}
