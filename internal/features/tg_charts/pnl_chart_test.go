package tg_charts

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"pump-wallet-monitor/internal/features/holdings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countColor(img image.Image, want [3]uint32) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 == want[0] && g>>8 == want[1] && bl>>8 == want[2] {
				n++
			}
		}
	}
	return n
}

func TestRenderPnLChart(t *testing.T) {
	snap := []holdings.Holding{
		{Mint: "66BEASEApHs5LMFoQV8LTEZUavBKNSbgBy3TRpD9pump", Amount: 1_000_000_000, Decimals: 6, TotalCost: 0.1, CurrentPrice: 0.0002},
		{Mint: "MintB", Amount: 20_000_000_000, Decimals: 6, TotalCost: 2, CurrentPrice: 0.00005},
	}
	data, err := RenderPnLChart(snap, holdings.Summarize(snap))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, chartWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())

	assert.Greater(t, countColor(img, [3]uint32{0, 200, 83}), 100, "gain bar")
	assert.Greater(t, countColor(img, [3]uint32{229, 57, 53}), 100, "loss bar")
}

func TestRenderPnLChartEmpty(t *testing.T) {
	_, err := RenderPnLChart(nil, holdings.Summary{})
	assert.ErrorIs(t, err, ErrNoHoldings)
}

func TestShortMint(t *testing.T) {
	assert.Equal(t, "66BE..pump", shortMint("66BEASEApHs5LMFoQV8LTEZUavBKNSbgBy3TRpD9pump"))
	assert.Equal(t, "MintB", shortMint("MintB"))
}
