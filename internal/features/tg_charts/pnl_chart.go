package tg_charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"pump-wallet-monitor/internal/features/dashboard"
	"pump-wallet-monitor/internal/features/holdings"
	log "pump-wallet-monitor/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	chartAreaLeft   = 140.0
	chartAreaRight  = 1520.0
	chartAreaTop    = 260.0
	chartAreaBottom = 780.0

	maxBars    = 12
	barSpacing = 30.0

	titleFontSize = 44.0
	mainFontSize  = 26.0
	labelFontSize = 20.0

	gridStep = 25.0 // percent
)

var (
	background = color.RGBA{18, 18, 24, 255}
	gridColor  = color.RGBA{70, 70, 80, 255}
	upColor    = color.RGBA{0, 200, 83, 255}
	downColor  = color.RGBA{229, 57, 53, 255}
)

var ErrNoHoldings = errors.New("no holdings to chart")

var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"~/Library/Fonts/Inter-Regular.ttf",
	"/Library/Fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// RenderPnLChart draws one bar per holding (change % against the average
// buy price) under a portfolio summary header and returns the PNG bytes.
// Only the largest holdings by value are drawn.
func RenderPnLChart(snapshot []holdings.Holding, summary holdings.Summary) ([]byte, error) {
	if len(snapshot) == 0 {
		return nil, ErrNoHoldings
	}
	if len(snapshot) > maxBars {
		snapshot = snapshot[:maxBars]
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(background)
	dc.Clear()

	fontPath := findFont()
	setFont := func(size float64) {
		if fontPath != "" {
			dc.LoadFontFace(fontPath, size)
		}
	}

	setFont(titleFontSize)
	dc.SetColor(color.White)
	dc.DrawString("Portfolio PnL", chartAreaLeft, 90)

	setFont(mainFontSize)
	header := fmt.Sprintf("Value %s SOL   Cost %s SOL   PnL %s SOL (%s)",
		dashboard.FormatSOL(summary.TotalValue),
		dashboard.FormatSOL(summary.TotalCost),
		dashboard.FormatSOL(summary.PnL),
		dashboard.FormatChange(summary.PnLPercent))
	dc.SetColor(changeColor(summary.PnLPercent))
	dc.DrawString(header, chartAreaLeft, 150)

	// symmetric axis around zero, rounded up to the grid step
	maxAbs := gridStep
	for _, h := range snapshot {
		maxAbs = math.Max(maxAbs, math.Abs(float64(h.ChangePercent())))
	}
	maxAbs = math.Ceil(maxAbs/gridStep) * gridStep

	zeroY := (chartAreaTop + chartAreaBottom) / 2
	halfHeight := (chartAreaBottom - chartAreaTop) / 2
	yFor := func(pct float64) float64 { return zeroY - pct/maxAbs*halfHeight }

	setFont(labelFontSize)
	dc.SetLineWidth(1)
	for pct := -maxAbs; pct <= maxAbs; pct += gridStep {
		y := yFor(pct)
		dc.SetColor(gridColor)
		dc.DrawLine(chartAreaLeft, y, chartAreaRight, y)
		dc.Stroke()
		dc.SetColor(color.White)
		dc.DrawStringAnchored(fmt.Sprintf("%+.0f%%", pct), chartAreaLeft-15, y, 1, 0.5)
	}

	slot := (chartAreaRight - chartAreaLeft) / float64(len(snapshot))
	barWidth := math.Max(slot-barSpacing, 8)
	for i, h := range snapshot {
		change := h.ChangePercent()
		x := chartAreaLeft + float64(i)*slot + (slot-barWidth)/2
		top, bottom := yFor(float64(change)), zeroY
		if change < 0 {
			top, bottom = zeroY, yFor(float64(change))
		}

		c := changeColor(change)
		dc.SetColor(c)
		dc.DrawRectangle(x, top, barWidth, math.Max(bottom-top, 2))
		dc.Fill()

		dc.SetColor(color.White)
		valueY := top - 12
		if change < 0 {
			valueY = bottom + 24
		}
		dc.DrawStringAnchored(dashboard.FormatChange(change), x+barWidth/2, valueY, 0.5, 0)
		dc.DrawStringAnchored(shortMint(h.Mint), x+barWidth/2, chartAreaBottom+40, 0.5, 0)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode pnl chart: %w", err)
	}

	log.LogInfo("PnL chart rendered",
		zap.Int("bars", len(snapshot)),
		zap.Int("bytes", buf.Len()),
		zap.Bool("custom_font", fontPath != ""))
	return buf.Bytes(), nil
}

func changeColor(change int) color.Color {
	switch {
	case change > 0:
		return upColor
	case change < 0:
		return downColor
	default:
		return color.White
	}
}

func shortMint(mint string) string {
	if len(mint) <= 10 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}

func findFont() string {
	for _, p := range fontPaths {
		if len(p) > 0 && p[0] == '~' {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			p = filepath.Join(home, p[1:])
		}
		if _, err := os.Stat(p); err == nil {
			if _, err := gg.LoadFontFace(p, mainFontSize); err == nil {
				return p
			}
			log.LogWarn("Font file exists but failed to load", zap.String("path", p))
		}
	}
	return ""
}
