// Package dashboard prints the live holdings table to the terminal.
package dashboard

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"pump-wallet-monitor/internal/features/holdings"

	"github.com/fatih/color"
)

const clearScreen = "\033[H\033[2J"

var (
	bold   = color.New(color.Bold)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
)

// column widths, without the one-space left margin
var widths = []int{17, 15, 15, 15, 11}

// Render clears the screen and prints the table and portfolio summary.
// An empty snapshot prints nothing.
func Render(w io.Writer, snapshot []holdings.Holding, summary holdings.Summary, now time.Time) {
	if len(snapshot) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "\n%s\n", bold.Sprint("📊 Sol Pump Monitor Holdings"))
	fmt.Fprintf(&b, "%s\n\n", cyan.Sprint("Last Update: "+now.Format("2006-01-02 15:04:05")))

	b.WriteString(border("╔", "╦", "╗"))
	b.WriteString(row([]cell{
		{text: "Token", align: center, paint: bold},
		{text: "Amount", align: center, paint: bold},
		{text: "Avg Price", align: center, paint: bold},
		{text: "Price", align: center, paint: bold},
		{text: "Change", align: center, paint: bold},
	}))
	b.WriteString(border("╠", "╬", "╣"))
	for _, h := range snapshot {
		change := h.ChangePercent()
		b.WriteString(row([]cell{
			{text: TruncateAddress(h.Mint, 16), paint: yellow},
			{text: FormatTokenAmount(h.Amount, h.Decimals), align: right},
			{text: FormatSOL(h.AvgPrice()) + " SOL", align: right},
			{text: FormatSOL(h.CurrentPrice) + " SOL", align: right},
			{text: FormatChange(change), align: right, paint: changeColor(change)},
		}))
	}
	b.WriteString(border("╚", "╩", "╝"))

	fmt.Fprintf(&b, "\n%s\n", bold.Sprint("Portfolio Summary:"))
	fmt.Fprintf(&b, "Total Value: %s SOL\n", FormatSOL(summary.TotalValue))
	fmt.Fprintf(&b, "Total Cost:  %s SOL\n", FormatSOL(summary.TotalCost))
	fmt.Fprintf(&b, "Total PnL:   %s SOL (%s)\n",
		FormatSOL(summary.PnL),
		paint(changeColor(summary.PnLPercent), FormatChange(summary.PnLPercent)))

	io.WriteString(w, b.String())
}

type alignment int

const (
	left alignment = iota
	right
	center
)

type cell struct {
	text  string
	align alignment
	paint *color.Color
}

func border(l, mid, r string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("═", w+1)
	}
	return l + strings.Join(parts, mid) + r + "\n"
}

// row pads before coloring so escape codes do not skew the columns.
func row(cells []cell) string {
	var b strings.Builder
	b.WriteString("║")
	for i, c := range cells {
		b.WriteString(" ")
		b.WriteString(paint(c.paint, pad(c.text, widths[i], c.align)))
		b.WriteString("║")
	}
	b.WriteString("\n")
	return b.String()
}

func pad(s string, width int, a alignment) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	gap := width - n
	switch a {
	case right:
		return strings.Repeat(" ", gap) + s
	case center:
		l := gap / 2
		return strings.Repeat(" ", l) + s + strings.Repeat(" ", gap-l)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

func paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

func changeColor(change int) *color.Color {
	switch {
	case change > 0:
		return green
	case change < 0:
		return red
	default:
		return nil
	}
}

// FormatSOL picks 9, 6 or 3 decimals by magnitude so small prices stay readable.
func FormatSOL(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs == 0:
		return "0.000"
	case abs < 0.000001:
		return strconv.FormatFloat(v, 'f', 9, 64)
	case abs < 0.001:
		return strconv.FormatFloat(v, 'f', 6, 64)
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}

// FormatTokenAmount renders raw units as a UI amount with one decimal.
func FormatTokenAmount(raw uint64, decimals int) string {
	return FormatNumberWithCommas(float64(raw)/math.Pow10(decimals), 1)
}

// FormatNumberWithCommas groups the integer part by thousands: 1234567.26 -> 1,234,567.3.
func FormatNumberWithCommas(v float64, decimals int) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 && strings.Trim(s, "0.") != "" {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func FormatChange(change int) string {
	if change > 0 {
		return fmt.Sprintf("+%d%%", change)
	}
	return fmt.Sprintf("%d%%", change)
}

// TruncateAddress keeps addresses within length, ending in "..." when cut.
func TruncateAddress(addr string, length int) string {
	if len(addr) <= length {
		return addr
	}
	if length <= 3 {
		return addr[:length]
	}
	return addr[:length-3] + "..."
}
