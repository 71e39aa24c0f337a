package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pump-wallet-monitor/internal/features/holdings"
	"pump-wallet-monitor/internal/features/tg_charts"
)

// go run etc/tools/test_chart.go
// in etc/charts/pnl_chart.png
func main() {
	fmt.Println("Generating test chart...")

	p := holdings.NewPortfolio(0, 6)
	p.ApplyTrade(holdings.Trade{Mint: "66BEASEApHs5LMFoQV8LTEZUavBKNSbgBy3TRpD9pump", IsBuy: true, TokenAmount: 2_000_000_000_000, Price: 0.00003})
	p.ApplyTrade(holdings.Trade{Mint: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", IsBuy: true, TokenAmount: 500_000_000_000, Price: 0.0002})
	p.ApplyTrade(holdings.Trade{Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", IsBuy: true, TokenAmount: 80_000_000_000, Price: 0.001})
	p.UpdatePrice("66BEASEApHs5LMFoQV8LTEZUavBKNSbgBy3TRpD9pump", 0.000051, time.Time{})
	p.UpdatePrice("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", 0.00013, time.Time{})
	p.UpdatePrice("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", 0.00105, time.Time{})

	snap := p.Snapshot()
	png, err := tg_charts.RenderPnLChart(snap, holdings.Summarize(snap))
	if err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}

	chartPath := filepath.Join("etc", "charts", "pnl_chart.png")
	if err := os.MkdirAll(filepath.Dir(chartPath), 0755); err != nil {
		fmt.Printf("Error creating chart dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(chartPath, png, 0644); err != nil {
		fmt.Printf("Error writing chart: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart generated successfully: %s\n", chartPath)
	fmt.Println("Open the file to see the result!")
}
