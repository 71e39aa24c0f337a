package commands

// Root command: registers monitor, telegram-test and relay.

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pump-wallet-monitor",
	Short: "Sol Pump Monitor - tracks a wallet's pump.fun holdings and alerts on price moves",
	Long: `Sol Pump Monitor watches one Solana wallet's trades on a DEX program, keeps its
holdings with average buy prices, and sends Telegram alerts when a position
moves past the configured threshold.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(telegramTestCmd)
	rootCmd.AddCommand(relayCmd)
}
