package commands

// Alert relay tools: a broadcast hub, a listener that prints what it
// receives, and a one-shot trade signal sender.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/notify"
	"pump-wallet-monitor/internal/relay"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayURL string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Websocket relay for alerts and trade signals",
}

var relayServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broadcast hub",
	RunE:  runRelayServe,
}

var relayListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print every message the hub relays",
	RunE:  runRelayListen,
}

var relaySendCmd = &cobra.Command{
	Use:   "send <signal> <mint>",
	Short: "Send one trade signal through the hub",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelaySend,
}

func init() {
	relayServeCmd.Flags().String("addr", relay.DefaultAddr, "Listen address")
	relayCmd.PersistentFlags().StringVar(&relayURL, "url", "ws://localhost:9898/", "Hub websocket URL (listen, send)")
	relayCmd.PersistentFlags().String("log-file", "relay.log", "Log file path")

	relayCmd.AddCommand(relayServeCmd)
	relayCmd.AddCommand(relayListenCmd)
	relayCmd.AddCommand(relaySendCmd)
}

func initRelayLog(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("log-file")
	return log.Init(log.Options{File: file})
}

func runRelayServe(cmd *cobra.Command, args []string) error {
	if err := initRelayLog(cmd); err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr, _ := cmd.Flags().GetString("addr")
	log.LogSuccess("Relay hub listening", zap.String("addr", addr))
	err := relay.NewHub().ListenAndServe(ctx, addr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.LogSuccess("Relay hub stopped")
	return nil
}

func runRelayListen(cmd *cobra.Command, args []string) error {
	if err := initRelayLog(cmd); err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := relay.Dial(ctx, relayURL)
	if err != nil {
		return err
	}
	defer client.Close()
	log.LogSuccess("Listening on relay", zap.String("url", relayURL))

	err = client.Listen(ctx, func(data []byte) {
		fmt.Fprintln(cmd.OutOrStdout(), describeRelayMessage(data))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runRelaySend(cmd *cobra.Command, args []string) error {
	if err := initRelayLog(cmd); err != nil {
		return err
	}
	defer log.Sync()

	client, err := relay.Dial(cmd.Context(), relayURL)
	if err != nil {
		return err
	}
	defer client.Close()

	sig := relay.NewTradeSignal(args[0], args[1])
	if err := client.SendJSON(sig); err != nil {
		return fmt.Errorf("send trade signal: %w", err)
	}
	log.LogSuccess("Trade signal sent", zap.String("signal", sig.Signal), zap.String("mint", sig.Mint))
	return nil
}

// describeRelayMessage renders alerts and trade signals on one line and
// falls back to the raw payload.
func describeRelayMessage(data []byte) string {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return string(data)
	}
	if _, ok := probe["signal"]; ok {
		var s relay.TradeSignal
		if json.Unmarshal(data, &s) == nil {
			return fmt.Sprintf("[signal] %s %s at %d", s.Signal, s.Mint, s.Timestamp)
		}
	}
	if _, ok := probe["alert_type"]; ok {
		var a notify.Alert
		if json.Unmarshal(data, &a) == nil {
			return fmt.Sprintf("[%s] %s %s", a.Type, a.Mint, a.Message)
		}
	}
	return string(data)
}
