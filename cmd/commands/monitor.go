package commands

// Command that runs the wallet monitor until SIGINT/SIGTERM.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	bot "pump-wallet-monitor/bots_monitor"
	"pump-wallet-monitor/internal/clients_api/helius"
	"pump-wallet-monitor/internal/clients_api/solrpc"
	"pump-wallet-monitor/internal/features/holdings"
	"pump-wallet-monitor/internal/features/pumpfun"
	"pump-wallet-monitor/internal/features/watcher"
	"pump-wallet-monitor/internal/infra/config"
	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/notify"

	"github.com/gagliardetto/solana-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor a wallet's trades and alert on price moves",
	Long: `Run the wallet monitor: stream (or poll) the wallet's trades, keep the holdings
table, and send Telegram alerts when a position moves past the threshold.`,
	RunE: runMonitor,
}

func init() {
	config.RegisterFlags(monitorCmd.Flags())
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(log.Options{File: cfg.App.LogFile, Level: cfg.App.LogLevel}); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	wallet := solana.MustPublicKeyFromBase58(cfg.Monitor.Wallet)
	program, err := pumpfun.ResolveProgramID(cfg.Monitor.ProgramID)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.LogError("Failed to initialize Telegram bot", zap.Error(err))
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	log.LogSuccess("Telegram bot authorized", zap.String("username", api.Self.UserName))

	chatID, _ := cfg.ChatID()
	telegram := notify.NewTelegramSender(api, notify.TelegramOptions{
		ChatID:    chatID,
		TopicID:   cfg.Telegram.TopicID,
		RateLimit: rate.Limit(1),
	})
	notifier := notify.NewNotifier(telegram)
	if cfg.Relay.AlertURL != "" {
		notifier.Add(notify.NewRelaySender(cfg.Relay.AlertURL))
		log.LogInfo("Relaying alerts", zap.String("url", cfg.Relay.AlertURL))
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.LogWarn("Failed to close senders", zap.Error(err))
		}
	}()

	rpcClient := solrpc.New(solrpc.Options{
		URL:        cfg.RPC.URL,
		Commitment: cfg.RPC.Commitment,
		Timeout:    cfg.RequestTimeout(),
		MaxRetries: cfg.RPC.MaxRetries,
		RateLimit:  cfg.RPC.RateLimit,
	})

	portfolio := holdings.NewPortfolio(cfg.Monitor.MinHolding, cfg.Monitor.TokenDecimals)
	w := watcher.New(watcher.Options{
		Wallet:    wallet,
		Program:   program,
		Portfolio: portfolio,
		Sink:      notifier,
		Threshold: cfg.Monitor.AlertThreshold,
		Decimals:  cfg.Monitor.TokenDecimals,
	})

	deps := bot.Deps{
		Watcher:        w,
		Source:         buildSource(cfg, program, rpcClient),
		RenderInterval: cfg.RenderInterval(),
	}
	if cfg.Monitor.Dashboard {
		deps.Dashboard = io.Writer(os.Stdout)
	}
	if cfg.Telegram.Commands {
		deps.Commands = bot.NewCommandHandler(api, telegram, chatID, portfolio)
	}

	done := make(chan error, 1)
	go func() {
		done <- bot.RunWalletMonitor(ctx, deps)
	}()

	log.LogSuccess("Monitor is running", zap.String("status", "active"))

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.LogInfo("Shutdown signal received, gracefully stopping...")
	select {
	case <-done:
		log.LogSuccess("Monitor stopped gracefully")
	case <-time.After(shutdownTimeout):
		log.LogWarn("Timeout waiting for monitor to stop, forcing shutdown")
	}
	return nil
}

// buildSource picks the logs stream or signature polling. The stream only
// decodes pump events, so other programs always poll.
func buildSource(cfg *config.Config, program solana.PublicKey, client *solrpc.Client) watcher.Source {
	source := cfg.ResolveSource()
	if source == config.SourceStream && !program.Equals(pumpfun.ProgramID) {
		log.LogWarn("Logs stream only decodes pump events, falling back to polling",
			zap.String("program", program.String()))
		source = config.SourcePoll
	}

	if source == config.SourceStream {
		return watcher.StreamSource{Stream: helius.NewStream(helius.Options{
			URL:        cfg.StreamURL(),
			Program:    program,
			Commitment: cfg.RPC.Commitment,
		})}
	}
	return watcher.NewPollSource(client, cfg.PollInterval(), cfg.Monitor.SignatureLimit)
}
