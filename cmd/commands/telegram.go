package commands

// Command that sends a formatted test message to the configured chat.

import (
	"context"
	"fmt"
	"time"

	"pump-wallet-monitor/internal/infra/config"
	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var telegramTestCmd = &cobra.Command{
	Use:   "telegram-test",
	Short: "Send a test message to the configured Telegram chat",
	RunE:  runTelegramTest,
}

func runTelegramTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadTelegramConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(log.Options{File: cfg.App.LogFile, Level: cfg.App.LogLevel}); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	chatID, _ := cfg.ChatID()
	sender := notify.NewTelegramSender(api, notify.TelegramOptions{ChatID: chatID, TopicID: cfg.Telegram.TopicID})

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	text := fmt.Sprintf("<b>🧪 Test message</b>\nBot <code>@%s</code> can post here.\nChat: <code>%d</code>",
		api.Self.UserName, chatID)
	if cfg.Telegram.TopicID != 0 {
		text += fmt.Sprintf("\nTopic: <code>%d</code>", cfg.Telegram.TopicID)
	}
	if err := sender.SendHTML(ctx, text); err != nil {
		log.LogError("Test message failed", zap.Error(err))
		return err
	}
	log.LogSuccess("Test message sent", zap.Int64("chat_id", chatID), zap.Int("topic_id", cfg.Telegram.TopicID))
	return nil
}
