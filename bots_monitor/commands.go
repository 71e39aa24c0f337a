package bot

// Telegram commands for the monitored chat: /holdings, /chart, /help.

import (
	"context"
	"fmt"
	"strings"

	"pump-wallet-monitor/internal/features/dashboard"
	"pump-wallet-monitor/internal/features/holdings"
	"pump-wallet-monitor/internal/features/tg_charts"
	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdatesAPI is the long-polling part of *tgbotapi.BotAPI.
type UpdatesAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Replier sends answers back to the chat; *notify.TelegramSender satisfies it.
type Replier interface {
	SendHTML(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, name string, png []byte, caption string) error
}

type CommandHandler struct {
	bot       UpdatesAPI
	reply     Replier
	chatID    int64
	portfolio *holdings.Portfolio
}

func NewCommandHandler(bot UpdatesAPI, reply Replier, chatID int64, p *holdings.Portfolio) *CommandHandler {
	return &CommandHandler{bot: bot, reply: reply, chatID: chatID, portfolio: p}
}

// Run long-polls updates until ctx is cancelled. Messages from other chats
// are ignored.
func (c *CommandHandler) Run(ctx context.Context) {
	log.LogInfo("Starting command handler", zap.Int64("chat_id", c.chatID))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.HandleMessage(ctx, update.Message)
		}
	}
}

// RunCommandHandler runs h until ctx is cancelled.
func RunCommandHandler(ctx context.Context, h *CommandHandler) {
	h.Run(ctx)
}

func (c *CommandHandler) HandleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m == nil || m.Chat == nil || m.Chat.ID != c.chatID || !m.IsCommand() {
		return
	}

	command := m.Command()
	fields := []zap.Field{zap.String("command", command), zap.Int64("chat_id", m.Chat.ID)}
	if m.From != nil {
		fields = append(fields, zap.String("username", m.From.UserName))
	}
	log.LogDebug("Received command", fields...)

	var err error
	switch command {
	case "holdings":
		snap := c.portfolio.Snapshot()
		err = c.reply.SendHTML(ctx, FormatHoldingsMessage(snap, holdings.Summarize(snap)))
	case "chart":
		err = c.sendChart(ctx)
	case "help", "start":
		err = c.reply.SendHTML(ctx, helpText)
	default:
		return
	}
	if err != nil {
		log.LogError("Failed to answer command", append(fields, zap.Error(err))...)
	}
}

func (c *CommandHandler) sendChart(ctx context.Context) error {
	snap := c.portfolio.Snapshot()
	if len(snap) == 0 {
		return c.reply.SendHTML(ctx, "No open holdings.")
	}
	sum := holdings.Summarize(snap)
	png, err := tg_charts.RenderPnLChart(snap, sum)
	if err != nil {
		log.LogWarn("Failed to render PnL chart, sending text", zap.Error(err))
		return c.reply.SendHTML(ctx, FormatHoldingsMessage(snap, sum))
	}
	caption := fmt.Sprintf("<b>Portfolio PnL</b>: %s SOL (%s)",
		dashboard.FormatSOL(sum.PnL), dashboard.FormatChange(sum.PnLPercent))
	return c.reply.SendPhoto(ctx, "pnl.png", png, caption)
}

const helpText = "" +
	"Commands:\n" +
	"• <code>/holdings</code> - open positions with avg and current price\n" +
	"• <code>/chart</code> - PnL chart of the open positions\n" +
	"• <code>/help</code> - this message"

// FormatHoldingsMessage renders the holdings table as Telegram HTML.
func FormatHoldingsMessage(snapshot []holdings.Holding, summary holdings.Summary) string {
	if len(snapshot) == 0 {
		return "No open holdings."
	}

	var b strings.Builder
	b.WriteString("<b>📊 Holdings</b>\n")
	for _, h := range snapshot {
		fmt.Fprintf(&b, "\n%s\nAmount: %s\nAvg: %s SOL | Price: %s SOL | %s",
			notify.TokenLink(h.Mint),
			dashboard.FormatTokenAmount(h.Amount, h.Decimals),
			dashboard.FormatSOL(h.AvgPrice()),
			dashboard.FormatSOL(h.CurrentPrice),
			dashboard.FormatChange(h.ChangePercent()))
	}
	fmt.Fprintf(&b, "\n\n<b>Total Value:</b> %s SOL\n<b>Total Cost:</b> %s SOL\n<b>PnL:</b> %s SOL (%s)",
		dashboard.FormatSOL(summary.TotalValue),
		dashboard.FormatSOL(summary.TotalCost),
		dashboard.FormatSOL(summary.PnL),
		dashboard.FormatChange(summary.PnLPercent))
	return b.String()
}
