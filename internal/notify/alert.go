// Package notify formats monitor alerts and fans them out to every
// configured channel (Telegram, the websocket relay).
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"pump-wallet-monitor/internal/features/holdings"

	"github.com/google/uuid"
)

type AlertType int

const (
	PriceAlert AlertType = iota
	Error
)

func (t AlertType) String() string {
	switch t {
	case PriceAlert:
		return "PriceAlert"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("AlertType(%d)", int(t))
	}
}

func (t AlertType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *AlertType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "PriceAlert":
		*t = PriceAlert
	case "Error":
		*t = Error
	default:
		return fmt.Errorf("unknown alert type %q", s)
	}
	return nil
}

// Alert is the unit every Sender delivers. Message is HTML for Telegram.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Type      AlertType `json:"alert_type"`
	Message   string    `json:"message"`
	Mint      string    `json:"mint,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

func NewAlert(t AlertType, message, mint string) Alert {
	return Alert{
		ID:        uuid.New(),
		Type:      t,
		Message:   message,
		Mint:      mint,
		Timestamp: time.Now().Unix(),
	}
}

// FormatAlertMessage renders the Telegram body: bold type, message, unix timestamp.
func FormatAlertMessage(a Alert) string {
	return fmt.Sprintf("<b>%s</b>\n%s\nTimestamp: %d", a.Type, a.Message, a.Timestamp)
}

// TokenLink is the gmgn page for a mint.
func TokenLink(mint string) string {
	return fmt.Sprintf(`<a href="https://gmgn.ai/sol/token/%s">%s</a>`, mint, mint)
}

// FormatPriceAlert builds the pump or dump message for a holding.
func FormatPriceAlert(h holdings.Holding, dir holdings.Direction) string {
	title := "🚀 Token Pump Alert!"
	if dir == holdings.DirectionDown {
		title = "📉 Token Dump Alert!"
	}
	return fmt.Sprintf("%s\n\nToken: %s\nCurrent Price: %.9f SOL\nAvg Buy Price: %.9f SOL\nChange: %+d%%",
		title,
		TokenLink(h.Mint),
		h.CurrentPrice,
		h.AvgPrice(),
		h.ChangePercent())
}
