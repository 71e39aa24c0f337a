package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "pump-wallet-monitor/internal/infra/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TradeSignal is the frame trading bots exchange over the relay.
type TradeSignal struct {
	Signal    string `json:"signal"`
	Mint      string `json:"mint"`
	Timestamp int64  `json:"timestamp"`
}

func NewTradeSignal(signal, mint string) TradeSignal {
	return TradeSignal{Signal: signal, Mint: mint, Timestamp: time.Now().Unix()}
}

// Client is one relay connection. Writes are serialized; reads belong to Listen.
type Client struct {
	url  string
	conn *websocket.Conn
	mu   sync.Mutex
}

func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	log.LogInfo("Relay connected", zap.String("url", url))
	return &Client{url: url, conn: conn}, nil
}

func (c *Client) URL() string { return c.url }

// SendJSON writes v as one text frame.
func (c *Client) SendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("relay write: %w", err)
	}
	return nil
}

// Listen calls fn for every text or binary frame until ctx is cancelled or
// the connection drops. A normal close returns nil.
func (c *Client) Listen(ctx context.Context, fn func(data []byte)) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("relay read: %w", err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			fn(data)
		}
	}
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
