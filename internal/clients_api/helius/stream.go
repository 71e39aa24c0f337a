package helius

// logsSubscribe client for Helius (or any Solana websocket endpoint).
// One Stream owns one connection at a time and reconnects with jittered
// backoff, resubscribing on every new connection.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/infra/retry"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultPingInterval  = 30 * time.Second
	DefaultReadTimeout   = 60 * time.Second
	DefaultMaxReconnects = 10
	readLimit            = 1024 * 1024
)

// WSURL builds the Helius mainnet websocket endpoint.
func WSURL(apiKey string) string {
	return "wss://mainnet.helius-rpc.com/?api-key=" + apiKey
}

type wsMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *int              `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  json.RawMessage   `json:"params,omitempty"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *jsonrpc.RPCError `json:"error,omitempty"`
}

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// LogsNotification is the params object of a logsNotification message.
type LogsNotification struct {
	Subscription int        `json:"subscription"`
	Result       LogsResult `json:"result"`
}

type LogsResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value LogsValue `json:"value"`
}

type LogsValue struct {
	Signature string   `json:"signature"`
	Err       any      `json:"err"`
	Logs      []string `json:"logs"`
}

// Failed reports whether the transaction errored on chain.
func (n LogsNotification) Failed() bool {
	return n.Result.Value.Err != nil
}

// Handler receives notifications in arrival order, on the read goroutine.
type Handler func(ctx context.Context, n LogsNotification)

type Options struct {
	URL           string
	Program       solana.PublicKey
	Commitment    string
	PingInterval  time.Duration
	ReadTimeout   time.Duration
	MaxReconnects int // consecutive failed sessions before Run gives up
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

type Stream struct {
	opts   Options
	dialer *websocket.Dialer
	nextID atomic.Int32
}

func NewStream(opts Options) *Stream {
	if opts.Commitment == "" {
		opts.Commitment = "confirmed"
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = DefaultMaxReconnects
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &Stream{opts: opts, dialer: &dialer}
}

// Run streams until ctx is cancelled or MaxReconnects sessions in a row fail
// without delivering anything.
func (s *Stream) Run(ctx context.Context, h Handler) error {
	failures := 0
	for {
		delivered, err := s.session(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			failures = 0
		}
		failures++
		if failures > s.opts.MaxReconnects {
			return fmt.Errorf("logs stream gave up after %d reconnects: %w", s.opts.MaxReconnects, err)
		}

		sleep := retry.FullJitterSleep(failures-1, s.opts.BaseDelay, s.opts.MaxDelay)
		log.LogWarn("Logs stream disconnected, reconnecting",
			zap.Error(err),
			zap.Int("attempt", failures),
			zap.Duration("backoff", sleep))
		if err := retry.Sleep(ctx, sleep); err != nil {
			return err
		}
	}
}

// session runs one connection. delivered is true once the subscription was
// confirmed, which resets the failure counter.
func (s *Stream) session(ctx context.Context, h Handler) (delivered bool, err error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.opts.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial %s: %w", resp.Status, err)
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	id := int(s.nextID.Add(1))
	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{s.opts.Program.String()}},
			map[string]any{"commitment": s.opts.Commitment},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return false, fmt.Errorf("send logsSubscribe: %w", err)
	}
	log.LogInfo("logsSubscribe sent", zap.String("program", s.opts.Program.String()), zap.Int("id", id))

	go s.pingLoop(sessionCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			return delivered, fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.LogWarn("Skipping undecodable websocket message", zap.Error(err))
			continue
		}

		if msg.ID != nil {
			if msg.Error != nil {
				return delivered, fmt.Errorf("logsSubscribe rejected: %w", msg.Error)
			}
			var subID int
			_ = json.Unmarshal(msg.Result, &subID)
			delivered = true
			log.LogSuccess("Logs subscription confirmed", zap.Int("subscription", subID))
			continue
		}

		if msg.Method != "logsNotification" {
			log.LogDebug("Ignoring websocket message", zap.String("method", msg.Method))
			continue
		}

		var n LogsNotification
		if err := json.Unmarshal(msg.Params, &n); err != nil {
			log.LogWarn("Skipping malformed logsNotification", zap.Error(err))
			continue
		}
		delivered = true
		h(ctx, n)
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.LogDebug("Ping failed", zap.Error(err))
				}
				return
			}
		}
	}
}
