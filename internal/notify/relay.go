package notify

import (
	"context"
	"fmt"
	"sync"

	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/relay"

	"go.uber.org/zap"
)

// RelaySender writes each alert as JSON to a relay websocket. The connection
// is opened lazily and redialled once when a write fails.
type RelaySender struct {
	url    string
	mu     sync.Mutex
	client *relay.Client
}

func NewRelaySender(url string) *RelaySender {
	return &RelaySender{url: url}
}

func (r *RelaySender) Name() string { return "relay" }

func (r *RelaySender) Send(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if r.client == nil {
			c, err := relay.Dial(ctx, r.url)
			if err != nil {
				return err
			}
			r.client = c
		}
		err := r.client.SendJSON(a)
		if err == nil {
			return nil
		}
		log.LogWarn("Relay write failed, redialling", zap.String("url", r.url), zap.Error(err))
		r.client.Close()
		r.client = nil
		if attempt == 1 {
			return fmt.Errorf("relay send: %w", err)
		}
	}
	return nil
}

func (r *RelaySender) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
