package watcher

import (
	"context"
	"time"

	"pump-wallet-monitor/internal/clients_api/helius"
	"pump-wallet-monitor/internal/clients_api/solrpc"
	log "pump-wallet-monitor/internal/infra/log"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Source feeds a Watcher until ctx is cancelled or it fails for good.
type Source interface {
	Name() string
	Run(ctx context.Context, w *Watcher) error
}

// StreamSource follows program logs over the websocket stream.
type StreamSource struct {
	Stream *helius.Stream
}

func (s StreamSource) Name() string { return "stream" }

func (s StreamSource) Run(ctx context.Context, w *Watcher) error {
	log.LogInfo("Streaming program logs", zap.String("program", w.Program().String()))
	return s.Stream.Run(ctx, w.HandleLogs)
}

// ChainReader is the RPC surface the poll source needs; *solrpc.Client satisfies it.
type ChainReader interface {
	AccountReader
	SignaturePage(ctx context.Context, wallet solana.PublicKey, until, before string, limit int) ([]solrpc.SignatureInfo, error)
	Transaction(ctx context.Context, signature string) (*solrpc.Transaction, error)
}

const (
	maxTxAttempts = 3
	// pages of Limit signatures read per tick to catch up with the cursor
	maxPages = 10
)

// PollSource walks the wallet's new signatures on every tick, oldest first,
// then reprices held mints.
type PollSource struct {
	Client   ChainReader
	Interval time.Duration
	Limit    int

	cursor   string
	primed   bool
	attempts map[string]int
}

func NewPollSource(client ChainReader, interval time.Duration, limit int) *PollSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if limit <= 0 {
		limit = 25
	}
	return &PollSource{Client: client, Interval: interval, Limit: limit, attempts: map[string]int{}}
}

func (p *PollSource) Name() string { return "poll" }

// Cursor is the newest processed signature.
func (p *PollSource) Cursor() string { return p.cursor }

func (p *PollSource) Run(ctx context.Context, w *Watcher) error {
	log.LogInfo("Polling wallet signatures",
		zap.String("wallet", w.Wallet().String()),
		zap.Duration("interval", p.Interval),
		zap.Int("limit", p.Limit))

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx, w)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one tick. The first tick only records the newest signature so
// history before startup is not replayed.
func (p *PollSource) Poll(ctx context.Context, w *Watcher) {
	if p.attempts == nil {
		p.attempts = map[string]int{}
	}
	if !p.primed {
		sigs, err := p.Client.SignaturePage(ctx, w.Wallet(), "", "", 1)
		if err != nil {
			log.LogError("Failed to read latest signature", zap.Error(err))
			return
		}
		if len(sigs) > 0 {
			p.cursor = sigs[0].Signature
		}
		p.primed = true
		log.LogInfo("Poll cursor initialised", zap.String("cursor", p.cursor))
		return
	}

	sigs, err := p.newSignatures(ctx, w.Wallet())
	if err != nil {
		log.LogError("Failed to list signatures", zap.Error(err))
		return
	}

	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]
		if !sig.Failed {
			tx, err := p.Client.Transaction(ctx, sig.Signature)
			if err != nil {
				p.attempts[sig.Signature]++
				if p.attempts[sig.Signature] < maxTxAttempts {
					log.LogWarn("Failed to fetch transaction, retrying next tick",
						zap.String("signature", sig.Signature),
						zap.Int("attempt", p.attempts[sig.Signature]),
						zap.Error(err))
					break
				}
				log.LogError("Giving up on transaction", zap.String("signature", sig.Signature), zap.Error(err))
			} else {
				w.HandleTransaction(ctx, tx)
			}
		}
		delete(p.attempts, sig.Signature)
		p.cursor = sig.Signature
	}

	if err := w.RefreshPrices(ctx, p.Client); err != nil {
		log.LogWarn("Price refresh incomplete", zap.Error(err))
	}
}

// newSignatures pages back from the newest signature to the cursor,
// newest first. Past maxPages the oldest part of the backlog is skipped.
func (p *PollSource) newSignatures(ctx context.Context, wallet solana.PublicKey) ([]solrpc.SignatureInfo, error) {
	var all []solrpc.SignatureInfo
	before := ""
	for page := 0; page < maxPages; page++ {
		batch, err := p.Client.SignaturePage(ctx, wallet, p.cursor, before, p.Limit)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < p.Limit {
			return all, nil
		}
		before = batch[len(batch)-1].Signature
	}
	log.LogWarn("Signature backlog exceeds page cap, older transactions skipped",
		zap.Int("limit", p.Limit), zap.Int("pages", maxPages))
	return all, nil
}
