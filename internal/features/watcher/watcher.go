// Package watcher turns the monitored wallet's on-chain activity into
// portfolio updates and price alerts.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"pump-wallet-monitor/internal/clients_api/helius"
	"pump-wallet-monitor/internal/clients_api/solrpc"
	"pump-wallet-monitor/internal/features/holdings"
	"pump-wallet-monitor/internal/features/pumpfun"
	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/notify"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// AlertSink delivers alerts; *notify.Notifier satisfies it.
type AlertSink interface {
	Notify(ctx context.Context, a notify.Alert) error
}

// AccountReader fetches raw account data; *solrpc.Client satisfies it.
type AccountReader interface {
	AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

type Options struct {
	Wallet    solana.PublicKey
	Program   solana.PublicKey
	Portfolio *holdings.Portfolio
	Sink      AlertSink
	Threshold float64 // percent
	Decimals  int     // token decimals when a trade does not carry them
}

type Watcher struct {
	wallet    solana.PublicKey
	program   solana.PublicKey
	portfolio *holdings.Portfolio
	sink      AlertSink
	threshold float64
	decimals  int
}

func New(opts Options) *Watcher {
	if opts.Decimals <= 0 {
		opts.Decimals = pumpfun.DefaultTokenDecimals
	}
	if opts.Portfolio == nil {
		opts.Portfolio = holdings.NewPortfolio(0, opts.Decimals)
	}
	return &Watcher{
		wallet:    opts.Wallet,
		program:   opts.Program,
		portfolio: opts.Portfolio,
		sink:      opts.Sink,
		threshold: opts.Threshold,
		decimals:  opts.Decimals,
	}
}

func (w *Watcher) Wallet() solana.PublicKey { return w.wallet }

func (w *Watcher) Program() solana.PublicKey { return w.program }

func (w *Watcher) Portfolio() *holdings.Portfolio { return w.portfolio }

// HandleLogs processes one logsNotification from the stream.
func (w *Watcher) HandleLogs(ctx context.Context, n helius.LogsNotification) {
	if n.Failed() {
		return
	}
	summary := pumpfun.ParseLogs(n.Result.Value.Logs)
	if summary.Skipped > 0 {
		log.LogDebug("Undecodable program data lines",
			zap.String("signature", n.Result.Value.Signature),
			zap.Int("skipped", summary.Skipped))
	}
	w.applyEvents(ctx, n.Result.Value.Signature, summary.Events, time.Time{})
}

// HandleTransaction processes one fetched transaction of the wallet. Trade
// events in the logs win; without them the trade is inferred from the
// wallet's balance changes.
func (w *Watcher) HandleTransaction(ctx context.Context, tx *solrpc.Transaction) {
	if tx == nil || tx.Failed {
		return
	}
	if !pumpfun.ProgramInvoked(tx.Logs, w.program) {
		return
	}

	summary := pumpfun.ParseLogs(tx.Logs)
	if len(summary.Events) > 0 {
		w.applyEvents(ctx, tx.Signature, summary.Events, tx.BlockTime)
		return
	}

	trade, ok := w.inferTrade(tx)
	if !ok {
		log.LogDebug("No trade found in transaction", zap.String("signature", tx.Signature))
		return
	}
	w.applyTrade(ctx, tx.Signature, trade)
}

func (w *Watcher) applyEvents(ctx context.Context, signature string, events []pumpfun.TradeEvent, at time.Time) {
	for _, ev := range events {
		mint := ev.Mint.String()
		if ev.User.Equals(w.wallet) {
			w.applyTrade(ctx, signature, holdings.Trade{
				Mint:        mint,
				IsBuy:       ev.IsBuy,
				TokenAmount: ev.TokenAmount,
				Price:       ev.Price(w.decimals),
				At:          at,
			})
			continue
		}
		if !w.portfolio.Holds(mint) {
			continue
		}
		h, _ := w.portfolio.Get(mint)
		if _, ok := w.portfolio.UpdatePrice(mint, ev.Price(h.Decimals), at); ok {
			w.checkAlert(ctx, mint)
		}
	}
}

func (w *Watcher) applyTrade(ctx context.Context, signature string, t holdings.Trade) {
	h, change := w.portfolio.ApplyTrade(t)
	if change == holdings.ChangeIgnored {
		log.LogDebug("Sell of untracked mint ignored", zap.String("mint", t.Mint), zap.String("signature", signature))
		return
	}
	log.LogInfo("Wallet trade applied",
		zap.String("signature", signature),
		zap.String("mint", t.Mint),
		zap.Bool("buy", t.IsBuy),
		zap.Uint64("token_amount", t.TokenAmount),
		zap.Float64("price", t.Price),
		zap.String("change", change.String()),
		zap.Float64("ui_amount", h.UIAmount()))
	if change != holdings.ChangeClosed {
		w.checkAlert(ctx, t.Mint)
	}
}

// inferTrade reads a swap from the wallet's balance deltas: exactly one
// non-SOL mint must move against SOL. Wrapped SOL counts as SOL and the fee
// is added back when the wallet paid it.
func (w *Watcher) inferTrade(tx *solrpc.Transaction) (holdings.Trade, bool) {
	sol, _ := tx.LamportDelta(w.wallet)
	if payer, ok := tx.FeePayer(); ok && payer.Equals(w.wallet) {
		sol += int64(tx.Fee)
	}

	var token *solrpc.TokenDelta
	for _, d := range tx.TokenDeltas(w.wallet.String()) {
		if d.Mint == solana.SolMint.String() {
			sol += d.Delta
			continue
		}
		if token != nil {
			return holdings.Trade{}, false
		}
		token = &d
	}
	if token == nil || sol == 0 {
		return holdings.Trade{}, false
	}
	isBuy := token.Delta > 0
	if isBuy == (sol > 0) {
		return holdings.Trade{}, false
	}

	decimals := token.Decimals
	raw := uint64(math.Abs(float64(token.Delta)))
	return holdings.Trade{
		Mint:        token.Mint,
		IsBuy:       isBuy,
		TokenAmount: raw,
		Price:       pumpfun.TradePrice(uint64(math.Abs(float64(sol))), raw, decimals),
		Decimals:    decimals,
		At:          tx.BlockTime,
	}, true
}

// PruneHoldings drops positions below the minimum holding.
func (w *Watcher) PruneHoldings() {
	for _, h := range w.portfolio.Prune() {
		log.LogInfo("Dropped small holding", zap.String("mint", h.Mint), zap.Float64("ui_amount", h.UIAmount()))
	}
}

// RefreshPrices reprices every held pump mint from its bonding curve.
// Mints without a curve account are skipped, and programs other than pump
// have no curves to read.
func (w *Watcher) RefreshPrices(ctx context.Context, r AccountReader) error {
	w.PruneHoldings()
	if !w.program.Equals(pumpfun.ProgramID) {
		return nil
	}

	var errs []error
	for _, mint := range w.portfolio.Mints() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			continue
		}
		curveKey, err := pumpfun.DeriveBondingCurve(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("derive curve %s: %w", mint, err))
			continue
		}
		data, err := r.AccountData(ctx, curveKey)
		if errors.Is(err, solrpc.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("curve %s: %w", mint, err))
			continue
		}
		curve, err := pumpfun.DecodeBondingCurve(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode curve %s: %w", mint, err))
			continue
		}
		if curve.Complete {
			continue
		}
		h, ok := w.portfolio.Get(mint)
		if !ok {
			continue
		}
		if _, ok := w.portfolio.UpdatePrice(mint, curve.Price(h.Decimals), time.Time{}); ok {
			w.checkAlert(ctx, mint)
		}
	}
	return errors.Join(errs...)
}

// checkAlert sends a price alert when the holding crossed the threshold in
// a direction it has not been alerted for. The mark is only set once the
// alert went out.
func (w *Watcher) checkAlert(ctx context.Context, mint string) {
	dir, due := w.portfolio.AlertDue(mint, w.threshold)
	if !due {
		return
	}
	h, ok := w.portfolio.Get(mint)
	if !ok {
		return
	}
	alert := notify.NewAlert(notify.PriceAlert, notify.FormatPriceAlert(h, dir), mint)
	if w.sink != nil {
		if err := w.sink.Notify(ctx, alert); err != nil {
			log.LogError("Price alert not delivered", zap.String("mint", mint), zap.Error(err))
			return
		}
	}
	w.portfolio.MarkAlerted(mint, dir)
	log.LogSuccess("Price alert sent",
		zap.String("mint", mint),
		zap.String("direction", dir.String()),
		zap.Int("change_pct", h.ChangePercent()))
}

// ReportFailure sends an Error alert, used when a source stops for good.
func (w *Watcher) ReportFailure(ctx context.Context, err error) {
	if w.sink == nil || err == nil {
		return
	}
	alert := notify.NewAlert(notify.Error, fmt.Sprintf("Wallet monitor stopped: %v", err), "")
	if nerr := w.sink.Notify(ctx, alert); nerr != nil {
		log.LogError("Failure alert not delivered", zap.Error(nerr))
	}
}
