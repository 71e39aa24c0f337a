package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"pump-wallet-monitor/internal/clients_api/solrpc"
	"pump-wallet-monitor/internal/features/pumpfun"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	fakeReader
	sigs    []solrpc.SignatureInfo // newest first
	txs     map[string]*solrpc.Transaction
	txErrs  map[string]int
	listErr error
	untils  []string
	befores []string
	fetched []string
}

func (f *fakeChain) SignaturePage(_ context.Context, _ solana.PublicKey, until, before string, limit int) ([]solrpc.SignatureInfo, error) {
	f.untils = append(f.untils, until)
	f.befores = append(f.befores, before)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []solrpc.SignatureInfo
	skipping := before != ""
	for _, s := range f.sigs {
		if skipping {
			skipping = s.Signature != before
			continue
		}
		if s.Signature == until || len(out) == limit {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeChain) Transaction(_ context.Context, sig string) (*solrpc.Transaction, error) {
	f.fetched = append(f.fetched, sig)
	if f.txErrs[sig] > 0 {
		f.txErrs[sig]--
		return nil, errors.New("transaction not available")
	}
	tx, ok := f.txs[sig]
	if !ok {
		return nil, errors.New("unknown signature")
	}
	return tx, nil
}

func (f *fakeChain) push(sig string, tx *solrpc.Transaction) {
	f.sigs = append([]solrpc.SignatureInfo{{Signature: sig}}, f.sigs...)
	if tx != nil {
		tx.Signature = sig
		f.txs[sig] = tx
	}
}

func TestPollSourcePrimesThenProcessesOldestFirst(t *testing.T) {
	invoke := "Program " + pumpfun.ProgramID.String() + " invoke [1]"
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}, txErrs: map[string]int{}}
	chain.push("old", walletTx(-100_000_000, 0, 1_000_000_000, invoke))

	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 10)
	ctx := context.Background()

	p.Poll(ctx, w)
	assert.Equal(t, "old", p.Cursor())
	assert.Empty(t, chain.fetched, "history before startup is not replayed")
	assert.Equal(t, 0, w.Portfolio().Len())

	chain.push("buy", walletTx(-100_000_000, 0, 1_000_000_000, invoke))
	chain.push("sell", walletTx(60_000_000, 1_000_000_000, 500_000_000, invoke))
	p.Poll(ctx, w)

	assert.Equal(t, []string{"buy", "sell"}, chain.fetched)
	assert.Equal(t, "sell", p.Cursor())
	assert.Equal(t, "old", chain.untils[1])
	h, ok := w.Portfolio().Get(mintA.String())
	require.True(t, ok)
	assert.Equal(t, uint64(500_000_000), h.Amount)
}

func TestPollSourcePagesBackToCursor(t *testing.T) {
	invoke := "Program " + pumpfun.ProgramID.String() + " invoke [1]"
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}, txErrs: map[string]int{}}
	chain.push("start", nil)

	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 2)
	ctx := context.Background()
	p.Poll(ctx, w)
	require.Equal(t, "start", p.Cursor())

	// five buys of 200 tokens, more than two pages of two
	want := []string{"t1", "t2", "t3", "t4", "t5"}
	for _, sig := range want {
		chain.push(sig, walletTx(-20_000_000, 0, 200_000_000, invoke))
	}
	p.Poll(ctx, w)

	assert.Equal(t, want, chain.fetched)
	assert.Equal(t, "t5", p.Cursor())
	assert.Equal(t, []string{"", "", "t4", "t2"}, chain.befores)
	h, ok := w.Portfolio().Get(mintA.String())
	require.True(t, ok)
	assert.Equal(t, uint64(1_000_000_000), h.Amount)
}

func TestPollSourceKeepsCursorWhenPagingFails(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}, txErrs: map[string]int{}}
	chain.push("start", nil)
	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 2)
	ctx := context.Background()
	p.Poll(ctx, w)

	chain.push("a", nil)
	chain.listErr = errors.New("503")
	p.Poll(ctx, w)
	assert.Equal(t, "start", p.Cursor())
	assert.Empty(t, chain.fetched)
}

func TestPollSourceRetriesUnavailableTransaction(t *testing.T) {
	invoke := "Program " + pumpfun.ProgramID.String() + " invoke [1]"
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}, txErrs: map[string]int{"a": 1}}
	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 10)
	ctx := context.Background()
	p.Poll(ctx, w)
	assert.Equal(t, "", p.Cursor())

	chain.push("a", walletTx(-100_000_000, 0, 1_000_000_000, invoke))
	chain.push("b", nil)
	chain.sigs[0].Failed = true

	p.Poll(ctx, w)
	assert.Equal(t, "", p.Cursor(), "cursor stays before the missing transaction")
	assert.Equal(t, 0, w.Portfolio().Len())

	p.Poll(ctx, w)
	assert.Equal(t, "b", p.Cursor())
	assert.Equal(t, []string{"a", "a"}, chain.fetched, "failed signatures are not fetched")
	assert.Equal(t, 1, w.Portfolio().Len())
}

func TestPollSourceGivesUpAfterMaxAttempts(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}, txErrs: map[string]int{"gone": 10}}
	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 10)
	ctx := context.Background()
	p.Poll(ctx, w)

	chain.push("gone", nil)
	for i := 0; i < maxTxAttempts; i++ {
		p.Poll(ctx, w)
	}
	assert.Equal(t, "gone", p.Cursor())
	assert.Len(t, chain.fetched, maxTxAttempts)
}

func TestPollSourceSurvivesListErrors(t *testing.T) {
	chain := &fakeChain{listErr: errors.New("503"), txs: map[string]*solrpc.Transaction{}}
	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, time.Second, 10)

	p.Poll(context.Background(), w)
	p.Poll(context.Background(), w)
	assert.Len(t, chain.untils, 2, "priming is retried")
}

func TestPollSourceRunStopsOnCancel(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solrpc.Transaction{}}
	w := newTestWatcher(&fakeSink{})
	p := NewPollSource(chain, 10*time.Millisecond, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := p.Run(ctx, w)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, len(chain.untils), 2)
}
