package solrpc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TokenBalance is one SPL token account balance before or after a transaction.
type TokenBalance struct {
	AccountIndex int
	Owner        string
	Mint         string
	Amount       uint64 // raw units
	Decimals     int
}

// Transaction is the subset of getTransaction the monitor works with.
type Transaction struct {
	Signature         string
	Slot              uint64
	BlockTime         time.Time
	Failed            bool
	Logs              []string
	AccountKeys       []solana.PublicKey // static keys, then loaded writable, then loaded readonly
	Fee               uint64
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

func newTransaction(signature string, res *rpc.GetTransactionResult) (*Transaction, error) {
	parsed, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
	}

	tx := &Transaction{
		Signature:   signature,
		Slot:        res.Slot,
		AccountKeys: append([]solana.PublicKey(nil), parsed.Message.AccountKeys...),
	}
	if res.BlockTime != nil {
		tx.BlockTime = res.BlockTime.Time()
	}

	if meta := res.Meta; meta != nil {
		tx.Failed = meta.Err != nil
		tx.Logs = meta.LogMessages
		tx.Fee = meta.Fee
		tx.PreBalances = meta.PreBalances
		tx.PostBalances = meta.PostBalances
		tx.AccountKeys = append(tx.AccountKeys, meta.LoadedAddresses.Writable...)
		tx.AccountKeys = append(tx.AccountKeys, meta.LoadedAddresses.ReadOnly...)
		tx.PreTokenBalances = convertTokenBalances(meta.PreTokenBalances)
		tx.PostTokenBalances = convertTokenBalances(meta.PostTokenBalances)
	}
	return tx, nil
}

func convertTokenBalances(in []rpc.TokenBalance) []TokenBalance {
	out := make([]TokenBalance, 0, len(in))
	for _, b := range in {
		tb := TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint.String(),
		}
		if b.Owner != nil {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil {
			tb.Decimals = int(b.UiTokenAmount.Decimals)
			tb.Amount, _ = strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
		}
		out = append(out, tb)
	}
	return out
}

// FeePayer is the first account key.
func (t *Transaction) FeePayer() (solana.PublicKey, bool) {
	if len(t.AccountKeys) == 0 {
		return solana.PublicKey{}, false
	}
	return t.AccountKeys[0], true
}

// LamportDelta is post minus pre balance of account. ok is false when the
// account is not part of the transaction.
func (t *Transaction) LamportDelta(account solana.PublicKey) (delta int64, ok bool) {
	for i, k := range t.AccountKeys {
		if !k.Equals(account) {
			continue
		}
		if i >= len(t.PreBalances) || i >= len(t.PostBalances) {
			return 0, false
		}
		return int64(t.PostBalances[i]) - int64(t.PreBalances[i]), true
	}
	return 0, false
}

// TokenDelta is the net change of one mint across all of an owner's token accounts.
type TokenDelta struct {
	Mint     string
	Delta    int64 // raw units
	Decimals int
}

// TokenDeltas returns the owner's non-zero token balance changes, in order
// of first appearance.
func (t *Transaction) TokenDeltas(owner string) []TokenDelta {
	index := map[string]int{}
	var out []TokenDelta
	add := func(b TokenBalance, sign int64) {
		if b.Owner != owner {
			return
		}
		i, ok := index[b.Mint]
		if !ok {
			i = len(out)
			index[b.Mint] = i
			out = append(out, TokenDelta{Mint: b.Mint, Decimals: b.Decimals})
		}
		out[i].Delta += sign * int64(b.Amount)
	}
	for _, b := range t.PreTokenBalances {
		add(b, -1)
	}
	for _, b := range t.PostTokenBalances {
		add(b, 1)
	}

	nonZero := out[:0]
	for _, d := range out {
		if d.Delta != 0 {
			nonZero = append(nonZero, d)
		}
	}
	return nonZero
}
