package solrpc

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestTokenDeltasNetsAcrossAccounts(t *testing.T) {
	tx := &Transaction{
		PreTokenBalances: []TokenBalance{
			{AccountIndex: 1, Owner: "wallet", Mint: "A", Amount: 500, Decimals: 6},
			{AccountIndex: 2, Owner: "pool", Mint: "A", Amount: 9000, Decimals: 6},
			{AccountIndex: 3, Owner: "wallet", Mint: "B", Amount: 10, Decimals: 9},
		},
		PostTokenBalances: []TokenBalance{
			{AccountIndex: 1, Owner: "wallet", Mint: "A", Amount: 200, Decimals: 6},
			{AccountIndex: 2, Owner: "pool", Mint: "A", Amount: 9300, Decimals: 6},
			{AccountIndex: 3, Owner: "wallet", Mint: "B", Amount: 10, Decimals: 9},
			{AccountIndex: 4, Owner: "wallet", Mint: "C", Amount: 42, Decimals: 0},
		},
	}

	got := tx.TokenDeltas("wallet")
	assert.Equal(t, []TokenDelta{
		{Mint: "A", Delta: -300, Decimals: 6},
		{Mint: "C", Delta: 42, Decimals: 0},
	}, got)
	assert.Empty(t, tx.TokenDeltas("nobody"))
}

func TestLamportDelta(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	tx := &Transaction{
		AccountKeys:  []solana.PublicKey{a, b},
		PreBalances:  []uint64{100, 50},
		PostBalances: []uint64{40},
	}

	d, ok := tx.LamportDelta(a)
	assert.True(t, ok)
	assert.Equal(t, int64(-60), d)

	_, ok = tx.LamportDelta(b)
	assert.False(t, ok, "missing post balance")

	_, ok = tx.LamportDelta(solana.NewWallet().PublicKey())
	assert.False(t, ok)

	payer, ok := tx.FeePayer()
	assert.True(t, ok)
	assert.Equal(t, a, payer)
}
