package pumpfun

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const LamportsPerSol = 1_000_000_000

// DefaultTokenDecimals is what every pump mint uses.
const DefaultTokenDecimals = 6

var (
	ProgramID          = solana.PublicKeyFromBytes(mustDecodeBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"))
	RaydiumV4ProgramID = solana.PublicKeyFromBytes(mustDecodeBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"))
)

func mustDecodeBase58(addr string) []byte {
	decoded, err := base58.Decode(addr)
	if err != nil {
		panic("invalid base58 address: " + addr + ", error: " + err.Error())
	}
	return decoded
}

// ResolveProgramID accepts a base58 program id or one of the aliases
// "pump" and "raydium-v4". Empty input means pump.
func ResolveProgramID(s string) (solana.PublicKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pump", "pumpfun", "pump.fun":
		return ProgramID, nil
	case "raydium", "raydium-v4", "raydium_v4":
		return RaydiumV4ProgramID, nil
	}
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("unknown program %q: %w", s, err)
	}
	return pk, nil
}

// ProgramName is used in log lines and alerts.
func ProgramName(program solana.PublicKey) string {
	switch {
	case program.Equals(ProgramID):
		return "pump.fun"
	case program.Equals(RaydiumV4ProgramID):
		return "raydium-v4"
	default:
		return program.String()
	}
}
