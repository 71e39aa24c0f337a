package pumpfun

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

const bondingCurveLen = 8 + 5*8 + 1

// BondingCurve is the pump account holding a mint's reserves.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// DecodeBondingCurve parses raw account data.
func DecodeBondingCurve(data []byte) (BondingCurve, error) {
	var bc BondingCurve
	if len(data) < bondingCurveLen {
		return bc, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}
	offset := 8 // discriminator
	next := func() uint64 {
		v := binary.LittleEndian.Uint64(data[offset:])
		offset += 8
		return v
	}
	bc.VirtualTokenReserves = next()
	bc.VirtualSolReserves = next()
	bc.RealTokenReserves = next()
	bc.RealSolReserves = next()
	bc.TokenTotalSupply = next()
	bc.Complete = data[offset] != 0
	return bc, nil
}

// Price is the spot price in SOL per UI token. Zero when the curve is empty.
func (bc BondingCurve) Price(tokenDecimals int) float64 {
	if bc.VirtualTokenReserves == 0 {
		return 0
	}
	sol := float64(bc.VirtualSolReserves) / LamportsPerSol
	tokens := float64(bc.VirtualTokenReserves) / math.Pow10(tokenDecimals)
	return sol / tokens
}

// DeriveBondingCurve returns the bonding curve PDA for mint.
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{[]byte("bonding-curve"), mint.Bytes()}
	addr, _, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive bonding curve for %s: %w", mint, err)
	}
	return addr, nil
}
