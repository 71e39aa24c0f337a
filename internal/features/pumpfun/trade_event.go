package pumpfun

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// TradeEventDiscriminator is the Anchor event discriminator for TradeEvent.
var TradeEventDiscriminator = anchorEventDiscriminator("TradeEvent")

var ErrNotTradeEvent = errors.New("not a trade event")

const (
	// disc + mint + sol + token + is_buy + user + timestamp + virtual sol + virtual token
	minTradeEventLen  = 8 + 32 + 8 + 8 + 1 + 32 + 8 + 8 + 8
	fullTradeEventLen = minTradeEventLen + 8 + 8
)

// TradeEvent is emitted by the pump program on every buy and sell.
type TradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

func anchorEventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// DecodeTradeEvent parses the payload of a "Program data:" log line.
func DecodeTradeEvent(data []byte) (TradeEvent, error) {
	var ev TradeEvent
	if len(data) < 8 {
		return ev, fmt.Errorf("event data too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != TradeEventDiscriminator {
		return ev, ErrNotTradeEvent
	}
	if len(data) < minTradeEventLen {
		return ev, fmt.Errorf("trade event too short: %d bytes, need %d", len(data), minTradeEventLen)
	}

	offset := 8
	readKey := func() solana.PublicKey {
		pk := solana.PublicKeyFromBytes(data[offset : offset+32])
		offset += 32
		return pk
	}
	readU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8
		return v
	}

	ev.Mint = readKey()
	ev.SolAmount = readU64()
	ev.TokenAmount = readU64()
	ev.IsBuy = data[offset] != 0
	offset++
	ev.User = readKey()
	ev.Timestamp = int64(readU64())
	ev.VirtualSolReserves = readU64()
	ev.VirtualTokenReserves = readU64()
	if len(data) >= fullTradeEventLen {
		ev.RealSolReserves = readU64()
		ev.RealTokenReserves = readU64()
	}
	return ev, nil
}

// DecodeDataString decodes base64 first, then hex.
func DecodeDataString(dataStr string) ([]byte, error) {
	dataStr = strings.TrimSpace(dataStr)

	data, err := base64.StdEncoding.DecodeString(dataStr)
	if err == nil {
		return data, nil
	}

	data, err = hex.DecodeString(dataStr)
	if err == nil {
		return data, nil
	}
	return nil, fmt.Errorf("unknown encoding (not base64 or hex)")
}

// Price is the execution price of the trade in SOL per UI token.
func (e TradeEvent) Price(tokenDecimals int) float64 {
	return TradePrice(e.SolAmount, e.TokenAmount, tokenDecimals)
}

// TradePrice converts raw lamports and raw token units into SOL per UI token.
func TradePrice(sol, token uint64, tokenDecimals int) float64 {
	if token == 0 {
		return 0
	}
	solUI := float64(sol) / LamportsPerSol
	tokenUI := float64(token) / math.Pow10(tokenDecimals)
	return solUI / tokenUI
}

// Encode renders the event in its on-chain layout, the inverse of DecodeTradeEvent.
func (e TradeEvent) Encode() []byte {
	buf := make([]byte, 0, fullTradeEventLen)
	buf = append(buf, TradeEventDiscriminator[:]...)
	buf = append(buf, e.Mint.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, e.SolAmount)
	buf = binary.LittleEndian.AppendUint64(buf, e.TokenAmount)
	if e.IsBuy {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, e.User.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Timestamp))
	buf = binary.LittleEndian.AppendUint64(buf, e.VirtualSolReserves)
	buf = binary.LittleEndian.AppendUint64(buf, e.VirtualTokenReserves)
	buf = binary.LittleEndian.AppendUint64(buf, e.RealSolReserves)
	buf = binary.LittleEndian.AppendUint64(buf, e.RealTokenReserves)
	return buf
}

// LogLine renders the event as a "Program data:" log line.
func (e TradeEvent) LogLine() string {
	return programDataPrefix + base64.StdEncoding.EncodeToString(e.Encode())
}
