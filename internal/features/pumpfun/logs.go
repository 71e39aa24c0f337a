package pumpfun

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	programDataPrefix = "Program data: "
	instructionPrefix = "Program log: Instruction: "
)

// LogSummary is what a transaction's log lines say about pump activity.
type LogSummary struct {
	Instruction string // last "Instruction: X" seen, e.g. Buy or Sell
	Events      []TradeEvent
	Skipped     int // Program data lines that failed to decode
}

// ParseLogs extracts trade events in log order. Data lines that are not
// trade events are ignored; malformed trade events are counted in Skipped.
func ParseLogs(logs []string) LogSummary {
	var s LogSummary
	for _, line := range logs {
		if rest, ok := strings.CutPrefix(line, instructionPrefix); ok {
			s.Instruction = strings.TrimSpace(rest)
			continue
		}
		rest, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		data, err := DecodeDataString(rest)
		if err != nil {
			s.Skipped++
			continue
		}
		ev, err := DecodeTradeEvent(data)
		if err != nil {
			if !errors.Is(err, ErrNotTradeEvent) {
				s.Skipped++
			}
			continue
		}
		s.Events = append(s.Events, ev)
	}
	return s
}

// ProgramInvoked reports whether the logs contain an invoke of program.
func ProgramInvoked(logs []string, program solana.PublicKey) bool {
	prefix := "Program " + program.String() + " invoke"
	for _, line := range logs {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
