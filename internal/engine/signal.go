package engine

import (
	"fmt"
	"time"

	"trade-clicker/internal/state"
)

// Signal is an external instruction.
type Signal string

const (
	SignalBuy   Signal = "buy"
	SignalSell  Signal = "sell"
	SignalClear Signal = "clear"
)

// ParseSignal is case-sensitive, like the console prompt it serves.
func ParseSignal(s string) (Signal, error) {
	switch sig := Signal(s); sig {
	case SignalBuy, SignalSell, SignalClear:
		return sig, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// Source identifies where a signal came from.
type Source string

const (
	SourceConsole Source = "console"
	SourceHTTP    Source = "http"
	SourceMail    Source = "mail"
)

// Request is a signal with its envelope.
type Request struct {
	ID         string
	Signal     Signal
	Source     Source
	Price      float64 // informational, sent by the charting UI
	ReceivedAt time.Time
}

// Result describes what a request did to the position.
type Result struct {
	RequestID string         `json:"id"`
	Signal    Signal         `json:"signal"`
	Previous  state.Position `json:"previous"`
	Current   state.Position `json:"current"`
	Legs      []string       `json:"legs"`
	Steps     int            `json:"steps"`
	Changed   bool           `json:"changed"`
}
