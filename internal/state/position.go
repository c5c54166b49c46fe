// Package state holds the persisted position value and its stores.
package state

import (
	"fmt"
	"strings"
)

// Position is the trading stance held in the target application.
type Position string

const (
	None Position = "none"
	Buy  Position = "buy"
	Sell Position = "sell"
)

// Positions lists every valid value.
var Positions = []Position{None, Buy, Sell}

// Valid reports whether p is one of the enumerated values.
func (p Position) Valid() bool {
	switch p {
	case None, Buy, Sell:
		return true
	}
	return false
}

func (p Position) String() string { return string(p) }

// ParsePosition parses persisted text; surrounding whitespace is ignored.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.TrimSpace(s))
	if !p.Valid() {
		return None, fmt.Errorf("unknown position %q", s)
	}
	return p, nil
}
