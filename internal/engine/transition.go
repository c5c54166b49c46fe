package engine

import (
	"trade-clicker/internal/order"
	"trade-clicker/internal/state"
)

// LegKind is one half of a transition.
type LegKind string

const (
	LegClose LegKind = "close"
	LegOpen  LegKind = "open"
)

// Leg is a close or an open; After is the position once the leg has landed.
type Leg struct {
	Kind  LegKind
	Side  order.Side
	After state.Position
}

func (l Leg) String() string {
	if l.Kind == LegOpen {
		return "open_" + string(l.Side)
	}
	return string(l.Kind)
}

// Transition is the decided reaction to a signal.
type Transition struct {
	From state.Position
	To   state.Position
	Legs []Leg
}

// Noop reports whether nothing needs clicking.
func (t Transition) Noop() bool { return len(t.Legs) == 0 }

// Decide maps (current, signal) to the legs to perform. A signal opposite to an
// open position closes it first, then opens the other side.
func Decide(current state.Position, sig Signal) Transition {
	t := Transition{From: current, To: current}
	closeLeg := Leg{Kind: LegClose, After: state.None}

	switch sig {
	case SignalBuy:
		switch current {
		case state.None:
			t.Legs = []Leg{openLeg(order.SideBuy)}
		case state.Sell:
			t.Legs = []Leg{closeLeg, openLeg(order.SideBuy)}
		}
	case SignalSell:
		switch current {
		case state.None:
			t.Legs = []Leg{openLeg(order.SideSell)}
		case state.Buy:
			t.Legs = []Leg{closeLeg, openLeg(order.SideSell)}
		}
	case SignalClear:
		if current == state.Buy || current == state.Sell {
			t.Legs = []Leg{closeLeg}
		}
	}

	if n := len(t.Legs); n > 0 {
		t.To = t.Legs[n-1].After
	}
	return t
}

func openLeg(side order.Side) Leg {
	after := state.Buy
	if side == order.SideSell {
		after = state.Sell
	}
	return Leg{Kind: LegOpen, Side: side, After: after}
}
