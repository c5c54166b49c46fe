// Package order turns open/close intents into ordered UI steps and runs them.
package order

import (
	"fmt"
	"time"

	"trade-clicker/internal/layout"
)

// Side is the direction of an opened position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// StepKind enumerates plan steps.
type StepKind string

const (
	StepMove  StepKind = "move"
	StepClick StepKind = "click"
	StepPause StepKind = "pause"
	StepPress StepKind = "press"
)

// Step is one UI action.
type Step struct {
	Kind  StepKind
	Point layout.Point
	Delay time.Duration
	Key   string
	Label string // button name for logs
}

func (s Step) String() string {
	switch s.Kind {
	case StepMove:
		return fmt.Sprintf("move %s (%d,%d)", s.Label, s.Point.X, s.Point.Y)
	case StepPause:
		return fmt.Sprintf("pause %v", s.Delay)
	case StepPress:
		return fmt.Sprintf("press %s", s.Key)
	default:
		return "click " + s.Label
	}
}

// Plan is an ordered list of steps with a name for logs and metrics.
type Plan struct {
	Name  string
	Steps []Step
}

// Then appends other after a pause of gap.
func (p Plan) Then(gap time.Duration, other Plan) Plan {
	steps := make([]Step, 0, len(p.Steps)+len(other.Steps)+1)
	steps = append(steps, p.Steps...)
	if gap > 0 {
		steps = append(steps, Step{Kind: StepPause, Delay: gap})
	}
	steps = append(steps, other.Steps...)
	return Plan{Name: p.Name + "+" + other.Name, Steps: steps}
}

// Delayed returns p with a leading pause of gap.
func (p Plan) Delayed(gap time.Duration) Plan {
	if gap <= 0 {
		return p
	}
	steps := make([]Step, 0, len(p.Steps)+1)
	steps = append(steps, Step{Kind: StepPause, Delay: gap})
	return Plan{Name: p.Name, Steps: append(steps, p.Steps...)}
}

// Planner builds plans from a layout.
type Planner struct {
	Layout layout.Layout
}

// Open clicks the side button, waits for the order ticket, then clicks send.
func (pl Planner) Open(side Side) (Plan, error) {
	var btn layout.Point
	switch side {
	case SideBuy:
		btn = pl.Layout.Buttons.Buy
	case SideSell:
		btn = pl.Layout.Buttons.Sell
	default:
		return Plan{}, fmt.Errorf("open: unknown side %q", side)
	}
	return Plan{Name: "open_" + string(side), Steps: pl.submit(string(side), btn)}, nil
}

// Close clicks the flatten button, waits, then clicks send.
func (pl Planner) Close() Plan {
	return Plan{Name: "close", Steps: pl.submit("close", pl.Layout.Buttons.Close)}
}

func (pl Planner) submit(label string, btn layout.Point) []Step {
	steps := []Step{
		{Kind: StepMove, Point: btn, Label: label},
		{Kind: StepClick, Label: label},
		{Kind: StepPause, Delay: pl.Layout.Timing.Settle},
		{Kind: StepMove, Point: pl.Layout.Buttons.Send, Label: "send"},
		{Kind: StepClick, Label: "send"},
	}
	if pl.Layout.ConfirmKey != "" {
		steps = append(steps, Step{Kind: StepPress, Key: pl.Layout.ConfirmKey})
	}
	return steps
}
