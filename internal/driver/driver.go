// Package driver abstracts synthesized input sent to the operating system.
package driver

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Driver injects pointer and keyboard input. Implementations report failures
// to synthesize input; they cannot tell whether the target UI reacted.
type Driver interface {
	Move(x, y int) error
	Click() error
	Press(key string) error
}

// ActionKind names a recorded driver call.
type ActionKind string

const (
	ActionMove  ActionKind = "move"
	ActionClick ActionKind = "click"
	ActionPress ActionKind = "press"
)

// Action is one driver call.
type Action struct {
	Kind ActionKind
	X, Y int
	Key  string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("move(%d,%d)", a.X, a.Y)
	case ActionPress:
		return fmt.Sprintf("press(%s)", a.Key)
	default:
		return string(a.Kind)
	}
}

// Recorder keeps every call in memory. FailOn makes the n-th call (1-based) fail.
type Recorder struct {
	mu      sync.Mutex
	actions []Action
	FailOn  int
	calls   int
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Move(x, y int) error { return r.record(Action{Kind: ActionMove, X: x, Y: y}) }
func (r *Recorder) Click() error        { return r.record(Action{Kind: ActionClick}) }
func (r *Recorder) Press(key string) error {
	return r.record(Action{Kind: ActionPress, Key: key})
}

func (r *Recorder) record(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.FailOn > 0 && r.calls == r.FailOn {
		return fmt.Errorf("recorder: injected failure on %s", a)
	}
	r.actions = append(r.actions, a)
	return nil
}

// Actions returns a copy of the recorded calls.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Reset clears recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
	r.calls = 0
}

// DryRun logs actions instead of injecting them.
type DryRun struct {
	log zerolog.Logger
}

func NewDryRun(log zerolog.Logger) *DryRun {
	return &DryRun{log: log.With().Str("component", "dry_run_driver").Logger()}
}

func (d *DryRun) Move(x, y int) error {
	d.log.Info().Int("x", x).Int("y", y).Msg("[DRY RUN] move")
	return nil
}

func (d *DryRun) Click() error {
	d.log.Info().Msg("[DRY RUN] click")
	return nil
}

func (d *DryRun) Press(key string) error {
	d.log.Info().Str("key", key).Msg("[DRY RUN] press")
	return nil
}
