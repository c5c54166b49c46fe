// Package layout holds the screen coordinates and pacing of the target trading window.
package layout

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Point is an absolute screen coordinate.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Buttons are the UI elements clicked by the plans.
type Buttons struct {
	Buy   Point `yaml:"buy" json:"buy"`
	Sell  Point `yaml:"sell" json:"sell"`
	Close Point `yaml:"close" json:"close"`
	Send  Point `yaml:"send" json:"send"`
}

// Timing controls the pauses between simulated actions.
type Timing struct {
	// Settle is the wait between clicking a side/close button and the send button.
	Settle time.Duration `yaml:"settle" json:"settle"`
	// SwitchGap is the wait between the close leg and the open leg of a switch.
	SwitchGap time.Duration `yaml:"switch_gap" json:"switch_gap"`
	// Move is the pointer travel time; zero jumps.
	Move time.Duration `yaml:"move" json:"move"`
}

// Layout is the full screen configuration.
type Layout struct {
	Buttons Buttons `yaml:"buttons" json:"buttons"`
	Timing  Timing  `yaml:"timing" json:"timing"`
	// ConfirmKey is pressed after the send click when set (e.g. "enter").
	ConfirmKey string `yaml:"confirm_key" json:"confirm_key,omitempty"`
}

// Default returns the stock button coordinates and timings.
func Default() Layout {
	return Layout{
		Buttons: Buttons{
			Buy:   Point{X: 1081, Y: 861},
			Sell:  Point{X: 1254, Y: 855},
			Close: Point{X: 1168, Y: 859},
			Send:  Point{X: 933, Y: 602},
		},
		Timing: Timing{
			Settle:    1500 * time.Millisecond,
			SwitchGap: 2 * time.Second,
			Move:      500 * time.Millisecond,
		},
	}
}

// Validate checks every point is on screen and pauses are not negative.
func (l Layout) Validate() error {
	points := map[string]Point{
		"buy":   l.Buttons.Buy,
		"sell":  l.Buttons.Sell,
		"close": l.Buttons.Close,
		"send":  l.Buttons.Send,
	}
	for name, p := range points {
		if p.X < 0 || p.Y < 0 {
			return fmt.Errorf("button %s: negative coordinate (%d,%d)", name, p.X, p.Y)
		}
		if p.X == 0 && p.Y == 0 {
			return fmt.Errorf("button %s: not configured", name)
		}
	}
	if l.Timing.Settle < 0 || l.Timing.SwitchGap < 0 || l.Timing.Move < 0 {
		return errors.New("timing: negative duration")
	}
	return nil
}

// Parse decodes YAML on top of the defaults, so a file may override only some fields.
func Parse(data []byte) (Layout, error) {
	l := Default()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout: %w", err)
	}
	return l, nil
}

// Load reads a layout file. A missing file yields the defaults.
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

// Write stores l as YAML, used to seed a layout file for calibration.
func Write(path string, l Layout) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
