// Package robot drives the real mouse and keyboard through robotgo.
package robot

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
)

// Driver implements driver.Driver with robotgo.
type Driver struct {
	// Smooth moves the pointer visibly instead of jumping, like a human would.
	Smooth bool
	// Button is the mouse button to click ("left" when empty).
	Button string
}

func New(smooth bool) *Driver {
	return &Driver{Smooth: smooth, Button: "left"}
}

func (d *Driver) Move(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("robot: invalid screen point (%d,%d)", x, y)
	}
	if d.Smooth {
		robotgo.MoveMouseSmooth(x, y, 0.6, 0.2)
		return nil
	}
	robotgo.MoveMouse(x, y)
	return nil
}

func (d *Driver) Click() error {
	button := d.Button
	if button == "" {
		button = "left"
	}
	robotgo.MouseClick(button, false)
	return nil
}

// Press taps a key; "ctrl+a" style combos send the last part with the others as modifiers.
func (d *Driver) Press(key string) error {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(key)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return fmt.Errorf("robot: empty key")
	}
	main := parts[len(parts)-1]
	var err error
	if len(parts) > 1 {
		mods := make([]interface{}, 0, len(parts)-1)
		for _, m := range parts[:len(parts)-1] {
			mods = append(mods, m)
		}
		err = robotgo.KeyTap(main, mods...)
	} else {
		err = robotgo.KeyTap(main)
	}
	if err != nil {
		return fmt.Errorf("robot: key tap %q: %w", key, err)
	}
	return nil
}

// CursorPosition reports where the pointer is, used to capture layout points.
func CursorPosition() (int, int) {
	return robotgo.Location()
}
