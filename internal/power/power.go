// Package power drives the three side effects of the utility: setting the
// power mode of attached monitors, locking the workstation and watching for
// the wake key.
package power

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotWindows  = errors.New("this operation is only supported on Windows")
	ErrUnknownMode = errors.New("unknown power mode")
	ErrNotAcquired = errors.New("monitor is not acquired")
)

// Mode is a monitor power mode.
type Mode int

const (
	ModeOn Mode = iota
	ModeOffSoft
	ModeOffHard
)

func (m Mode) String() string {
	switch m {
	case ModeOn:
		return "on"
	case ModeOffSoft:
		return "off_soft"
	case ModeOffHard:
		return "off_hard"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String plus the short forms "soft" and "hard".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return ModeOn, nil
	case "off_soft", "soft":
		return ModeOffSoft, nil
	case "off_hard", "hard":
		return ModeOffHard, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// vcpValue returns the value written to VCP code 0xD6 (power mode).
func (m Mode) vcpValue() uint32 {
	switch m {
	case ModeOffSoft:
		return 0x04
	case ModeOffHard:
		return 0x05
	default:
		return 0x01
	}
}

// Monitor is a single controllable display. Acquire must be paired with Release.
type Monitor interface {
	Description() string
	Acquire() error
	SetPowerMode(mode Mode) error
	Release() error
}

// Platform abstracts OS-specific operations for monitor and workstation control.
// This allows testing on non-Windows platforms with mock implementations.
type Platform interface {
	// Monitors enumerates the currently attached monitors
	Monitors() ([]Monitor, error)

	// LockWorkstation locks the current user session
	LockWorkstation() error

	// KeyDown reports whether the key is currently held
	KeyDown(key Key) (bool, error)
}

// ControllerInterface is what the interaction flow needs from the power controller.
type ControllerInterface interface {
	SetMonitorPower(mode Mode) Report
	LockWorkstation()
	WaitForWakeKey(ctx context.Context, key Key) (Report, error)
}
