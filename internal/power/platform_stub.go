//go:build !windows

package power

import (
	"log/slog"
)

// StubPlatform implements Platform for non-Windows platforms.
// It logs actions but cannot perform actual monitor or workstation control.
type StubPlatform struct {
	logger *slog.Logger
}

// NewStubPlatform creates a new stub platform implementation
func NewStubPlatform(logger *slog.Logger) *StubPlatform {
	return &StubPlatform{
		logger: logger.With("component", "platform-stub"),
	}
}

// Monitors returns no monitors on non-Windows platforms
func (p *StubPlatform) Monitors() ([]Monitor, error) {
	p.logger.Warn("Monitors called on non-Windows platform")
	return nil, ErrNotWindows
}

// LockWorkstation logs the lock attempt but returns an error on non-Windows
func (p *StubPlatform) LockWorkstation() error {
	p.logger.Warn("LockWorkstation called on non-Windows platform")
	return ErrNotWindows
}

// KeyDown cannot sample the keyboard on non-Windows platforms
func (p *StubPlatform) KeyDown(key Key) (bool, error) {
	return false, ErrNotWindows
}

// NewPlatform creates a new platform implementation for the current OS
func NewPlatform(logger *slog.Logger) Platform {
	return NewStubPlatform(logger)
}

// Ensure StubPlatform implements Platform
var _ Platform = (*StubPlatform)(nil)
