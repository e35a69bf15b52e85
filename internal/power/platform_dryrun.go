package power

import (
	"fmt"
	"log/slog"
)

// DryRunPlatform implements Platform for debugging on any OS.
// It logs actions instead of performing actual monitor or workstation control,
// and reports the wake key as pressed on the first poll.
type DryRunPlatform struct {
	logger   *slog.Logger
	monitors int
}

// NewDryRunPlatform creates a platform that pretends n monitors are attached
func NewDryRunPlatform(n int, logger *slog.Logger) *DryRunPlatform {
	return &DryRunPlatform{
		logger:   logger.With("component", "platform-dryrun"),
		monitors: n,
	}
}

func (p *DryRunPlatform) Monitors() ([]Monitor, error) {
	monitors := make([]Monitor, p.monitors)
	for i := range monitors {
		monitors[i] = &dryRunMonitor{name: fmt.Sprintf("dry-run monitor %d", i), logger: p.logger}
	}
	return monitors, nil
}

func (p *DryRunPlatform) LockWorkstation() error {
	p.logger.Warn("LOCK_WORKSTATION",
		"action", "lock",
		"note", "dry run - no actual lock performed",
	)
	return nil
}

func (p *DryRunPlatform) KeyDown(key Key) (bool, error) {
	p.logger.Warn("KEY_STATE",
		"key", key.String(),
		"note", "dry run - wake key reported as pressed",
	)
	return true, nil
}

type dryRunMonitor struct {
	name   string
	logger *slog.Logger
}

func (m *dryRunMonitor) Description() string { return m.name }

func (m *dryRunMonitor) Acquire() error { return nil }

func (m *dryRunMonitor) SetPowerMode(mode Mode) error {
	m.logger.Warn("SET_POWER_MODE",
		"monitor", m.name,
		"mode", mode.String(),
		"note", "dry run - no DDC/CI command sent",
	)
	return nil
}

func (m *dryRunMonitor) Release() error { return nil }

// Ensure DryRunPlatform implements Platform
var _ Platform = (*DryRunPlatform)(nil)
