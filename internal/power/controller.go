package power

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monitoroff/internal/clock"
)

// DefaultPollInterval is how often the wake key state is sampled
const DefaultPollInterval = 50 * time.Millisecond

// Controller performs monitor power changes, workstation locking and wake key detection
type Controller struct {
	platform     Platform
	clock        clock.Clock
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewController creates a new power controller
func NewController(platform Platform, clk clock.Clock, pollInterval time.Duration, logger *slog.Logger) *Controller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Controller{
		platform:     platform,
		clock:        clk,
		pollInterval: pollInterval,
		logger:       logger.With("component", "power"),
	}
}

// SetMonitorPower applies mode to every attached monitor.
// A failing monitor is logged and recorded in the report; the remaining monitors are still processed.
func (c *Controller) SetMonitorPower(mode Mode) Report {
	report := Report{Mode: mode}

	monitors, err := c.platform.Monitors()
	if err != nil {
		c.logger.Error("failed to enumerate monitors", "mode", mode.String(), "error", err)
		return report
	}
	if len(monitors) == 0 {
		c.logger.Info("no monitors found", "mode", mode.String())
		return report
	}

	report.Monitors = len(monitors)
	for i, m := range monitors {
		if err := c.apply(m, mode); err != nil {
			c.logger.Warn("failed to set monitor power mode",
				"index", i,
				"monitor", m.Description(),
				"mode", mode.String(),
				"error", err,
			)
			report.Failed = append(report.Failed, MonitorError{Index: i, Description: m.Description(), Err: err})
			continue
		}
		c.logger.Debug("monitor power mode set", "index", i, "monitor", m.Description(), "mode", mode.String())
	}
	return report
}

// apply acquires m, sets the mode and always releases it again
func (c *Controller) apply(m Monitor, mode Mode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := m.Acquire(); err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer func() {
		if rerr := m.Release(); rerr != nil {
			c.logger.Warn("failed to release monitor", "monitor", m.Description(), "error", rerr)
		}
	}()

	if err := m.SetPowerMode(mode); err != nil {
		return fmt.Errorf("set power mode: %w", err)
	}
	return nil
}

// LockWorkstation locks the session. Failures are logged only.
func (c *Controller) LockWorkstation() {
	if err := c.platform.LockWorkstation(); err != nil {
		c.logger.Error("failed to lock workstation", "error", err)
		return
	}
	c.logger.Info("workstation locked")
}

// WaitForWakeKey blocks until key is held, then powers the monitors back on.
// It returns early with the context error when ctx is cancelled.
func (c *Controller) WaitForWakeKey(ctx context.Context, key Key) (Report, error) {
	c.logger.Info("waiting for wake key", "key", key.String(), "poll_interval", c.pollInterval)

	for {
		down, err := c.platform.KeyDown(key)
		if err != nil {
			return Report{Mode: ModeOn}, fmt.Errorf("read key state: %w", err)
		}
		if down {
			break
		}
		select {
		case <-ctx.Done():
			return Report{Mode: ModeOn}, ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}
	}

	c.logger.Info("wake key pressed", "key", key.String())
	return c.SetMonitorPower(ModeOn), nil
}

// WakeResult is delivered once a wake watch finishes
type WakeResult struct {
	Report Report
	Err    error
}

// StartWakeWatch runs WaitForWakeKey on its own goroutine.
// The returned channel receives exactly one result and is then closed.
func StartWakeWatch(ctx context.Context, c ControllerInterface, key Key) <-chan WakeResult {
	ch := make(chan WakeResult, 1)
	go func() {
		defer close(ch)
		report, err := c.WaitForWakeKey(ctx, key)
		ch <- WakeResult{Report: report, Err: err}
	}()
	return ch
}

// Ensure Controller implements ControllerInterface
var _ ControllerInterface = (*Controller)(nil)
