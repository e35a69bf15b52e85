package logging

import (
	"context"
	"log/slog"
	"time"

	"monitoroff/internal/power"
)

// PowerControllerLogger wraps a power controller and logs all method calls
type PowerControllerLogger struct {
	controller power.ControllerInterface
	logger     *slog.Logger
}

// NewPowerControllerLogger creates a new logging decorator for the power controller
func NewPowerControllerLogger(controller power.ControllerInterface, logger *slog.Logger) power.ControllerInterface {
	return &PowerControllerLogger{
		controller: controller,
		logger:     logger.With("interface", "PowerController"),
	}
}

func (l *PowerControllerLogger) SetMonitorPower(mode power.Mode) power.Report {
	start := time.Now()
	l.logger.Info("SetMonitorPower called",
		"mode", mode.String())

	report := l.controller.SetMonitorPower(mode)
	duration := time.Since(start)

	if err := report.Err(); err != nil {
		l.logger.Warn("SetMonitorPower partially failed",
			"mode", mode.String(),
			"monitors", report.Monitors,
			"failed", len(report.Failed),
			"duration", duration,
			"error", err)
		return report
	}

	l.logger.Info("SetMonitorPower completed",
		"mode", mode.String(),
		"monitors", report.Monitors,
		"duration", duration)

	return report
}

func (l *PowerControllerLogger) LockWorkstation() {
	start := time.Now()
	l.logger.Info("LockWorkstation called")

	l.controller.LockWorkstation()

	l.logger.Info("LockWorkstation completed",
		"duration", time.Since(start))
}

func (l *PowerControllerLogger) WaitForWakeKey(ctx context.Context, key power.Key) (power.Report, error) {
	start := time.Now()
	l.logger.Info("WaitForWakeKey called",
		"key", key.String())

	report, err := l.controller.WaitForWakeKey(ctx, key)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("WaitForWakeKey failed",
			"key", key.String(),
			"duration", duration,
			"error", err)
		return report, err
	}

	l.logger.Info("WaitForWakeKey completed",
		"key", key.String(),
		"monitors", report.Monitors,
		"failed", len(report.Failed),
		"duration", duration)

	return report, nil
}
