package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"monitoroff/internal/clock"
	"monitoroff/internal/idgen"
	"monitoroff/internal/power"
	"monitoroff/internal/settings"
	"monitoroff/internal/storage"
)

// DefaultGraceDelay separates locking the workstation from powering off the monitors
const DefaultGraceDelay = time.Second

// SettingsStore persists settings changes
type SettingsStore interface {
	Save(s settings.Settings) error
}

// Recorder receives the history of prompt sessions
type Recorder interface {
	CreateRun(ctx context.Context, run *storage.Run) error
	MarkWoken(ctx context.Context, id string, at time.Time) error
}

// Options tune the Controller
type Options struct {
	// Countdown confirms automatically when it elapses. Zero waits for the user indefinitely.
	Countdown  time.Duration
	GraceDelay time.Duration
	WakeKey    power.Key
}

// Controller owns the session state
type Controller struct {
	store    SettingsStore
	power    power.ControllerInterface
	recorder Recorder
	clock    clock.Clock
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	phase      Phase
	settings   settings.Settings
	deadline   *time.Time
	lastReport *power.Report

	notifyMu    sync.Mutex
	subscribers []chan View

	// wakeCtx lives as long as the session; Close cancels it
	wakeCtx    context.Context
	wakeCancel context.CancelFunc
	done       chan struct{}
	doneOnce   sync.Once
}

// New creates a controller for a session starting with initial settings.
// recorder may be nil.
func New(initial settings.Settings, store SettingsStore, pc power.ControllerInterface, recorder Recorder, clk clock.Clock, opts Options, logger *slog.Logger) *Controller {
	if opts.GraceDelay < 0 {
		opts.GraceDelay = 0
	}
	if opts.WakeKey == 0 {
		opts.WakeKey = power.DefaultWakeKey
	}
	wakeCtx, wakeCancel := context.WithCancel(context.Background())

	c := &Controller{
		store:      store,
		power:      pc,
		recorder:   recorder,
		clock:      clk,
		opts:       opts,
		logger:     logger.With("component", "flow"),
		state:      StateMainPrompt,
		phase:      PhaseIdle,
		settings:   initial,
		wakeCtx:    wakeCtx,
		wakeCancel: wakeCancel,
		done:       make(chan struct{}),
	}

	if normalized := initial.Normalize(); normalized != initial {
		c.logger.Warn("wake on keyboard not available with current settings, disabling it",
			settings.FieldLockPC, initial.LockPC,
			settings.FieldOffType, initial.OffType.String(),
		)
		c.settings = normalized
		c.save(normalized)
	}
	return c
}

// View returns the current snapshot
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		State:                    c.state,
		Phase:                    c.phase,
		Settings:                 c.settings,
		WakeOnKeyboardSelectable: settings.CanEnableWakeOnKeyboard(c.settings),
		WakeKey:                  c.opts.WakeKey.String(),
	}
	if c.deadline != nil {
		d := *c.deadline
		v.Deadline = &d
	}
	if c.lastReport != nil {
		v.LastReport = newReportView(*c.lastReport)
	}
	return v
}

// Subscribe returns a channel that always holds the latest View after a change.
// Stale views are dropped if the reader falls behind.
func (c *Controller) Subscribe() <-chan View {
	ch := make(chan View, 1)
	c.notifyMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.notifyMu.Unlock()
	return ch
}

func (c *Controller) notify() {
	view := c.View()
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- view:
		default:
		}
	}
}

// Done is closed once the session is over and any wake watch has finished
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close stops a pending wake watch. The monitors stay in their current power mode.
func (c *Controller) Close() {
	c.wakeCancel()
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Run drives the optional countdown and returns when the session is done or ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	var countdown <-chan time.Time
	if c.opts.Countdown > 0 {
		deadline := c.clock.Now().Add(c.opts.Countdown)
		c.mu.Lock()
		c.deadline = &deadline
		c.mu.Unlock()
		c.notify()
		c.logger.Info("countdown started", "countdown", c.opts.Countdown, "deadline", deadline)
		countdown = c.clock.After(c.opts.Countdown)
	}

	for {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case <-countdown:
			countdown = nil
			if _, err := c.confirm(ctx, storage.OutcomeCountdown); err != nil && !errors.Is(err, ErrSessionEnded) {
				c.logger.Error("countdown confirmation failed", "error", err)
			}
		}
	}
}

// Dispatch applies a command and returns the resulting view.
// Confirm blocks until the monitors have been powered off; waiting for the wake key happens in the background.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (View, error) {
	c.logger.Debug("command received", "command", cmd.Kind.String())

	switch cmd.Kind {
	case CommandConfirm:
		return c.confirm(ctx, storage.OutcomeConfirmed)
	case CommandCancel:
		return c.cancel(ctx)
	}

	view, changed, err := c.update(cmd)
	if changed {
		c.notify()
	}
	return view, err
}

func (c *Controller) update(cmd Command) (View, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return c.viewLocked(), false, ErrSessionEnded
	}

	switch cmd.Kind {
	case CommandOpenSettings:
		changed := c.state != StateSettingsOpen
		c.state = StateSettingsOpen
		return c.viewLocked(), changed, nil
	case CommandCloseSettings:
		changed := c.state != StateMainPrompt
		c.state = StateMainPrompt
		return c.viewLocked(), changed, nil
	case CommandSetLockPC, CommandSetOffType, CommandSetWakeOnKeyboard:
	default:
		return c.viewLocked(), false, ErrUnknownCommand
	}

	if c.state != StateSettingsOpen {
		return c.viewLocked(), false, ErrInvalidTransition
	}

	next := c.settings
	switch cmd.Kind {
	case CommandSetLockPC:
		next.LockPC = cmd.Enabled
	case CommandSetOffType:
		next.OffType = cmd.OffType
		if err := next.Validate(); err != nil {
			return c.viewLocked(), false, err
		}
	case CommandSetWakeOnKeyboard:
		if cmd.Enabled && !settings.CanEnableWakeOnKeyboard(next) {
			return c.viewLocked(), false, ErrWakeOnKeyboardUnavailable
		}
		next.WakeOnKeyboard = cmd.Enabled
	}
	next = next.Normalize()

	if next == c.settings {
		return c.viewLocked(), false, nil
	}
	if c.settings.WakeOnKeyboard && !next.WakeOnKeyboard && cmd.Kind != CommandSetWakeOnKeyboard {
		c.logger.Info("wake on keyboard disabled by settings change", "command", cmd.Kind.String())
	}
	c.settings = next
	c.save(next)
	return c.viewLocked(), true, nil
}

// save persists synchronously. A failure is logged and the in-memory value is kept.
func (c *Controller) save(s settings.Settings) {
	if err := c.store.Save(s); err != nil {
		c.logger.Error("failed to persist settings", "error", err)
	}
}

func (c *Controller) cancel(ctx context.Context) (View, error) {
	c.mu.Lock()
	if c.state.Terminal() {
		view := c.viewLocked()
		c.mu.Unlock()
		return view, ErrSessionEnded
	}
	c.state = StateCancelled
	c.phase = PhaseDone
	snapshot := c.settings
	c.mu.Unlock()

	c.logger.Info("power-off cancelled")
	c.record(ctx, &storage.Run{
		ID:        idgen.NewRun(),
		StartedAt: c.clock.Now(),
		Outcome:   storage.OutcomeCancelled,
		Settings:  snapshot,
	})
	c.notify()
	c.finish()
	return c.View(), nil
}

func (c *Controller) confirm(ctx context.Context, outcome storage.Outcome) (View, error) {
	c.mu.Lock()
	if c.state.Terminal() {
		view := c.viewLocked()
		c.mu.Unlock()
		return view, ErrSessionEnded
	}
	c.state = StateConfirmedOff
	s := c.settings
	if s.LockPC {
		c.phase = PhaseLocking
	} else {
		c.phase = PhasePoweringOff
	}
	c.mu.Unlock()
	c.notify()

	run := &storage.Run{
		ID:        idgen.NewRun(),
		StartedAt: c.clock.Now(),
		Outcome:   outcome,
		Settings:  s,
	}
	c.logger.Info("power-off confirmed",
		"run_id", run.ID,
		"outcome", string(outcome),
		settings.FieldLockPC, s.LockPC,
		settings.FieldOffType, s.OffType.String(),
		settings.FieldWakeOnKeyboard, s.WakeOnKeyboard,
	)

	if s.LockPC {
		c.power.LockWorkstation()
		// the caller's ctx may be a single request; only Close cuts the grace delay short
		select {
		case <-c.clock.After(c.opts.GraceDelay):
		case <-c.wakeCtx.Done():
		}
		c.setPhase(PhasePoweringOff, nil)
	}

	report := c.power.SetMonitorPower(offMode(s.OffType))
	run.Monitors = report.Monitors
	run.Failed = len(report.Failed)
	c.record(ctx, run)

	if !s.WakeOnKeyboard {
		c.setPhase(PhaseDone, &report)
		c.finish()
		return c.View(), nil
	}

	c.setPhase(PhaseWaitingForWake, &report)
	results := power.StartWakeWatch(c.wakeCtx, c.power, c.opts.WakeKey)
	go c.awaitWake(run.ID, results)
	return c.View(), nil
}

func (c *Controller) awaitWake(runID string, results <-chan power.WakeResult) {
	result := <-results
	if result.Err != nil {
		c.logger.Warn("wake watch ended without powering monitors on", "run_id", runID, "error", result.Err)
		c.setPhase(PhaseDone, nil)
		c.finish()
		return
	}

	if c.recorder != nil {
		if err := c.recorder.MarkWoken(context.Background(), runID, c.clock.Now()); err != nil {
			c.logger.Warn("failed to record wake", "run_id", runID, "error", err)
		}
	}
	c.setPhase(PhaseDone, &result.Report)
	c.finish()
}

func (c *Controller) setPhase(phase Phase, report *power.Report) {
	c.mu.Lock()
	c.phase = phase
	if report != nil {
		r := *report
		c.lastReport = &r
	}
	c.mu.Unlock()
	c.notify()
}

// record stores the run; history problems never block the power-off itself
func (c *Controller) record(ctx context.Context, run *storage.Run) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}
