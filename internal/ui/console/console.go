// Package console renders the prompt window on a terminal and reads single-letter answers.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"monitoroff/internal/flow"
	"monitoroff/internal/settings"
)

// Session is the part of the flow controller the console drives
type Session interface {
	View() flow.View
	Dispatch(ctx context.Context, cmd flow.Command) (flow.View, error)
	Subscribe() <-chan flow.View
	Done() <-chan struct{}
}

// Console is a line-oriented front-end
type Console struct {
	session Session
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger

	last *flow.View
}

// New creates a console front-end reading answers from in and writing to out
func New(session Session, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	return &Console{
		session: session,
		in:      in,
		out:     out,
		logger:  logger.With("component", "console"),
	}
}

// Run renders the session until it is done or ctx is cancelled.
// End of input while the prompt is still open counts as cancel.
func (c *Console) Run(ctx context.Context) error {
	updates := c.session.Subscribe()
	lines := readLines(ctx, c.in)

	c.render(c.session.View())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.session.Done():
			c.render(c.session.View())
			return nil
		case view := <-updates:
			c.render(view)
		case line, ok := <-lines:
			if !ok {
				lines = nil
				if !c.session.View().State.Terminal() {
					c.logger.Debug("input closed, cancelling")
					c.dispatch(ctx, flow.Cancel())
				}
				continue
			}
			c.handle(ctx, line)
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) {
	view := c.session.View()
	cmd, ok := CommandFor(view, line)
	if !ok {
		if !view.State.Terminal() {
			fmt.Fprintf(c.out, "unknown answer %q\n", strings.TrimSpace(line))
		}
		return
	}
	c.dispatch(ctx, cmd)
}

func (c *Console) dispatch(ctx context.Context, cmd flow.Command) {
	view, err := c.session.Dispatch(ctx, cmd)
	switch {
	case errors.Is(err, flow.ErrWakeOnKeyboardUnavailable):
		fmt.Fprintln(c.out, "wake on keyboard needs the soft signal and no locking")
	case errors.Is(err, flow.ErrSessionEnded):
	case err != nil:
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	c.render(view)
}

// CommandFor maps an answer typed at the prompt to a command for the current view
func CommandFor(view flow.View, line string) (flow.Command, bool) {
	answer := strings.ToLower(strings.TrimSpace(line))
	switch view.State {
	case flow.StateMainPrompt:
		switch answer {
		case "y", "yes":
			return flow.Confirm(), true
		case "n", "no", "q":
			return flow.Cancel(), true
		case "s":
			return flow.OpenSettings(), true
		}
	case flow.StateSettingsOpen:
		s := view.Settings
		switch answer {
		case "l":
			return flow.SetLockPC(!s.LockPC), true
		case "h", "o":
			if s.OffType == settings.OffHard {
				return flow.SetOffType(settings.OffSoft), true
			}
			return flow.SetOffType(settings.OffHard), true
		case "w":
			return flow.SetWakeOnKeyboard(!s.WakeOnKeyboard), true
		case "b":
			return flow.CloseSettings(), true
		case "y", "yes":
			return flow.Confirm(), true
		case "q":
			return flow.Cancel(), true
		}
	}
	return flow.Command{}, false
}

// render prints the view unless nothing visible changed since the last render
func (c *Console) render(view flow.View) {
	if c.last != nil && sameScreen(*c.last, view) {
		return
	}
	c.last = &view

	switch view.State {
	case flow.StateMainPrompt:
		fmt.Fprintln(c.out, "Turn off the monitors? [y]es / [n]o / [s]ettings")
		if view.Deadline != nil {
			fmt.Fprintf(c.out, "  turning off automatically at %s\n", view.Deadline.Format("15:04:05"))
		}
	case flow.StateSettingsOpen:
		s := view.Settings
		wake := onOff(s.WakeOnKeyboard)
		if !view.WakeOnKeyboardSelectable {
			wake += " (unavailable)"
		}
		fmt.Fprintln(c.out, "Settings")
		fmt.Fprintf(c.out, "  [l] lock PC first:       %s\n", onOff(s.LockPC))
		fmt.Fprintf(c.out, "  [h] power-off signal:    %s\n", s.OffType)
		fmt.Fprintf(c.out, "  [w] wake with %s key: %s\n", view.WakeKey, wake)
		fmt.Fprintln(c.out, "  [y] turn off now  [b] back")
	case flow.StateCancelled:
		fmt.Fprintln(c.out, "Cancelled.")
	case flow.StateConfirmedOff:
		c.renderPhase(view)
	}
}

func (c *Console) renderPhase(view flow.View) {
	switch view.Phase {
	case flow.PhaseLocking:
		fmt.Fprintln(c.out, "Locking workstation...")
	case flow.PhasePoweringOff:
		fmt.Fprintln(c.out, "Turning monitors off...")
	case flow.PhaseWaitingForWake:
		fmt.Fprintf(c.out, "Monitors off. Press %s to turn them back on.\n", view.WakeKey)
	case flow.PhaseDone:
		if r := view.LastReport; r != nil && r.Failed > 0 {
			fmt.Fprintf(c.out, "Done: %d of %d monitors failed (%s).\n", r.Failed, r.Monitors, r.Mode)
			return
		}
		fmt.Fprintln(c.out, "Done.")
	}
}

func sameScreen(a, b flow.View) bool {
	return a.State == b.State &&
		a.Phase == b.Phase &&
		a.Settings == b.Settings &&
		a.WakeOnKeyboardSelectable == b.WakeOnKeyboardSelectable &&
		sameDeadline(a.Deadline, b.Deadline)
}

func sameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// readLines feeds input lines into a channel that is closed at end of input
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
