// Package flow is the interaction state machine behind the prompt window.
//
// Front-ends render a View and send Commands back; the Controller computes
// the next state, persists settings changes and runs the power-off sequence.
package flow

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"monitoroff/internal/power"
	"monitoroff/internal/settings"
)

var (
	ErrSessionEnded              = errors.New("session has ended")
	ErrInvalidTransition         = errors.New("command not allowed in current state")
	ErrWakeOnKeyboardUnavailable = errors.New("wake on keyboard requires soft power-off without locking")
	ErrUnknownCommand            = errors.New("unknown command")
)

// State of the prompt session
type State int

const (
	StateMainPrompt State = iota
	StateSettingsOpen
	StateConfirmedOff
	StateCancelled
)

var stateNames = map[State]string{
	StateMainPrompt:   "main_prompt",
	StateSettingsOpen: "settings_open",
	StateConfirmedOff: "confirmed_off",
	StateCancelled:    "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the session is over
func (s State) Terminal() bool {
	return s == StateConfirmedOff || s == StateCancelled
}

// Phase tracks the power-off sequence once confirmed
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLocking
	PhasePoweringOff
	PhaseWaitingForWake
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseIdle:           "idle",
	PhaseLocking:        "locking",
	PhasePoweringOff:    "powering_off",
	PhaseWaitingForWake: "waiting_for_wake",
	PhaseDone:           "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CommandKind identifies a user action
type CommandKind int

const (
	CommandConfirm CommandKind = iota
	CommandCancel
	CommandOpenSettings
	CommandCloseSettings
	CommandSetLockPC
	CommandSetOffType
	CommandSetWakeOnKeyboard
)

var commandNames = map[CommandKind]string{
	CommandConfirm:           "confirm",
	CommandCancel:            "cancel",
	CommandOpenSettings:      "open_settings",
	CommandCloseSettings:     "close_settings",
	CommandSetLockPC:         "set_" + settings.FieldLockPC,
	CommandSetOffType:        "set_" + settings.FieldOffType,
	CommandSetWakeOnKeyboard: "set_" + settings.FieldWakeOnKeyboard,
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ParseCommandKind maps a command name back to its kind
func ParseCommandKind(name string) (CommandKind, error) {
	for kind, n := range commandNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Command is a user action dispatched to the Controller
type Command struct {
	Kind    CommandKind
	Enabled bool
	OffType settings.OffType
}

func Confirm() Command { return Command{Kind: CommandConfirm} }
func Cancel() Command { return Command{Kind: CommandCancel} }
func OpenSettings() Command { return Command{Kind: CommandOpenSettings} }
func CloseSettings() Command { return Command{Kind: CommandCloseSettings} }

func SetLockPC(enabled bool) Command {
	return Command{Kind: CommandSetLockPC, Enabled: enabled}
}

func SetOffType(t settings.OffType) Command {
	return Command{Kind: CommandSetOffType, OffType: t}
}

func SetWakeOnKeyboard(enabled bool) Command {
	return Command{Kind: CommandSetWakeOnKeyboard, Enabled: enabled}
}

// ParseCommand builds a command from its name and an optional value.
// Toggles take a boolean ("1", "true", ...); set_monitor_off_type takes "0"/"1"/"soft"/"hard".
func ParseCommand(name, value string) (Command, error) {
	kind, err := ParseCommandKind(name)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: kind}
	switch kind {
	case CommandSetLockPC, CommandSetWakeOnKeyboard:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s=%q", settings.ErrInvalidValue, name, value)
		}
		cmd.Enabled = enabled
	case CommandSetOffType:
		t, err := settings.ParseOffType(value)
		if err != nil {
			return Command{}, err
		}
		cmd.OffType = t
	}
	return cmd, nil
}

// ReportView summarizes the last power change for display
type ReportView struct {
	Mode     string `json:"mode"`
	Monitors int    `json:"monitors"`
	Failed   int    `json:"failed"`
}

func newReportView(r power.Report) *ReportView {
	return &ReportView{Mode: r.Mode.String(), Monitors: r.Monitors, Failed: len(r.Failed)}
}

// View is an immutable snapshot of the session for rendering
type View struct {
	State                    State             `json:"state"`
	Phase                    Phase             `json:"phase"`
	Settings                 settings.Settings `json:"settings"`
	WakeOnKeyboardSelectable bool              `json:"wake_on_keyboard_selectable"`
	WakeKey                  string            `json:"wake_key"`
	Deadline                 *time.Time        `json:"deadline,omitempty"`
	LastReport               *ReportView       `json:"last_report,omitempty"`
}

// offMode maps the stored off type to the power mode sent to the monitors
func offMode(t settings.OffType) power.Mode {
	if t == settings.OffHard {
		return power.ModeOffHard
	}
	return power.ModeOffSoft
}
