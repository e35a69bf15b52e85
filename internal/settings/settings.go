// Package settings holds the persisted user preferences and the INI store behind them.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidField = errors.New("invalid settings field")
	ErrInvalidValue = errors.New("invalid settings value")
)

// SectionName is the single INI section holding the preferences
const SectionName = "Settings"

// Field names as they appear in the settings file
const (
	FieldLockPC         = "lock_pc"
	FieldOffType        = "monitor_off_type"
	FieldWakeOnKeyboard = "monitor_on_method"
)

// Fields lists every persisted field in file order
var Fields = []string{FieldLockPC, FieldOffType, FieldWakeOnKeyboard}

// OffType selects the power-off signal sent to the monitors
type OffType int

const (
	OffSoft OffType = 0
	OffHard OffType = 1
)

func (t OffType) String() string {
	switch t {
	case OffSoft:
		return "soft"
	case OffHard:
		return "hard"
	default:
		return fmt.Sprintf("off_type(%d)", int(t))
	}
}

// ParseOffType accepts "0"/"1" as stored on disk and "soft"/"hard"
func ParseOffType(value string) (OffType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "soft":
		return OffSoft, nil
	case "1", "hard":
		return OffHard, nil
	}
	return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, FieldOffType, value)
}

// Settings are the user preferences
type Settings struct {
	LockPC         bool    `json:"lock_pc" yaml:"lock_pc"`
	OffType        OffType `json:"monitor_off_type" yaml:"monitor_off_type"`
	WakeOnKeyboard bool    `json:"monitor_on_method" yaml:"monitor_on_method"`
}

// Defaults returns the record written when nothing usable is on disk
func Defaults() Settings {
	return Settings{
		LockPC:         false,
		OffType:        OffSoft,
		WakeOnKeyboard: false,
	}
}

// Validate checks the enum field
func (s Settings) Validate() error {
	if s.OffType != OffSoft && s.OffType != OffHard {
		return fmt.Errorf("%w: %s=%d", ErrInvalidValue, FieldOffType, int(s.OffType))
	}
	return nil
}

// CanEnableWakeOnKeyboard reports whether waking by key press may be selected.
// It requires no workstation lock and the soft power-off signal.
func CanEnableWakeOnKeyboard(s Settings) bool {
	return !s.LockPC && s.OffType == OffSoft
}

// Normalize forces WakeOnKeyboard off when it cannot be enabled
func (s Settings) Normalize() Settings {
	if !CanEnableWakeOnKeyboard(s) {
		s.WakeOnKeyboard = false
	}
	return s
}

// With returns a copy of s with one field set from its string form
func (s Settings) With(field, value string) (Settings, error) {
	switch field {
	case FieldLockPC:
		b, err := parseFlag(field, value)
		if err != nil {
			return s, err
		}
		s.LockPC = b
	case FieldOffType:
		t, err := ParseOffType(value)
		if err != nil {
			return s, err
		}
		s.OffType = t
	case FieldWakeOnKeyboard:
		b, err := parseFlag(field, value)
		if err != nil {
			return s, err
		}
		s.WakeOnKeyboard = b
	default:
		return s, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return s, nil
}

// Values returns the on-disk string form of every field
func (s Settings) Values() map[string]string {
	return map[string]string{
		FieldLockPC:         formatFlag(s.LockPC),
		FieldOffType:        strconv.Itoa(int(s.OffType)),
		FieldWakeOnKeyboard: formatFlag(s.WakeOnKeyboard),
	}
}

func parseFlag(field, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, field, value)
	}
	return b, nil
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
