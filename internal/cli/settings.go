package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"monitoroff/internal/flow"
	"monitoroff/internal/settings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	settingsCmd = cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved preferences",
	}
	settingsShowCmd = cobra.Command{
		Use:   "show",
		Short: "Print the saved preferences",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}
	settingsSetCmd = cobra.Command{
		Use:       "set <field> <value>",
		Short:     "Change one preference",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Fields,
		RunE:      runSettingsSet,
	}
)

func init() {
	settingsShowCmd.Flags().String("format", "yaml", "Output format: yaml or json")
	settingsCmd.AddCommand(&settingsShowCmd, &settingsSetCmd)
}

// Encoder writes a value in some output format
type Encoder interface {
	Encode(any) error
}

func newEncoder(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "yaml":
		return yaml.NewEncoder(w), nil
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

type settingsReport struct {
	Path                     string            `json:"path" yaml:"path"`
	Settings                 settings.Settings `json:"settings" yaml:"settings"`
	WakeOnKeyboardSelectable bool              `json:"wake_on_keyboard_selectable" yaml:"wake_on_keyboard_selectable"`
}

// ShowSettings encodes the settings together with their location
func ShowSettings(path string, s settings.Settings, e Encoder) error {
	return e.Encode(settingsReport{
		Path:                     path,
		Settings:                 s,
		WakeOnKeyboardSelectable: settings.CanEnableWakeOnKeyboard(s),
	})
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")
	e, err := newEncoder(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	store := a.settingsStore()
	return ShowSettings(store.Path(), store.Current(), e)
}

// SetSetting changes one field and saves the result in a single write.
// Enabling wake on keyboard is refused when the other settings rule it out;
// a change to another field that rules it out switches it off instead.
func SetSetting(store *settings.Store, field, value string) (settings.Settings, error) {
	current := store.Current()
	next, err := current.With(field, value)
	if err != nil {
		return current, err
	}
	if field == settings.FieldWakeOnKeyboard && next.WakeOnKeyboard && !settings.CanEnableWakeOnKeyboard(next) {
		return current, flow.ErrWakeOnKeyboardUnavailable
	}

	next = next.Normalize()
	if err := store.Save(next); err != nil {
		return current, err
	}
	return next, nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := SetSetting(a.settingsStore(), args[0], args[1])
	if err != nil {
		return err
	}
	e, _ := newEncoder("yaml", cmd.OutOrStdout())
	return e.Encode(s)
}
