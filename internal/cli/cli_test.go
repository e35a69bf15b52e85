package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"monitoroff/internal/flow"
	"monitoroff/internal/settings"
	"monitoroff/internal/storage"
	"monitoroff/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestShowSettings(t *testing.T) {
	s := settings.Settings{OffType: settings.OffHard}

	var out bytes.Buffer
	e, err := newEncoder("yaml", &out)
	require.NoError(t, err)
	require.NoError(t, ShowSettings("/opt/monitoroff/settings.ini", s, e))
	assert.Equal(t, `path: /opt/monitoroff/settings.ini
settings:
    lock_pc: false
    monitor_off_type: 1
    monitor_on_method: false
wake_on_keyboard_selectable: false
`, out.String())

	out.Reset()
	e, err = newEncoder("json", &out)
	require.NoError(t, err)
	require.NoError(t, ShowSettings("settings.ini", settings.Defaults(), e))
	assert.JSONEq(t, `{
		"path": "settings.ini",
		"settings": {"lock_pc": false, "monitor_off_type": 0, "monitor_on_method": false},
		"wake_on_keyboard_selectable": true
	}`, out.String())
}

func TestNewEncoder_UnknownFormat(t *testing.T) {
	_, err := newEncoder("toml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSetSetting(t *testing.T) {
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.ini"), testLogger())
	store.Load()

	s, err := SetSetting(store, settings.FieldWakeOnKeyboard, "1")
	require.NoError(t, err)
	assert.True(t, s.WakeOnKeyboard)

	// locking rules out wake on keyboard, so it is switched off as well
	s, err = SetSetting(store, settings.FieldLockPC, "true")
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{LockPC: true}, s)

	reloaded := settings.NewStore(store.Path(), testLogger()).Load()
	assert.Equal(t, settings.Settings{LockPC: true}, reloaded)

	_, err = SetSetting(store, settings.FieldWakeOnKeyboard, "1")
	assert.ErrorIs(t, err, flow.ErrWakeOnKeyboardUnavailable)

	_, err = SetSetting(store, "volume", "1")
	assert.ErrorIs(t, err, settings.ErrInvalidField)

	_, err = SetSetting(store, settings.FieldOffType, "2")
	assert.ErrorIs(t, err, settings.ErrInvalidValue)
	assert.Equal(t, settings.Settings{LockPC: true}, store.Current())
}

func TestSetSetting_HardOffDisablesWakeOnKeyboard(t *testing.T) {
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.ini"), testLogger())
	store.Load()

	_, err := SetSetting(store, settings.FieldWakeOnKeyboard, "true")
	require.NoError(t, err)

	s, err := SetSetting(store, settings.FieldOffType, "hard")
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{OffType: settings.OffHard}, s)

	reloaded := settings.NewStore(store.Path(), testLogger()).Load()
	assert.Equal(t, settings.Settings{OffType: settings.OffHard}, reloaded)
}

func TestSetSetting_SaveFailureKeepsPreviousSettings(t *testing.T) {
	dir := t.TempDir()
	store := settings.NewStore(filepath.Join(dir, "settings.ini"), testLogger())
	store.Load()
	_, err := SetSetting(store, settings.FieldWakeOnKeyboard, "1")
	require.NoError(t, err)

	// a directory in place of the file makes the rename fail
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.MkdirAll(filepath.Join(store.Path(), "blocker"), 0o755))

	s, err := SetSetting(store, settings.FieldLockPC, "1")
	assert.Error(t, err)
	assert.Equal(t, settings.Settings{WakeOnKeyboard: true}, s)
	assert.Equal(t, settings.Settings{WakeOnKeyboard: true}, store.Current())
}

func TestShowHistory(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	var out bytes.Buffer
	e, _ := newEncoder("json", &out)
	require.NoError(t, ShowHistory(ctx, db, 10, e))
	assert.JSONEq(t, `[]`, out.String())

	base := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	for i, outcome := range []storage.Outcome{storage.OutcomeCancelled, storage.OutcomeConfirmed, storage.OutcomeCountdown} {
		require.NoError(t, db.CreateRun(ctx, &storage.Run{
			ID:        "run_" + string(outcome),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Outcome:   outcome,
			Monitors:  2,
		}))
	}

	out.Reset()
	e, _ = newEncoder("yaml", &out)
	require.NoError(t, ShowHistory(ctx, db, 2, e))
	assert.Contains(t, out.String(), "id: run_countdown")
	assert.Contains(t, out.String(), "id: run_confirmed")
	assert.NotContains(t, out.String(), "run_cancelled")
}
