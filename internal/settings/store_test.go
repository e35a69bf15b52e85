package settings

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewStore(filepath.Join(t.TempDir(), DefaultFilename), logger)
}

func readValues(t *testing.T, path string) map[string]string {
	t.Helper()
	cfg, err := ini.Load(path)
	require.NoError(t, err)
	section, err := cfg.GetSection(SectionName)
	require.NoError(t, err)
	return section.KeysHash()
}

func TestStore_LoadMissingFileWritesDefaults(t *testing.T) {
	store := newTestStore(t)

	got := store.Load()
	assert.Equal(t, Defaults(), got)
	assert.Equal(t, map[string]string{
		FieldLockPC:         "0",
		FieldOffType:        "0",
		FieldWakeOnKeyboard: "0",
	}, readValues(t, store.Path()))
}

func TestStore_LoadUnparseableFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[Settings\nlock_pc = 1\n"), 0o644))

	assert.Equal(t, Defaults(), store.Load())
	assert.Equal(t, "0", readValues(t, store.Path())[FieldLockPC])
}

func TestStore_LoadMissingSection(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[Other]\nlock_pc = 1\n"), 0o644))

	assert.Equal(t, Defaults(), store.Load())
	assert.Len(t, readValues(t, store.Path()), 3)
}

func TestStore_LoadCorruptFields(t *testing.T) {
	store := newTestStore(t)
	content := "[Settings]\nlock_pc = maybe\nmonitor_off_type = 7\nmonitor_on_method = 1\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	got := store.Load()
	assert.Equal(t, Settings{LockPC: false, OffType: OffSoft, WakeOnKeyboard: true}, got)
	assert.Equal(t, map[string]string{
		FieldLockPC:         "0",
		FieldOffType:        "0",
		FieldWakeOnKeyboard: "1",
	}, readValues(t, store.Path()))
}

func TestStore_LoadMissingField(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[Settings]\nmonitor_off_type = 1\n"), 0o644))

	got := store.Load()
	assert.Equal(t, Settings{OffType: OffHard}, got)
	assert.Len(t, readValues(t, store.Path()), 3)
}

func TestStore_LoadExistingFileIsNotRewritten(t *testing.T) {
	store := newTestStore(t)
	content := "[Settings]\nlock_pc = 1\nmonitor_off_type = 1\nmonitor_on_method = 0\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	got := store.Load()
	assert.Equal(t, Settings{LockPC: true, OffType: OffHard}, got)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))
}

func TestStore_RoundTrip(t *testing.T) {
	for _, lock := range []bool{false, true} {
		for _, offType := range []OffType{OffSoft, OffHard} {
			for _, wake := range []bool{false, true} {
				want := Settings{LockPC: lock, OffType: offType, WakeOnKeyboard: wake}

				store := newTestStore(t)
				require.NoError(t, store.Save(want))

				reloaded := NewStore(store.Path(), slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
				assert.Equal(t, want, reloaded.Load())
			}
		}
	}
}

func TestStore_SaveInvalidLeavesFileUntouched(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Settings{LockPC: true}))
	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	err = store.Save(Settings{OffType: OffType(7)})
	assert.ErrorIs(t, err, ErrInvalidValue)

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, Settings{LockPC: true}, store.Current())
}

func TestStore_SaveWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// the target is a non-empty directory, so the final rename fails
	target := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.MkdirAll(filepath.Join(target, "keep"), 0o755))

	store := NewStore(target, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	assert.Error(t, store.Save(Settings{LockPC: true}))
	assert.Equal(t, Defaults(), store.Current())
	assert.DirExists(t, filepath.Join(target, "keep"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be cleaned up")
}

func TestStore_SetField(t *testing.T) {
	store := newTestStore(t)
	store.Load()

	got, err := store.SetField(FieldOffType, "1")
	require.NoError(t, err)
	assert.Equal(t, OffHard, got.OffType)
	assert.Equal(t, "1", readValues(t, store.Path())[FieldOffType])

	got, err = store.SetField(FieldLockPC, "true")
	require.NoError(t, err)
	assert.True(t, got.LockPC)
	assert.Equal(t, "1", readValues(t, store.Path())[FieldLockPC])

	_, err = store.SetField("volume", "1")
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = store.SetField(FieldWakeOnKeyboard, "sometimes")
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, Settings{LockPC: true, OffType: OffHard}, store.Current())
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store := newTestStore(t)
	store.Load()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SetField(FieldLockPC, formatFlag(i%2 == 0))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	values := readValues(t, store.Path())
	assert.Len(t, values, 3)
	assert.Equal(t, formatFlag(store.Current().LockPC), values[FieldLockPC])
}
