package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanEnableWakeOnKeyboard(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     bool
	}{
		{"defaults", Defaults(), true},
		{"locking", Settings{LockPC: true}, false},
		{"hard off", Settings{OffType: OffHard}, false},
		{"locking and hard off", Settings{LockPC: true, OffType: OffHard}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEnableWakeOnKeyboard(tt.settings))
		})
	}
}

func TestSettings_Normalize(t *testing.T) {
	assert.Equal(t, Settings{WakeOnKeyboard: true}, Settings{WakeOnKeyboard: true}.Normalize())
	assert.Equal(t, Settings{LockPC: true}, Settings{LockPC: true, WakeOnKeyboard: true}.Normalize())
	assert.Equal(t, Settings{OffType: OffHard}, Settings{OffType: OffHard, WakeOnKeyboard: true}.Normalize())
}

func TestSettings_With(t *testing.T) {
	s, err := Defaults().With(FieldOffType, "hard")
	require.NoError(t, err)
	assert.Equal(t, OffHard, s.OffType)

	s, err = s.With(FieldWakeOnKeyboard, "1")
	require.NoError(t, err)
	assert.True(t, s.WakeOnKeyboard)

	_, err = s.With(FieldOffType, "2")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.With("brightness", "1")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestSettings_Values(t *testing.T) {
	assert.Equal(t, map[string]string{
		FieldLockPC:         "1",
		FieldOffType:        "1",
		FieldWakeOnKeyboard: "0",
	}, Settings{LockPC: true, OffType: OffHard}.Values())
}
