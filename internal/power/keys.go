package power

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKey = errors.New("unknown key")

// Key is a Windows virtual-key code.
type Key uint16

const (
	KeyBackspace Key = 0x08
	KeyTab       Key = 0x09
	KeyEnter     Key = 0x0D
	KeyShift     Key = 0x10
	KeyCtrl      Key = 0x11
	KeyAlt       Key = 0x12
	KeyEscape    Key = 0x1B
	KeySpace     Key = 0x20

	// DefaultWakeKey is polled when no key is configured
	DefaultWakeKey = KeySpace
)

var namedKeys = map[string]Key{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"enter":     KeyEnter,
	"shift":     KeyShift,
	"ctrl":      KeyCtrl,
	"alt":       KeyAlt,
	"escape":    KeyEscape,
	"space":     KeySpace,
}

// ParseKey maps a key name (space, enter, a..z, 0..9, f1..f12, ...) to its virtual-key code.
func ParseKey(name string) (Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if k, ok := namedKeys[n]; ok {
		return k, nil
	}
	switch {
	case len(n) == 1 && n[0] >= 'a' && n[0] <= 'z':
		return Key(0x41 + n[0] - 'a'), nil
	case len(n) == 1 && n[0] >= '0' && n[0] <= '9':
		return Key(0x30 + n[0] - '0'), nil
	case len(n) >= 2 && n[0] == 'f':
		var f int
		if _, err := fmt.Sscanf(n[1:], "%d", &f); err == nil && f >= 1 && f <= 12 && fmt.Sprint(f) == n[1:] {
			return Key(0x70 + f - 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

func (k Key) String() string {
	for name, key := range namedKeys {
		if key == k {
			return name
		}
	}
	switch {
	case k >= 0x41 && k <= 0x5A:
		return string(rune('a' + k - 0x41))
	case k >= 0x30 && k <= 0x39:
		return string(rune('0' + k - 0x30))
	case k >= 0x70 && k <= 0x7B:
		return fmt.Sprintf("f%d", k-0x70+1)
	}
	return fmt.Sprintf("vk(0x%02X)", uint16(k))
}
