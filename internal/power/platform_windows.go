//go:build windows

package power

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	dxva2  = windows.NewLazySystemDLL("dxva2.dll")

	procEnumDisplayMonitors                     = user32.NewProc("EnumDisplayMonitors")
	procLockWorkStation                         = user32.NewProc("LockWorkStation")
	procGetAsyncKeyState                        = user32.NewProc("GetAsyncKeyState")
	procGetNumberOfPhysicalMonitorsFromHMONITOR = dxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	procGetPhysicalMonitorsFromHMONITOR         = dxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	procSetVCPFeature                           = dxva2.NewProc("SetVCPFeature")
	procDestroyPhysicalMonitor                  = dxva2.NewProc("DestroyPhysicalMonitor")
)

// VCP code for the DPM/DPMS power mode
const vcpPowerMode = 0xD6

// physicalMonitor mirrors PHYSICAL_MONITOR
type physicalMonitor struct {
	handle      windows.Handle
	description [128]uint16
}

// EnumDisplayMonitors callbacks are a limited resource, so one is shared
var (
	enumMu       sync.Mutex
	enumHandles  []uintptr
	enumCallback = windows.NewCallback(func(hmonitor, _, _, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hmonitor)
		return 1
	})
)

// WindowsPlatform implements Platform for Windows using user32.dll and dxva2.dll
type WindowsPlatform struct {
	logger *slog.Logger
}

// NewWindowsPlatform creates a new Windows platform implementation
func NewWindowsPlatform(logger *slog.Logger) *WindowsPlatform {
	return &WindowsPlatform{
		logger: logger.With("component", "platform"),
	}
}

// Monitors lists every physical monitor behind every display
func (p *WindowsPlatform) Monitors() ([]Monitor, error) {
	enumMu.Lock()
	enumHandles = enumHandles[:0]
	ret, _, err := procEnumDisplayMonitors.Call(0, 0, enumCallback, 0)
	handles := append([]uintptr(nil), enumHandles...)
	enumMu.Unlock()
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	var monitors []Monitor
	for _, hmonitor := range handles {
		var count uint32
		ret, _, err := procGetNumberOfPhysicalMonitorsFromHMONITOR.Call(hmonitor, uintptr(unsafe.Pointer(&count)))
		if ret == 0 {
			p.logger.Warn("failed to count physical monitors", "hmonitor", hmonitor, "error", err)
			continue
		}
		for i := uint32(0); i < count; i++ {
			monitors = append(monitors, &windowsMonitor{hmonitor: hmonitor, index: i, count: count})
		}
	}
	return monitors, nil
}

// LockWorkstation locks the Windows workstation using user32.dll
func (p *WindowsPlatform) LockWorkstation() error {
	ret, _, err := procLockWorkStation.Call()
	if ret == 0 {
		// LockWorkStation returns 0 on failure
		return fmt.Errorf("LockWorkStation: %w", err)
	}
	return nil
}

// KeyDown samples the asynchronous key state; the high bit means held
func (p *WindowsPlatform) KeyDown(key Key) (bool, error) {
	ret, _, _ := procGetAsyncKeyState.Call(uintptr(key))
	return ret&0x8000 != 0, nil
}

// NewPlatform creates a new platform implementation for the current OS
func NewPlatform(logger *slog.Logger) Platform {
	return NewWindowsPlatform(logger)
}

type windowsMonitor struct {
	hmonitor    uintptr
	index       uint32
	count       uint32
	physical    *physicalMonitor
	description string
}

func (m *windowsMonitor) Description() string {
	if m.description != "" {
		return m.description
	}
	return fmt.Sprintf("display 0x%x #%d", m.hmonitor, m.index)
}

// Acquire opens the physical monitor handle; the sibling handles are closed straight away
func (m *windowsMonitor) Acquire() error {
	if m.physical != nil {
		return nil
	}
	all := make([]physicalMonitor, m.count)
	ret, _, err := procGetPhysicalMonitorsFromHMONITOR.Call(m.hmonitor, uintptr(m.count), uintptr(unsafe.Pointer(&all[0])))
	if ret == 0 {
		return fmt.Errorf("GetPhysicalMonitorsFromHMONITOR: %w", err)
	}
	for i := range all {
		if uint32(i) != m.index {
			_, _, _ = procDestroyPhysicalMonitor.Call(uintptr(all[i].handle))
		}
	}
	pm := all[m.index]
	m.physical = &pm
	m.description = windows.UTF16ToString(pm.description[:])
	return nil
}

func (m *windowsMonitor) SetPowerMode(mode Mode) error {
	if m.physical == nil {
		return ErrNotAcquired
	}
	ret, _, err := procSetVCPFeature.Call(uintptr(m.physical.handle), vcpPowerMode, uintptr(mode.vcpValue()))
	if ret == 0 {
		return fmt.Errorf("SetVCPFeature(%s): %w", mode, err)
	}
	return nil
}

func (m *windowsMonitor) Release() error {
	if m.physical == nil {
		return nil
	}
	ret, _, err := procDestroyPhysicalMonitor.Call(uintptr(m.physical.handle))
	m.physical = nil
	if ret == 0 {
		return fmt.Errorf("DestroyPhysicalMonitor: %w", err)
	}
	return nil
}

// Ensure WindowsPlatform implements Platform
var _ Platform = (*WindowsPlatform)(nil)
