package power

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"monitoroff/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMonitor is a test double for Monitor
type MockMonitor struct {
	Name       string
	AcquireErr error
	SetErr     error
	Panic      bool

	Acquired int
	Released int
	Modes    []Mode
	Events   *[]string
}

func (m *MockMonitor) Description() string { return m.Name }

func (m *MockMonitor) Acquire() error {
	m.Acquired++
	return m.AcquireErr
}

func (m *MockMonitor) SetPowerMode(mode Mode) error {
	if m.Panic {
		panic("driver exploded")
	}
	if m.Events != nil {
		*m.Events = append(*m.Events, m.Name+":"+mode.String())
	}
	m.Modes = append(m.Modes, mode)
	return m.SetErr
}

func (m *MockMonitor) Release() error {
	m.Released++
	return nil
}

// MockPlatform is a test double for Platform
type MockPlatform struct {
	mu          sync.Mutex
	MonitorList []*MockMonitor
	MonitorsErr error
	LockErr     error
	LockCount   int
	// PressedAfter is the number of KeyDown polls that report "not pressed"
	PressedAfter int
	KeyErr       error
	KeyPolls     int
}

func (p *MockPlatform) Monitors() ([]Monitor, error) {
	if p.MonitorsErr != nil {
		return nil, p.MonitorsErr
	}
	monitors := make([]Monitor, len(p.MonitorList))
	for i, m := range p.MonitorList {
		monitors[i] = m
	}
	return monitors, nil
}

func (p *MockPlatform) LockWorkstation() error {
	p.LockCount++
	return p.LockErr
}

func (p *MockPlatform) KeyDown(Key) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.KeyPolls++
	if p.KeyErr != nil {
		return false, p.KeyErr
	}
	return p.KeyPolls > p.PressedAfter, nil
}

func newTestController(platform Platform, clk clock.Clock) *Controller {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewController(platform, clk, 20*time.Millisecond, logger)
}

func TestSetMonitorPower_NoMonitors(t *testing.T) {
	c := newTestController(&MockPlatform{}, &clock.MockClock{})

	report := c.SetMonitorPower(ModeOffHard)
	assert.Equal(t, 0, report.Monitors)
	assert.NoError(t, report.Err())
}

func TestSetMonitorPower_EnumerationFails(t *testing.T) {
	c := newTestController(&MockPlatform{MonitorsErr: ErrNotWindows}, &clock.MockClock{})

	report := c.SetMonitorPower(ModeOffSoft)
	assert.Equal(t, 0, report.Monitors)
	assert.NoError(t, report.Err())
}

func TestSetMonitorPower_AllMonitors(t *testing.T) {
	platform := &MockPlatform{MonitorList: []*MockMonitor{{Name: "left"}, {Name: "right"}}}
	c := newTestController(platform, &clock.MockClock{})

	report := c.SetMonitorPower(ModeOffHard)
	assert.Equal(t, 2, report.Monitors)
	assert.Equal(t, 2, report.Succeeded())
	for _, m := range platform.MonitorList {
		assert.Equal(t, []Mode{ModeOffHard}, m.Modes)
		assert.Equal(t, 1, m.Acquired)
		assert.Equal(t, 1, m.Released)
	}
}

func TestSetMonitorPower_OneMonitorFails(t *testing.T) {
	errUnsupported := errors.New("unsupported VCP code")
	platform := &MockPlatform{MonitorList: []*MockMonitor{
		{Name: "a"},
		{Name: "b", SetErr: errUnsupported},
		{Name: "c"},
	}}
	c := newTestController(platform, &clock.MockClock{})

	report := c.SetMonitorPower(ModeOffSoft)
	assert.Equal(t, 3, report.Monitors)
	assert.Equal(t, 2, report.Succeeded())
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, report.Failed[0].Index)
	assert.ErrorIs(t, report.Err(), errUnsupported)

	assert.Equal(t, []Mode{ModeOffSoft}, platform.MonitorList[0].Modes)
	assert.Equal(t, []Mode{ModeOffSoft}, platform.MonitorList[2].Modes)
	// the failing monitor is still released
	assert.Equal(t, 1, platform.MonitorList[1].Released)
}

func TestSetMonitorPower_AcquireFails(t *testing.T) {
	platform := &MockPlatform{MonitorList: []*MockMonitor{
		{Name: "busy", AcquireErr: errors.New("in use")},
		{Name: "ok"},
	}}
	c := newTestController(platform, &clock.MockClock{})

	report := c.SetMonitorPower(ModeOffHard)
	require.Len(t, report.Failed, 1)
	assert.Empty(t, platform.MonitorList[0].Modes)
	assert.Equal(t, 0, platform.MonitorList[0].Released)
	assert.Equal(t, []Mode{ModeOffHard}, platform.MonitorList[1].Modes)
}

func TestSetMonitorPower_PanicIsContained(t *testing.T) {
	platform := &MockPlatform{MonitorList: []*MockMonitor{
		{Name: "bad", Panic: true},
		{Name: "good"},
	}}
	c := newTestController(platform, &clock.MockClock{})

	var report Report
	require.NotPanics(t, func() { report = c.SetMonitorPower(ModeOffHard) })
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, platform.MonitorList[0].Released)
	assert.Equal(t, []Mode{ModeOffHard}, platform.MonitorList[1].Modes)
}

func TestLockWorkstation_ErrorIsSwallowed(t *testing.T) {
	platform := &MockPlatform{LockErr: errors.New("access denied")}
	c := newTestController(platform, &clock.MockClock{})

	assert.NotPanics(t, c.LockWorkstation)
	assert.Equal(t, 1, platform.LockCount)
}

func TestWaitForWakeKey_PowersOnAfterPress(t *testing.T) {
	platform := &MockPlatform{
		MonitorList:  []*MockMonitor{{Name: "main"}},
		PressedAfter: 2,
	}
	clk := &clock.MockClock{}
	c := newTestController(platform, clk)

	report, err := c.WaitForWakeKey(context.Background(), KeySpace)
	require.NoError(t, err)
	assert.Equal(t, ModeOn, report.Mode)
	assert.Equal(t, 1, report.Monitors)
	assert.Equal(t, 3, platform.KeyPolls)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, clk.Waits())
	assert.Equal(t, []Mode{ModeOn}, platform.MonitorList[0].Modes)
}

func TestWaitForWakeKey_Cancelled(t *testing.T) {
	platform := &MockPlatform{
		MonitorList:  []*MockMonitor{{Name: "main"}},
		PressedAfter: 1 << 30,
	}
	c := newTestController(platform, &clock.MockClock{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WaitForWakeKey(ctx, KeySpace)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, platform.MonitorList[0].Modes)
}

func TestWaitForWakeKey_KeyStateError(t *testing.T) {
	platform := &MockPlatform{
		MonitorList: []*MockMonitor{{Name: "main"}},
		KeyErr:      ErrNotWindows,
	}
	c := newTestController(platform, &clock.MockClock{})

	_, err := c.WaitForWakeKey(context.Background(), KeySpace)
	assert.ErrorIs(t, err, ErrNotWindows)
	assert.Empty(t, platform.MonitorList[0].Modes)
}

func TestStartWakeWatch(t *testing.T) {
	platform := &MockPlatform{MonitorList: []*MockMonitor{{Name: "main"}}}
	c := newTestController(platform, &clock.MockClock{})

	ch := StartWakeWatch(context.Background(), c, KeyEnter)

	select {
	case result := <-ch:
		require.NoError(t, result.Err)
		assert.Equal(t, 1, result.Report.Succeeded())
	case <-time.After(time.Second):
		t.Fatal("wake watch did not complete")
	}
	_, open := <-ch
	assert.False(t, open)
}
