package power

import (
	"errors"
	"fmt"
)

// MonitorError records the failure of one monitor during SetMonitorPower.
type MonitorError struct {
	Index       int
	Description string
	Err         error
}

func (e MonitorError) Error() string {
	return fmt.Sprintf("monitor %d (%s): %v", e.Index, e.Description, e.Err)
}

func (e MonitorError) Unwrap() error {
	return e.Err
}

// Report summarizes one SetMonitorPower call.
type Report struct {
	Mode     Mode           `json:"mode"`
	Monitors int            `json:"monitors"`
	Failed   []MonitorError `json:"-"`
}

// Succeeded returns the number of monitors that accepted the power mode
func (r Report) Succeeded() int {
	return r.Monitors - len(r.Failed)
}

// Err joins the per-monitor errors, or returns nil when every monitor succeeded
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}
