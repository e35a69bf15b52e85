package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monitoroff/internal/settings"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

// Outcome is how a prompt session ended
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCountdown Outcome = "countdown"
	OutcomeCancelled Outcome = "cancelled"
)

// Run is one prompt session recorded in the history
type Run struct {
	ID        string            `json:"id" yaml:"id"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Outcome   Outcome           `json:"outcome" yaml:"outcome"`
	Settings  settings.Settings `json:"settings" yaml:"settings"`
	Monitors  int               `json:"monitors" yaml:"monitors"`
	Failed    int               `json:"failed" yaml:"failed"`
	WokeAt    *time.Time        `json:"woke_at,omitempty" yaml:"woke_at,omitempty"`
}

// Validate validates the run
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRun)
	}
	switch r.Outcome {
	case OutcomeConfirmed, OutcomeCountdown, OutcomeCancelled:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidRun, r.Outcome)
	}
	if r.Failed < 0 || r.Failed > r.Monitors {
		return fmt.Errorf("%w: failed=%d monitors=%d", ErrInvalidRun, r.Failed, r.Monitors)
	}
	return nil
}

// Storage defines the interface for run history persistence
type Storage interface {
	// Runs
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	MarkWoken(ctx context.Context, id string, at time.Time) error

	// Lifecycle
	Close() error
}
