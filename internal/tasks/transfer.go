package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/driveclone/internal/models"
)

// Transfer moves the bytes for one job. Each phase reports phase-local progress in 0..100.
//
// Implementations must return promptly once ctx is done.
type Transfer interface {
	Download(ctx context.Context, job models.CloneJob, report func(percent int)) error
	Upload(ctx context.Context, job models.CloneJob, report func(percent int)) error
}

const (
	DefaultStep     = 20
	DefaultInterval = 200 * time.Millisecond
)

// SimulatedTransfer advances progress by a fixed step on a ticker.
// It stands in for a real Drive transfer and never touches the network.
type SimulatedTransfer struct {
	Step     int
	Interval time.Duration
}

func (t SimulatedTransfer) Download(ctx context.Context, _ models.CloneJob, report func(int)) error {
	return t.run(ctx, report)
}

func (t SimulatedTransfer) Upload(ctx context.Context, _ models.CloneJob, report func(int)) error {
	return t.run(ctx, report)
}

func (t SimulatedTransfer) run(ctx context.Context, report func(int)) error {
	step := t.Step
	if step <= 0 {
		step = DefaultStep
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for pct := 0; pct < 100; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pct = min(100, pct+step)
			report(pct)
		}
	}
	return nil
}
