package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
)

// DriverOpts configures a [Driver].
type DriverOpts struct {
	Transfer     Transfer      // Defaults to a [SimulatedTransfer]
	PhaseTimeout time.Duration // Per-phase deadline; zero disables it
	Logger       *log.Logger
}

// Driver advances a single queued job through download and upload.
//
// The driver is the only writer of an active job's status. External cancellation goes through [Driver.Cancel],
// which cancels the job context; the driver then records the failure itself.
type Driver struct {
	store        *store.Store
	transfer     Transfer
	phaseTimeout time.Duration
	logger       *log.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewDriver creates a driver that mutates jobs in st.
func NewDriver(st *store.Store, opts DriverOpts) *Driver {
	transfer := opts.Transfer
	if transfer == nil {
		transfer = SimulatedTransfer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Driver{
		store:        st,
		transfer:     transfer,
		phaseTimeout: opts.PhaseTimeout,
		logger:       shared.WithLogger(logger, "component", "driver"),
		active:       make(map[string]context.CancelFunc),
	}
}

// phase describes how a transfer phase maps onto overall job progress.
type phase struct {
	name   Phase
	status models.JobStatus
	base   int
	run    func(context.Context, models.CloneJob, func(int)) error
}

// Drive runs the job with id to completion or failure.
//
// Download maps to overall progress 0..50 and upload to 50..100; the upload never starts before the download finishes.
// On failure the job is moved to failed with progress frozen, and the returned error wraps one of
// [shared.ErrCancelled], [shared.ErrTransferTimeout] or [shared.ErrTransferFailed].
func (d *Driver) Drive(ctx context.Context, id string, progress chan<- ProgressUpdate) error {
	job, err := d.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status != models.StatusQueued {
		return fmt.Errorf("%w: %s is %s, not queued", shared.ErrInvalidTransition, id, job.Status)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !d.track(id, cancel) {
		return fmt.Errorf("%w: %s is already being driven", shared.ErrJobActive, id)
	}
	defer d.untrack(id)

	logger := shared.WithLogger(d.logger, "job", id)
	logger.Info("starting clone", "source", job.SourceURL, "type", job.FileType)

	phases := []phase{
		{name: Download, status: models.StatusDownloading, base: 0, run: d.transfer.Download},
		{name: Upload, status: models.StatusUploading, base: 50, run: d.transfer.Upload},
	}

	for _, p := range phases {
		job, err = d.store.Update(id, models.StatusPatch(p.status, p.base))
		if err != nil {
			return err
		}
		sendProgress(progress, jobUpdate(p.name, job))

		if err := d.runPhase(jobCtx, job, p, progress); err != nil {
			return d.fail(id, err, logger, progress)
		}
	}

	job, err = d.store.Update(id, models.StatusPatch(models.StatusCompleted, 100))
	if err != nil {
		return err
	}
	sendProgress(progress, completeUpdate(job))
	logger.Info("clone completed")
	return nil
}

// Cancel signals the active job with id to stop. It reports whether the job was active.
func (d *Driver) Cancel(id string) bool {
	d.mu.Lock()
	cancel, ok := d.active[id]
	d.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Active reports whether the job with id is currently being driven.
func (d *Driver) Active(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[id]
	return ok
}

func (d *Driver) runPhase(ctx context.Context, job models.CloneJob, p phase, progress chan<- ProgressUpdate) error {
	phaseCtx := ctx
	if d.phaseTimeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, d.phaseTimeout)
		defer cancel()
	}

	report := func(percent int) {
		overall := p.base + min(100, max(0, percent))/2
		updated, err := d.store.Update(job.ID, models.ProgressPatch(overall))
		if err != nil {
			d.logger.Debug("progress dropped", "job", job.ID, "error", err)
			return
		}
		sendProgress(progress, jobUpdate(p.name, updated))
	}

	err := p.run(phaseCtx, job, report)

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %s during %s", shared.ErrCancelled, job.ID, p.name)
	case err == nil:
		return nil
	case errors.Is(phaseCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s exceeded %s", shared.ErrTransferTimeout, p.name, d.phaseTimeout)
	default:
		return fmt.Errorf("%w: %w", shared.ErrTransferFailed, err)
	}
}

func (d *Driver) fail(id string, cause error, logger *log.Logger, progress chan<- ProgressUpdate) error {
	code := models.CodeTransferFailed
	switch {
	case errors.Is(cause, shared.ErrCancelled):
		code = models.CodeCancelled
	case errors.Is(cause, shared.ErrTransferTimeout):
		code = models.CodeTimeout
	}

	job, err := d.store.Update(id, models.FailurePatch(code, cause.Error()))
	if err != nil {
		logger.Error("failed to record job failure", "error", err)
		return errors.Join(cause, err)
	}

	logger.Warn("clone failed", "code", code, "progress", job.Progress, "error", cause)
	sendProgress(progress, failUpdate(job, cause))
	return cause
}

func (d *Driver) track(id string, cancel context.CancelFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.active[id]; ok {
		return false
	}
	d.active[id] = cancel
	return true
}

func (d *Driver) untrack(id string) {
	d.mu.Lock()
	delete(d.active, id)
	d.mu.Unlock()
}
