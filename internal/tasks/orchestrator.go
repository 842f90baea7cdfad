package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
)

// Recorder observes orchestrator activity, typically to export metrics.
type Recorder interface {
	RunStarted()
	JobFinished(status models.JobStatus, code string, elapsed time.Duration)
	SetBusy(busy bool)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted()                                         {}
func (nopRecorder) JobFinished(models.JobStatus, string, time.Duration) {}
func (nopRecorder) SetBusy(bool)                                        {}

// JobFailure pairs a failed job with the error that ended it.
type JobFailure struct {
	JobID string
	Err   error
}

// RunResult summarizes one orchestrator run.
type RunResult struct {
	Selected  int           // Jobs queued when the run started
	Completed int           // Jobs that reached completed
	Failed    int           // Jobs that ended in failed
	Skipped   int           // Jobs removed or changed between selection and driving
	Failures  []JobFailure  // Per-job failure details
	Empty     bool          // True when nothing was queued
	Duration  time.Duration // Wall time of the run
}

// OrchestratorOpts configures an [Orchestrator].
type OrchestratorOpts struct {
	Recorder Recorder
	Logger   *log.Logger
}

// Orchestrator drives queued jobs one at a time and exposes a busy flag.
// Only one run may be active per orchestrator; overlapping requests get [shared.ErrBusy].
type Orchestrator struct {
	store    *store.Store
	driver   *Driver
	recorder Recorder
	logger   *log.Logger

	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewOrchestrator creates an orchestrator over st using driver.
func NewOrchestrator(st *store.Store, driver *Driver, opts OrchestratorOpts) *Orchestrator {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		store:    st,
		driver:   driver,
		recorder: recorder,
		logger:   shared.WithLogger(logger, "component", "orchestrator"),
	}
}

// Busy reports whether a run is in progress.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Cancel stops the active job with id. See [Driver.Cancel].
func (o *Orchestrator) Cancel(id string) bool {
	return o.driver.Cancel(id)
}

// RunAll drives every job queued at call time, sequentially and in insertion order.
//
// An empty selection is not an error: the result has Empty set and a [NoJobs] update is sent.
// Job failures are collected in the result and do not stop the run. A cancelled ctx stops selecting further jobs.
func (o *Orchestrator) RunAll(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	if !o.acquire() {
		return nil, shared.ErrBusy
	}
	defer o.release()

	return o.run(ctx, progress), nil
}

// RunAsync starts a run in the background and returns immediately.
//
// The background loop keeps running while jobs are queued, each pass taking its own snapshot, so jobs
// whose own kick was refused with [shared.ErrBusy] are picked up even when the current pass drove nothing.
// Returns [shared.ErrBusy] if a run is already active.
func (o *Orchestrator) RunAsync(ctx context.Context, progress chan<- ProgressUpdate) error {
	if !o.acquire() {
		return shared.ErrBusy
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			o.run(ctx, progress)
			o.release()

			if ctx.Err() != nil || len(o.store.Queued()) == 0 || !o.acquire() {
				return
			}
		}
	}()
	return nil
}

// Wait blocks until background runs started by [Orchestrator.RunAsync] have returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) acquire() bool {
	if !o.busy.CompareAndSwap(false, true) {
		return false
	}
	o.recorder.SetBusy(true)
	return true
}

func (o *Orchestrator) release() {
	o.busy.Store(false)
	o.recorder.SetBusy(false)
}

func (o *Orchestrator) run(ctx context.Context, progress chan<- ProgressUpdate) *RunResult {
	start := time.Now()
	selected := o.store.Queued()
	result := &RunResult{Selected: len(selected)}

	if len(selected) == 0 {
		result.Empty = true
		o.logger.Info("no jobs to run")
		sendProgress(progress, noJobsUpdate())
		return result
	}

	o.recorder.RunStarted()
	o.logger.Info("starting run", "jobs", len(selected))

	for i, job := range selected {
		if ctx.Err() != nil {
			o.logger.Warn("run cancelled", "remaining", len(selected)-i)
			break
		}

		sendProgress(progress, selectUpdate(i+1, len(selected), job))
		jobStart := time.Now()
		err := o.driver.Drive(ctx, job.ID, progress)

		switch {
		case err == nil:
			result.Completed++
			o.recorder.JobFinished(models.StatusCompleted, "", time.Since(jobStart))
		case errors.Is(err, shared.ErrJobNotFound),
			errors.Is(err, shared.ErrInvalidTransition),
			errors.Is(err, shared.ErrJobActive):
			result.Skipped++
			o.logger.Warn("skipping job", "job", job.ID, "error", err)
		default:
			result.Failed++
			result.Failures = append(result.Failures, JobFailure{JobID: job.ID, Err: err})
			o.recorder.JobFinished(models.StatusFailed, failureCode(err), time.Since(jobStart))
		}
	}

	result.Duration = time.Since(start)
	o.logger.Info("run finished",
		"completed", result.Completed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, shared.ErrCancelled):
		return models.CodeCancelled
	case errors.Is(err, shared.ErrTransferTimeout):
		return models.CodeTimeout
	default:
		return models.CodeTransferFailed
	}
}

// Summary renders a one-line description of the run.
func (r *RunResult) Summary() string {
	if r.Empty {
		return "No Links: nothing queued to clone"
	}
	return fmt.Sprintf("%d completed, %d failed, %d skipped of %d selected", r.Completed, r.Failed, r.Skipped, r.Selected)
}
