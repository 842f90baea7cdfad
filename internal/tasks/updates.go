package tasks

import (
	"fmt"

	"github.com/desertthunder/driveclone/internal/models"
)

// ProgressUpdate represents a progress event during a clone run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase    Phase            // Operation phase
	JobID    string           // Job the update refers to, empty for run-level events
	Status   models.JobStatus // Job status after the event
	Progress int              // Overall job progress, 0..100
	Step     int              // Current step number within phase
	Total    int              // Total steps in this phase
	Message  string           // Human-readable message for display
	Data     any              // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Select Phase = iota
	Download
	Upload
	Complete
	Fail
	NoJobs
	Resolve
)

func (p Phase) String() string {
	switch p {
	case Select:
		return "select"
	case Download:
		return "download"
	case Upload:
		return "upload"
	case Complete:
		return "complete"
	case Fail:
		return "fail"
	case NoJobs:
		return "no_jobs"
	case Resolve:
		return "resolve"
	default:
		return ""
	}
}

func noJobsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: NoJobs, Message: "No Links: add a Google Drive link to start cloning"}
}

func selectUpdate(step, total int, job models.CloneJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Select,
		JobID:   job.ID,
		Status:  job.Status,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Cloning %s...", step, total, job.FileName),
	}
}

func jobUpdate(phase Phase, job models.CloneJob) ProgressUpdate {
	var verb string
	switch phase {
	case Download:
		verb = "Downloading"
	case Upload:
		verb = "Uploading"
	}
	return ProgressUpdate{
		Phase:    phase,
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  fmt.Sprintf("%s %s (%d%%)", verb, job.FileName, job.Progress),
		Data:     job,
	}
}

func completeUpdate(job models.CloneJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Complete,
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  fmt.Sprintf("✓ %s cloned", job.FileName),
		Data:     job,
	}
}

func failUpdate(job models.CloneJob, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Fail,
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  fmt.Sprintf("✗ %s: %v", job.FileName, err),
		Data:     job,
	}
}

func resolveUpdate(step, total int, link string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s", step, total, link)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, link, err)
	}
	return ProgressUpdate{Phase: Resolve, Step: step, Total: total, Message: msg}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
