package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/driveclone/internal/shared"
)

// FileType classifies the resource a Drive link points at.
type FileType string

const (
	FileTypeFile   FileType = "file"
	FileTypeFolder FileType = "folder"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	return t == FileTypeFile || t == FileTypeFolder
}

// JobStatus is the lifecycle state of a [CloneJob].
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusUploading   JobStatus = "uploading"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []JobStatus{StatusQueued, StatusDownloading, StatusUploading, StatusCompleted, StatusFailed}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusUploading, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsActive reports whether a transfer is in flight for the job.
func (s JobStatus) IsActive() bool {
	return s == StatusDownloading || s == StatusUploading
}

// IsTerminal reports whether the job has finished, successfully or not.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// transitions holds the allowed status moves for [CloneJob.Merge].
// failed -> queued is deliberately absent; see [CloneJob.Requeue].
var transitions = map[JobStatus][]JobStatus{
	StatusQueued:      {StatusDownloading},
	StatusDownloading: {StatusUploading, StatusFailed},
	StatusUploading:   {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a job may move from one status to another.
// Staying in the same non-terminal status is always allowed.
func CanTransition(from, to JobStatus) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Error codes recorded on failed jobs.
const (
	CodeTransferFailed = "transfer_failed"
	CodeTimeout        = "timeout"
	CodeCancelled      = "cancelled"
	CodeInterrupted    = "interrupted"
)

// CloneJob is one requested copy of a Drive file or folder.
type CloneJob struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"sourceUrl"`
	FileName  string    `json:"fileName"`
	FileType  FileType  `json:"fileType"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCloneJob creates a queued job with a fresh id.
func NewCloneJob(sourceURL, fileName string, fileType FileType) CloneJob {
	now := time.Now().UTC()
	return CloneJob{
		ID:        shared.GenerateID(),
		SourceURL: sourceURL,
		FileName:  fileName,
		FileType:  fileType,
		Status:    StatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the job against the lifecycle invariants.
func (j CloneJob) Validate() error {
	switch {
	case j.ID == "":
		return &shared.ValidationError{Field: "id", Message: "is required"}
	case j.SourceURL == "":
		return &shared.ValidationError{Field: "sourceUrl", Message: "is required"}
	case !j.FileType.Valid():
		return &shared.ValidationError{Field: "fileType", Message: fmt.Sprintf("unknown file type %q", j.FileType)}
	case !j.Status.Valid():
		return &shared.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", j.Status)}
	case j.Progress < 0 || j.Progress > 100:
		return &shared.ValidationError{Field: "progress", Message: fmt.Sprintf("%d is outside [0,100]", j.Progress)}
	case j.Status == StatusQueued && j.Progress != 0:
		return &shared.ValidationError{Field: "progress", Message: "queued job must have progress 0"}
	case j.Status == StatusCompleted && j.Progress != 100:
		return &shared.ValidationError{Field: "progress", Message: "completed job must have progress 100"}
	case j.Status != StatusFailed && (j.Error != "" || j.ErrorCode != ""):
		return &shared.ValidationError{Field: "error", Message: "only failed jobs carry an error"}
	}
	return nil
}

// JobPatch is a partial update merged atomically into a job. Nil fields are left unchanged.
type JobPatch struct {
	Status    *JobStatus
	Progress  *int
	Error     *string
	ErrorCode *string
}

// StatusPatch builds a patch that moves a job to status with the given progress.
func StatusPatch(status JobStatus, progress int) JobPatch {
	return JobPatch{Status: &status, Progress: &progress}
}

// ProgressPatch builds a progress-only patch.
func ProgressPatch(progress int) JobPatch {
	return JobPatch{Progress: &progress}
}

// FailurePatch builds a patch that moves a job to failed. Progress is frozen at its current value.
func FailurePatch(code, message string) JobPatch {
	status := StatusFailed
	return JobPatch{Status: &status, Error: &message, ErrorCode: &code}
}

// Merge applies p to a copy of j and returns the result.
//
// Terminal jobs return [shared.ErrJobFinalized]; a status move outside the lifecycle returns [shared.ErrInvalidTransition].
// A progress value lower than the current one is ignored while the job is active.
func (j CloneJob) Merge(p JobPatch, now time.Time) (CloneJob, error) {
	if j.Status.IsTerminal() {
		return j, fmt.Errorf("%w: %s is %s", shared.ErrJobFinalized, j.ID, j.Status)
	}

	next := j
	if p.Status != nil && *p.Status != j.Status {
		if !CanTransition(j.Status, *p.Status) {
			return j, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, j.Status, *p.Status)
		}
		next.Status = *p.Status
	}

	switch next.Status {
	case StatusFailed:
		if p.Error != nil {
			next.Error = *p.Error
		}
		if p.ErrorCode != nil {
			next.ErrorCode = *p.ErrorCode
		}
		if next.ErrorCode == "" {
			next.ErrorCode = CodeTransferFailed
		}
	case StatusCompleted:
		next.Progress = 100
	case StatusQueued:
		next.Progress = 0
	default:
		if p.Progress != nil {
			next.Progress = max(next.Progress, min(100, max(0, *p.Progress)))
		}
	}

	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return j, err
	}
	return next, nil
}

// Requeue resets a failed job to queued with progress 0, clearing the error.
func (j CloneJob) Requeue(now time.Time) (CloneJob, error) {
	if j.Status != StatusFailed {
		return j, fmt.Errorf("%w: only failed jobs can be retried, %s is %s", shared.ErrInvalidTransition, j.ID, j.Status)
	}

	j.Status = StatusQueued
	j.Progress = 0
	j.Error = ""
	j.ErrorCode = ""
	j.UpdatedAt = now
	return j, nil
}

// Interrupt marks an active job as failed with [CodeInterrupted], keeping its progress.
// Jobs that are not active are returned unchanged.
func (j CloneJob) Interrupt(now time.Time) CloneJob {
	if !j.Status.IsActive() {
		return j
	}
	j.Status = StatusFailed
	j.Error = "transfer interrupted before completion"
	j.ErrorCode = CodeInterrupted
	j.UpdatedAt = now
	return j
}
