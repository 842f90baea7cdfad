// Package models defines the clone job entity shared by the store, the transfer driver, the journal and the HTTP layer.
//
// A [CloneJob] moves through a fixed lifecycle:
//
//	queued -> downloading -> uploading -> completed
//	                 \            \
//	                  +------------+--> failed
//
// A failed job may only leave its terminal state through [CloneJob.Requeue], which is the manual retry path.
// All field changes go through [CloneJob.Merge] so the invariants below hold after every mutation:
//   - progress is within [0,100] and never decreases while the job is active
//   - a queued job has progress 0
//   - a completed job has progress 100
//   - error details are only present on a failed job
package models
