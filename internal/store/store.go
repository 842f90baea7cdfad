// Package store holds the ordered, in-memory collection of clone jobs.
//
// A [Store] is the single writer-facing owner of job state: every mutation is a whole-record merge under one lock,
// so a cancellation and a progress report racing on the same job never leave a partially written record.
// An optional [Journal] mirrors successful mutations to durable storage. Journal writes are serialized and
// always persist the record currently in memory, so a save that loses a race with Remove or Clear is dropped.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

// Journal receives every successful store mutation.
type Journal interface {
	Save(job models.CloneJob) error
	Delete(id string) error
	Clear() error
}

// Opts configures a [Store].
type Opts struct {
	Journal Journal
	Logger  *log.Logger
	Now     func() time.Time
}

// Store is an insertion-ordered map of jobs keyed by id.
type Store struct {
	mu    sync.RWMutex
	order []string
	jobs  map[string]models.CloneJob

	jmu     sync.Mutex // guards journal writes; acquired before mu, never while holding it
	journal Journal
	logger  *log.Logger
	now     func() time.Time
}

// New creates an empty store.
func New(opts Opts) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		jobs:    make(map[string]models.CloneJob),
		journal: opts.Journal,
		logger:  shared.WithLogger(logger, "component", "store"),
		now:     now,
	}
}

// Append adds job at the end of the store.
func (s *Store) Append(job models.CloneJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.jobs[job.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrDuplicateID, job.ID)
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.mu.Unlock()

	s.save(job.ID)
	return nil
}

// AddLink validates raw, derives its display name and appends a new queued job.
// Resolver may be nil.
func (s *Store) AddLink(ctx context.Context, raw string, resolver links.Resolver) (models.CloneJob, error) {
	link, err := links.Validate(raw)
	if err != nil {
		return models.CloneJob{}, err
	}

	job := models.NewCloneJob(link.URL, links.Name(ctx, link, resolver), link.FileType)
	job.CreatedAt = s.now()
	job.UpdatedAt = job.CreatedAt

	if err := s.Append(job); err != nil {
		return models.CloneJob{}, err
	}

	s.logger.Debug("job queued", "id", job.ID, "type", job.FileType, "name", job.FileName)
	return job, nil
}

// Remove deletes the job with id. Active jobs are refused with [shared.ErrJobActive].
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if job.Status.IsActive() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", shared.ErrJobActive, id, job.Status)
	}

	delete(s.jobs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	s.mu.Unlock()

	if s.journal == nil {
		return nil
	}

	s.jmu.Lock()
	defer s.jmu.Unlock()
	if err := s.journal.Delete(id); err != nil && !errors.Is(err, shared.ErrJobNotFound) {
		s.logger.Error("journal delete failed", "id", id, "error", err)
	}
	return nil
}

// Update merges patch into the job with id and returns the merged copy.
func (s *Store) Update(id string, patch models.JobPatch) (models.CloneJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return models.CloneJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}

	merged, err := job.Merge(patch, s.now())
	if err != nil {
		s.mu.Unlock()
		return job, err
	}
	s.jobs[id] = merged
	s.mu.Unlock()

	s.save(id)
	return merged, nil
}

// Requeue moves a failed job back to queued for a manual retry.
func (s *Store) Requeue(id string) (models.CloneJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return models.CloneJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}

	requeued, err := job.Requeue(s.now())
	if err != nil {
		s.mu.Unlock()
		return job, err
	}
	s.jobs[id] = requeued
	s.mu.Unlock()

	s.save(id)
	return requeued, nil
}

// Get returns a copy of the job with id.
func (s *Store) Get(id string) (models.CloneJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.CloneJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, nil
}

// List returns a snapshot of all jobs in insertion order.
func (s *Store) List() []models.CloneJob {
	return s.filter(func(models.CloneJob) bool { return true })
}

// Queued returns a snapshot of the queued jobs in insertion order.
func (s *Store) Queued() []models.CloneJob {
	return s.filter(func(j models.CloneJob) bool { return j.Status == models.StatusQueued })
}

// Len returns the number of jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Counts returns the number of jobs per status.
func (s *Store) Counts() map[models.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.JobStatus]int, len(models.Statuses))
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// Clear discards every job, ending the session.
func (s *Store) Clear() {
	s.mu.Lock()
	s.jobs = make(map[string]models.CloneJob)
	s.order = nil
	s.mu.Unlock()

	if s.journal == nil {
		return
	}

	s.jmu.Lock()
	defer s.jmu.Unlock()
	if err := s.journal.Clear(); err != nil {
		s.logger.Error("journal clear failed", "error", err)
	}
}

// Restore loads previously persisted jobs in the given order, skipping ids already present.
// Jobs that were mid-transfer are marked failed with [models.CodeInterrupted].
func (s *Store) Restore(jobs []models.CloneJob) int {
	now := s.now()
	restored := 0
	var interrupted []models.CloneJob

	s.mu.Lock()
	for _, job := range jobs {
		if _, ok := s.jobs[job.ID]; ok {
			continue
		}
		if job.Status.IsActive() {
			job = job.Interrupt(now)
			interrupted = append(interrupted, job)
		}
		if err := job.Validate(); err != nil {
			s.logger.Warn("skipping invalid persisted job", "id", job.ID, "error", err)
			continue
		}
		s.jobs[job.ID] = job
		s.order = append(s.order, job.ID)
		restored++
	}
	s.mu.Unlock()

	for _, job := range interrupted {
		s.logger.Warn("job interrupted by restart", "id", job.ID, "progress", job.Progress)
		s.save(job.ID)
	}
	return restored
}

func (s *Store) filter(keep func(models.CloneJob) bool) []models.CloneJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CloneJob, 0, len(s.order))
	for _, id := range s.order {
		if job := s.jobs[id]; keep(job) {
			out = append(out, job)
		}
	}
	return out
}

// save writes the current in-memory record for id. Ids removed in the meantime are skipped.
func (s *Store) save(id string) {
	if s.journal == nil {
		return
	}

	s.jmu.Lock()
	defer s.jmu.Unlock()

	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	if err := s.journal.Save(job); err != nil {
		s.logger.Error("journal save failed", "id", id, "error", err)
	}
}
