package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/store"
	"golang.org/x/time/rate"
)

// ImportOpts contains configuration for bulk link imports.
type ImportOpts struct {
	NumWorkers int            // Concurrent name lookups (default: 4)
	RateLimit  float64        // Resolver requests per second (default: 5)
	Resolver   links.Resolver // Optional; nil uses stub names
}

// ImportFailure records a link that could not be queued.
type ImportFailure struct {
	Index int
	Link  string
	Err   error
}

// ImportResult contains the outcome of [ImportLinks].
type ImportResult struct {
	Added  []models.CloneJob
	Failed []ImportFailure
}

type importTask struct {
	index int
	link  *links.Link
}

type importOutcome struct {
	index int
	job   models.CloneJob
}

// ImportLinks validates raws and queues a job for each valid link.
//
// Name lookups run on a rate-limited worker pool, but jobs are appended in input order so the queue
// matches what the user supplied. Invalid links are reported in the result and do not stop the import.
func ImportLinks(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	st *store.Store,
	raws []string,
	opts ImportOpts,
) (*ImportResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &ImportResult{}
	tasks := make([]importTask, 0, len(raws))
	for i, raw := range raws {
		link, err := links.Validate(raw)
		if err != nil {
			result.Failed = append(result.Failed, ImportFailure{Index: i, Link: raw, Err: err})
			sendProgress(prog, resolveUpdate(i+1, len(raws), raw, err))
			continue
		}
		tasks = append(tasks, importTask{index: i, link: link})
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	queue := make(chan importTask, len(tasks))
	outcomes := make(chan importOutcome, len(tasks))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				name := links.DefaultName(task.link.FileType)
				if opts.Resolver != nil && limiter.Wait(ctx) == nil {
					name = links.Name(ctx, task.link, opts.Resolver)
				}
				outcomes <- importOutcome{
					index: task.index,
					job:   models.NewCloneJob(task.link.URL, name, task.link.FileType),
				}
			}
		}()
	}

	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	jobs := make(map[int]models.CloneJob, len(tasks))
	for out := range outcomes {
		jobs[out.index] = out.job
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	for step, task := range tasks {
		job := jobs[task.index]
		if err := st.Append(job); err != nil {
			result.Failed = append(result.Failed, ImportFailure{Index: task.index, Link: task.link.URL, Err: err})
			sendProgress(prog, resolveUpdate(step+1, len(tasks), task.link.URL, err))
			continue
		}
		result.Added = append(result.Added, job)
		sendProgress(prog, resolveUpdate(step+1, len(tasks), job.FileName, nil))
	}

	return result, nil
}
