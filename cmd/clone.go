package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/driveclone/internal/formatter"
	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CloneAdd validates each link and queues a job for it.
//
// Links come from the arguments and, with --file, from a file with one link per line.
// Invalid links, blank arguments included, are reported and skipped; the command fails only when nothing was queued.
func (r *Runner) CloneAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	raws := slices.Clone(cmd.StringArgs("link"))
	if path := cmd.String("file"); path != "" {
		fromFile, err := readLinks(path)
		if err != nil {
			return err
		}
		raws = append(raws, fromFile...)
	}
	if len(raws) == 0 {
		return fmt.Errorf("%w: at least one link or --file is required", shared.ErrMissingArgument)
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	result, err := tasks.ImportLinks(ctx, nil, st, raws, tasks.ImportOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.Drive.RequestsPerSecond,
		Resolver:   r.resolver(),
	})
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	for _, job := range result.Added {
		r.writePlain("✓ Queued %s (%s) %s\n", job.FileName, job.FileType, job.ID)
	}
	for _, failure := range result.Failed {
		r.writePlain("✗ %s: %v\n", failure.Link, failure.Err)
	}

	if len(result.Added) == 0 {
		return fmt.Errorf("%w: no valid links", shared.ErrInvalidLink)
	}

	if cmd.Bool("run") {
		return r.runQueued(ctx)
	}
	return nil
}

// CloneList prints jobs in insertion order.
func (r *Runner) CloneList(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	jobs := st.List()
	if status := cmd.String("status"); status != "" {
		want := models.JobStatus(status)
		if !want.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.Status == want {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, cmd.Bool("pretty"))
	}

	if len(jobs) == 0 {
		return r.writePlain("No Links: add a Google Drive link to start cloning\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d jobs: %s", len(jobs), formatter.Summary(jobs)))
	for i, job := range jobs {
		r.writePlain("%d. %s [%s]\n", i+1, job.FileName, job.FileType)
		r.writePlain("   ID: %s\n", job.ID)
		r.writePlain("   Status: %s %s\n", job.Status, formatter.ProgressBar(job.Progress, 20))
		if job.Error != "" {
			r.writePlain("   Error: %s (%s)\n", job.Error, job.ErrorCode)
		}
		r.writePlain("   Source: %s\n", job.SourceURL)
	}
	return nil
}

// CloneRemove deletes a job that is not transferring.
func (r *Runner) CloneRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	if err := st.Remove(id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", id)
}

// CloneRun drives every queued job to completion or failure, printing progress as it goes.
func (r *Runner) CloneRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}
	return r.runQueued(ctx)
}

// CloneRetry requeues a failed job.
func (r *Runner) CloneRetry(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	job, err := st.Requeue(id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Requeued %s (%s)\n", job.FileName, job.ID)
}

// CloneExport writes the job list to a file in the requested format.
func (r *Runner) CloneExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	jobs := st.List()
	path, err := formatter.WriteExport(jobs, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("jobs exported", "path", path, "count", len(jobs))
	return r.writePlain("✓ Exported %d jobs to %s\n", len(jobs), path)
}

// CloneClear discards every job. With --purge the cleared rows are also deleted from the database.
func (r *Runner) CloneClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	for _, job := range st.List() {
		if job.Status.IsActive() {
			return fmt.Errorf("%w: %s is %s", shared.ErrJobActive, job.ID, job.Status)
		}
	}

	n := st.Len()
	st.Clear()

	if cmd.Bool("purge") && r.repo != nil {
		purged, err := r.repo.Purge()
		if err != nil {
			return err
		}
		r.logger.Info("purged cleared jobs", "rows", purged)
	}

	return r.writePlain("✓ Cleared %d jobs\n", n)
}

func (r *Runner) runQueued(ctx context.Context) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}

	orchestrator := r.newOrchestrator(st, nil)
	progress := make(chan tasks.ProgressUpdate, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.printProgress(update)
		}
	}()

	result, err := orchestrator.RunAll(ctx, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	r.writePlainln("%s", result.Summary())
	for _, failure := range result.Failures {
		r.writePlain("  ✗ %s: %v\n", failure.JobID, failure.Err)
	}
	return nil
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Select:
		r.writePlain("→ %s\n", update.Message)
	case tasks.Download, tasks.Upload:
		r.writePlain("  %-8s %s\n", update.Phase, formatter.ProgressBar(update.Progress, 20))
	case tasks.Complete, tasks.Fail:
		r.writePlain("  %s\n", update.Message)
	case tasks.NoJobs:
		r.writePlain("%s\n", update.Message)
	}
}

// resolver returns the Drive client as a name resolver when it is signed in.
func (r *Runner) resolver() links.Resolver {
	if r.drive == nil || !r.drive.Authenticated() {
		return nil
	}
	return r.drive
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}
	return id, nil
}

// readLinks reads non-empty, non-comment lines from path.
func readLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	var raws []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raws = append(raws, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raws, nil
}
