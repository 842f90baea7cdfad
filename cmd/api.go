package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/driveclone/internal/formatter"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultPollInterval = time.Second

// RemoteClone submits a link to the backend, which queues it and starts cloning.
func (r *Runner) RemoteClone(ctx context.Context, cmd *cli.Command) error {
	link := strings.TrimSpace(cmd.StringArg("link"))
	if link == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	r.logger.Info("submitting link", "backend", r.api.BaseURL())

	resp, err := r.api.Clone(ctx, link)
	if err != nil {
		return err
	}

	r.writePlain("✓ %s\n", resp.Message)
	r.writePlain("  Job: %s (%s)\n", resp.Job.FileName, resp.Job.ID)
	r.writePlain("  Status: %s\n", resp.Status)
	return nil
}

// RemoteJobs lists the backend's jobs. With --watch it keeps polling until no job is transferring.
func (r *Runner) RemoteJobs(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("json") {
		resp, err := r.api.Jobs(ctx)
		if err != nil {
			return err
		}
		return r.writeJSON(resp, true)
	}

	if !cmd.Bool("watch") {
		resp, err := r.api.Jobs(ctx)
		if err != nil {
			return err
		}
		return r.printJobs(resp)
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return r.watchJobs(ctx, interval)
}

// watchJobs polls the backend until it reports no active job and is not busy.
func (r *Runner) watchJobs(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := r.api.Jobs(ctx)
		if err != nil {
			return err
		}
		if err := r.printJobs(resp); err != nil {
			return err
		}
		if !resp.Busy && !anyActive(resp.Jobs) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.writePlain("\n")
		}
	}
}

// RemoteRun asks the backend to start cloning queued jobs.
func (r *Runner) RemoteRun(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Run(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// RemoteCancel cancels an active job on the backend.
func (r *Runner) RemoteCancel(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	resp, err := r.api.Cancel(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// RemoteRetry requeues a failed job on the backend.
func (r *Runner) RemoteRetry(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	resp, err := r.api.Retry(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// RemoteRemove deletes a job on the backend.
func (r *Runner) RemoteRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	if err := r.api.Remove(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", id)
}

// RemoteGet makes a direct GET request to the backend
func (r *Runner) RemoteGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

func (r *Runner) printJobs(resp *services.JobsResponse) error {
	if len(resp.Jobs) == 0 {
		return r.writePlain("No Links: add a Google Drive link to start cloning\n")
	}

	state := "idle"
	if resp.Busy {
		state = "busy"
	}
	r.writePlain("%d jobs, backend %s (%s)\n", len(resp.Jobs), state, formatter.Summary(resp.Jobs))
	for _, job := range resp.Jobs {
		line := fmt.Sprintf("  %s  %-11s %s  %s", formatter.ProgressBar(job.Progress, 10), job.Status, job.FileName, job.ID)
		if job.Error != "" {
			line += "  (" + job.Error + ")"
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

func anyActive(jobs []models.CloneJob) bool {
	for _, job := range jobs {
		if job.Status.IsActive() {
			return true
		}
	}
	return false
}
