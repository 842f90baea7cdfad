package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	"github.com/desertthunder/driveclone/internal/tasks"
	"github.com/go-playground/validator/v10"
)

// CloneRequest is the body of POST /api/clone.
type CloneRequest struct {
	Link string `json:"link" validate:"required"`
}

// QuotaResponse is the body of GET /api/quota.
type QuotaResponse struct {
	User        services.DriveUser `json:"user"`
	Limit       int64              `json:"limit"`
	Usage       int64              `json:"usage"`
	UsedPercent float64            `json:"usedPercent"`
	Summary     string             `json:"summary"`
}

var validate = validator.New()

// JobsHandler serves the clone queue API.
type JobsHandler struct {
	store        *store.Store
	orchestrator *tasks.Orchestrator
	drive        services.Drive
	sessions     *Sessions
	autoRun      bool
	runCtx       context.Context
	logger       *log.Logger
}

func (h *JobsHandler) Routes() []string {
	return []string{
		"POST /api/clone",
		"GET /api/jobs",
		"POST /api/jobs/run",
		"GET /api/jobs/{id}",
		"DELETE /api/jobs/{id}",
		"POST /api/jobs/{id}/cancel",
		"POST /api/jobs/{id}/retry",
		"GET /api/quota",
	}
}

func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "POST /api/clone":
		h.clone(w, r)
	case "GET /api/jobs":
		h.list(w, r)
	case "POST /api/jobs/run":
		h.run(w, r)
	case "GET /api/jobs/{id}":
		h.get(w, r)
	case "DELETE /api/jobs/{id}":
		h.remove(w, r)
	case "POST /api/jobs/{id}/cancel":
		h.cancel(w, r)
	case "POST /api/jobs/{id}/retry":
		h.retry(w, r)
	case "GET /api/quota":
		h.quota(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *JobsHandler) clone(w http.ResponseWriter, r *http.Request) {
	var body CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", shared.ErrInvalidInput))
		return
	}
	body.Link = strings.TrimSpace(body.Link)

	if err := validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "required" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No link provided"})
			return
		}
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	job, err := h.store.AddLink(r.Context(), body.Link, h.resolver(r))
	if err != nil {
		writeError(w, err)
		return
	}

	if h.autoRun {
		h.kick()
	}

	writeJSON(w, http.StatusAccepted, services.CloneResponse{
		Message: fmt.Sprintf("Queued %s for cloning", job.FileName),
		Source:  job.SourceURL,
		Status:  string(job.Status),
		Job:     job,
	})
}

func (h *JobsHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, services.JobsResponse{
		Jobs: h.store.List(),
		Busy: h.orchestrator.Busy(),
	})
}

func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobsHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JobsHandler) run(w http.ResponseWriter, _ *http.Request) {
	if len(h.store.Queued()) == 0 {
		writeJSON(w, http.StatusOK, services.MessageResponse{Message: "No jobs to run"})
		return
	}

	if err := h.orchestrator.RunAsync(h.runCtx, nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, services.MessageResponse{Message: "Run started"})
}

func (h *JobsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.orchestrator.Cancel(id) {
		writeJSON(w, http.StatusAccepted, services.MessageResponse{Message: "Cancelling " + id})
		return
	}

	job, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusConflict, ErrorResponse{Error: fmt.Sprintf("job %s is %s, not running", id, job.Status)})
}

func (h *JobsHandler) retry(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Requeue(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if h.autoRun {
		h.kick()
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobsHandler) quota(w http.ResponseWriter, r *http.Request) {
	if h.drive == nil {
		writeError(w, shared.ErrNotAuthenticated)
		return
	}
	if _, _, ok := h.sessions.FromRequest(r); !ok {
		writeError(w, shared.ErrNotAuthenticated)
		return
	}

	about, err := h.drive.About(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	q := about.StorageQuota
	writeJSON(w, http.StatusOK, QuotaResponse{
		User:        about.User,
		Limit:       q.LimitBytes(),
		Usage:       q.UsageBytes(),
		UsedPercent: q.UsedPercent(),
		Summary:     fmt.Sprintf("%s of %s used", shared.FormatBytes(q.UsageBytes()), shared.FormatBytes(q.LimitBytes())),
	})
}

// resolver returns the Drive client when the request carries a signed-in session.
func (h *JobsHandler) resolver(r *http.Request) links.Resolver {
	if h.drive == nil {
		return nil
	}
	if _, _, ok := h.sessions.FromRequest(r); !ok {
		return nil
	}
	return h.drive
}

// kick starts a background run; a run already in progress picks up new jobs on its next pass.
func (h *JobsHandler) kick() {
	if err := h.orchestrator.RunAsync(h.runCtx, nil); err != nil && !errors.Is(err, shared.ErrBusy) {
		h.logger.Error("failed to start run", "error", err)
	}
}
