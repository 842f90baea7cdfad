package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	tu "github.com/desertthunder/driveclone/internal/testing"
)

type recordingRecorder struct {
	mu       sync.Mutex
	runs     int
	finished []models.JobStatus
	codes    []string
	busy     []bool
}

func (r *recordingRecorder) RunStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

func (r *recordingRecorder) JobFinished(status models.JobStatus, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)
	r.codes = append(r.codes, code)
}

func (r *recordingRecorder) SetBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = append(r.busy, busy)
}

// gatedRecorder blocks the first RunStarted, which happens after the pass has taken its snapshot.
type gatedRecorder struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRecorder) RunStarted() {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

func (g *gatedRecorder) JobFinished(models.JobStatus, string, time.Duration) {}

func (g *gatedRecorder) SetBusy(bool) {}

func newOrchestrator(st *store.Store, transfer Transfer, rec Recorder) *Orchestrator {
	d := NewDriver(st, DriverOpts{Transfer: transfer, Logger: quietLogger()})
	return NewOrchestrator(st, d, OrchestratorOpts{Recorder: rec, Logger: quietLogger()})
}

func TestOrchestrator(t *testing.T) {
	t.Run("empty selection", func(t *testing.T) {
		st := newStore(t, nil)
		o := newOrchestrator(st, &tu.MockTransfer{}, nil)
		progress := make(chan ProgressUpdate, 10)

		result, err := o.RunAll(context.Background(), progress)
		if err != nil {
			t.Fatalf("RunAll() error = %v", err)
		}
		if !result.Empty || result.Selected != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
		if o.Busy() {
			t.Error("busy should be false after run")
		}
		if st.Len() != 0 {
			t.Error("store should be unchanged")
		}

		updates := drain(progress)
		if len(updates) != 1 || updates[0].Phase != NoJobs {
			t.Errorf("expected a single NoJobs update, got %+v", updates)
		}
	})

	t.Run("drives jobs sequentially in insertion order", func(t *testing.T) {
		st := newStore(t, nil)
		a := addJob(t, st, "https://drive.google.com/file/d/a")
		b := addJob(t, st, "https://drive.google.com/drive/folders/b")
		transfer := &tu.MockTransfer{}
		o := newOrchestrator(st, transfer, nil)

		result, err := o.RunAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("RunAll() error = %v", err)
		}
		if result.Completed != 2 || result.Failed != 0 {
			t.Errorf("unexpected result %+v", result)
		}

		want := []string{"download:" + a.ID, "upload:" + a.ID, "download:" + b.ID, "upload:" + b.ID}
		if got := transfer.Calls(); !slices.Equal(got, want) {
			t.Errorf("calls = %v, want %v", got, want)
		}
	})

	t.Run("failure does not abort the run", func(t *testing.T) {
		st := newStore(t, nil)
		a := addJob(t, st, "https://drive.google.com/file/d/a")
		b := addJob(t, st, "https://drive.google.com/file/d/b")
		rec := &recordingRecorder{}
		transfer := &tu.MockTransfer{DownloadErrs: map[string]error{a.ID: errors.New("boom")}}
		o := newOrchestrator(st, transfer, rec)

		result, err := o.RunAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("RunAll() error = %v", err)
		}
		if result.Completed != 1 || result.Failed != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(result.Failures) != 1 || result.Failures[0].JobID != a.ID {
			t.Errorf("unexpected failures %+v", result.Failures)
		}
		if o.Busy() {
			t.Error("busy should reset after a failed job")
		}

		if got, _ := st.Get(a.ID); got.Status != models.StatusFailed {
			t.Errorf("expected a failed, got %s", got.Status)
		}
		if got, _ := st.Get(b.ID); got.Status != models.StatusCompleted {
			t.Errorf("expected b completed, got %s", got.Status)
		}

		if rec.runs != 1 || !slices.Equal(rec.finished, []models.JobStatus{models.StatusFailed, models.StatusCompleted}) {
			t.Errorf("unexpected recorder state runs=%d finished=%v", rec.runs, rec.finished)
		}
		if rec.codes[0] != models.CodeTransferFailed {
			t.Errorf("expected transfer_failed code, got %s", rec.codes[0])
		}
		if !slices.Equal(rec.busy, []bool{true, false}) {
			t.Errorf("unexpected busy transitions %v", rec.busy)
		}
	})

	t.Run("rejects overlapping runs", func(t *testing.T) {
		st := newStore(t, nil)
		job := addJob(t, st, "https://drive.google.com/file/d/a")
		started := make(chan string, 1)
		o := newOrchestrator(st, &tu.MockTransfer{Block: true, Started: started}, nil)

		if err := o.RunAsync(context.Background(), nil); err != nil {
			t.Fatalf("RunAsync() error = %v", err)
		}
		<-started

		if !o.Busy() {
			t.Error("expected busy during run")
		}
		if _, err := o.RunAll(context.Background(), nil); !errors.Is(err, shared.ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}
		if err := o.RunAsync(context.Background(), nil); !errors.Is(err, shared.ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}

		if !o.Cancel(job.ID) {
			t.Fatal("Cancel() should find the active job")
		}
		o.Wait()

		if o.Busy() {
			t.Error("busy should be false after run")
		}
		got, _ := st.Get(job.ID)
		if got.ErrorCode != models.CodeCancelled {
			t.Errorf("expected cancelled job, got %+v", got)
		}
	})

	t.Run("jobs added after selection wait for the next pass", func(t *testing.T) {
		st := newStore(t, nil)
		a := addJob(t, st, "https://drive.google.com/file/d/a")
		started := make(chan string, 4)
		gate := make(chan struct{})
		o := newOrchestrator(st, &tu.MockTransfer{Gate: gate, Started: started}, nil)

		if err := o.RunAsync(context.Background(), nil); err != nil {
			t.Fatalf("RunAsync() error = %v", err)
		}
		if id := <-started; id != a.ID {
			t.Fatalf("expected %s to start first, got %s", a.ID, id)
		}

		b := addJob(t, st, "https://drive.google.com/file/d/b")
		close(gate)
		o.Wait()

		for _, id := range []string{a.ID, b.ID} {
			if got, _ := st.Get(id); got.Status != models.StatusCompleted {
				t.Errorf("expected %s completed, got %s", id, got.Status)
			}
		}
	})

	t.Run("jobs queued during a pass that drove nothing still run", func(t *testing.T) {
		st := newStore(t, nil)
		a := addJob(t, st, "https://drive.google.com/file/d/a")
		rec := &gatedRecorder{entered: make(chan struct{}), release: make(chan struct{})}
		o := newOrchestrator(st, &tu.MockTransfer{}, rec)

		if err := o.RunAsync(context.Background(), nil); err != nil {
			t.Fatalf("RunAsync() error = %v", err)
		}
		<-rec.entered

		if err := st.Remove(a.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		b := addJob(t, st, "https://drive.google.com/file/d/b")
		if err := o.RunAsync(context.Background(), nil); !errors.Is(err, shared.ErrBusy) {
			t.Fatalf("expected ErrBusy while the pass is running, got %v", err)
		}

		close(rec.release)
		o.Wait()

		if got, _ := st.Get(b.ID); got.Status != models.StatusCompleted {
			t.Errorf("expected %s completed, got %s", b.ID, got.Status)
		}
	})

	t.Run("cancelled context stops selection", func(t *testing.T) {
		st := newStore(t, nil)
		addJob(t, st, "https://drive.google.com/file/d/a")
		addJob(t, st, "https://drive.google.com/file/d/b")
		o := newOrchestrator(st, &tu.MockTransfer{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := o.RunAll(ctx, nil)
		if err != nil {
			t.Fatalf("RunAll() error = %v", err)
		}
		if result.Completed+result.Failed != 0 || len(st.Queued()) != 2 {
			t.Errorf("no job should be driven, got %+v", result)
		}
	})

	t.Run("removed job is skipped", func(t *testing.T) {
		st := newStore(t, nil)
		a := addJob(t, st, "https://drive.google.com/file/d/a")
		b := addJob(t, st, "https://drive.google.com/file/d/b")
		started := make(chan string, 2)
		gate := make(chan struct{})
		o := newOrchestrator(st, &tu.MockTransfer{Gate: gate, Started: started}, nil)

		var result *RunResult
		done := make(chan struct{})
		go func() {
			result, _ = o.RunAll(context.Background(), nil)
			close(done)
		}()

		<-started
		if err := st.Remove(b.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := st.Remove(a.ID); !errors.Is(err, shared.ErrJobActive) {
			t.Errorf("expected ErrJobActive for running job, got %v", err)
		}
		close(gate)
		<-done

		if result.Completed != 1 || result.Skipped != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

// TestCloneScenario walks the end-to-end flow with the simulated transfer.
func TestCloneScenario(t *testing.T) {
	st := newStore(t, nil)
	d := NewDriver(st, DriverOpts{Transfer: SimulatedTransfer{Interval: time.Millisecond}, Logger: quietLogger()})
	o := NewOrchestrator(st, d, OrchestratorOpts{Logger: quietLogger()})

	job, err := st.AddLink(context.Background(), "https://drive.google.com/file/d/abc123", nil)
	if err != nil {
		t.Fatalf("AddLink() error = %v", err)
	}
	if job.FileType != models.FileTypeFile || job.Status != models.StatusQueued || job.Progress != 0 {
		t.Fatalf("unexpected new job %+v", job)
	}

	result, err := o.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if result.Completed != 1 {
		t.Errorf("expected 1 completed, got %+v", result)
	}

	got, _ := st.Get(job.ID)
	if got.Status != models.StatusCompleted || got.Progress != 100 {
		t.Errorf("expected completed/100, got %s/%d", got.Status, got.Progress)
	}

	if _, err := st.AddLink(context.Background(), "https://example.com/not-drive", nil); !errors.Is(err, shared.ErrInvalidLink) {
		t.Errorf("expected ErrInvalidLink, got %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("invalid link should not create a job, have %d", st.Len())
	}
}

func TestRunResultSummary(t *testing.T) {
	if got := (&RunResult{Empty: true}).Summary(); got != "No Links: nothing queued to clone" {
		t.Errorf("Summary() = %q", got)
	}
	if got := (&RunResult{Selected: 3, Completed: 2, Failed: 1}).Summary(); got != "2 completed, 1 failed, 0 skipped of 3 selected" {
		t.Errorf("Summary() = %q", got)
	}
}
