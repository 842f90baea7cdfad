// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
)

// MockTransfer is a test double for tasks.Transfer.
//
// Each phase reports Steps (default 25, 50, 75, 100) and then returns the configured error.
// When Gate is non-nil, Download waits for it to close (or for ctx) before reporting.
// When Block is set, both phases wait for ctx and return its error.
type MockTransfer struct {
	Steps        []int
	DownloadErrs map[string]error // keyed by job id
	DownloadErr  error
	UploadErr    error
	Block        bool
	Gate         chan struct{}
	Started      chan string // receives job ids as downloads begin, non-blocking

	mu    sync.Mutex
	calls []string
}

func (m *MockTransfer) Download(ctx context.Context, job models.CloneJob, report func(int)) error {
	m.record("download:" + job.ID)
	if m.Started != nil {
		select {
		case m.Started <- job.ID:
		default:
		}
	}

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := m.run(ctx, report); err != nil {
		return err
	}
	if err, ok := m.DownloadErrs[job.ID]; ok {
		return err
	}
	return m.DownloadErr
}

func (m *MockTransfer) Upload(ctx context.Context, job models.CloneJob, report func(int)) error {
	m.record("upload:" + job.ID)
	if err := m.run(ctx, report); err != nil {
		return err
	}
	return m.UploadErr
}

// Calls returns the phases invoked so far, e.g. "download:<id>".
func (m *MockTransfer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockTransfer) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *MockTransfer) run(ctx context.Context, report func(int)) error {
	if m.Block {
		<-ctx.Done()
		return ctx.Err()
	}

	steps := m.Steps
	if steps == nil {
		steps = []int{25, 50, 75, 100}
	}
	for _, s := range steps {
		report(s)
	}
	return nil
}

// MockResolver resolves names by Drive resource id.
type MockResolver struct {
	Names map[string]string
	Err   error

	mu    sync.Mutex
	calls int
}

func (m *MockResolver) ResolveName(ctx context.Context, link *links.Link) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Names[link.ResourceID], nil
}

func (m *MockResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RecordingJournal keeps every saved job version in order.
type RecordingJournal struct {
	mu      sync.Mutex
	History []models.CloneJob
	Deleted []string
	Cleared int
}

func (r *RecordingJournal) Save(job models.CloneJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.History = append(r.History, job)
	return nil
}

func (r *RecordingJournal) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, id)
	return nil
}

func (r *RecordingJournal) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cleared++
	return nil
}

// Versions returns the saved versions of the job with id.
func (r *RecordingJournal) Versions(id string) []models.CloneJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CloneJob
	for _, job := range r.History {
		if job.ID == id {
			out = append(out, job)
		}
	}
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	Requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.response, m.err
}

// JSONResponse builds an [http.Response] with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
