// API client for a running driveclone backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

const DefaultAPIBaseURL = "http://localhost:5000"

// APIService provides methods for making HTTP requests to a `driveclone serve` backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend address requests are sent to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// APIError is a non-2xx backend response. It unwraps to [shared.ErrAPIRequest].
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// CloneResponse is the body of a successful POST /api/clone.
type CloneResponse struct {
	Message string          `json:"message"`
	Source  string          `json:"source"`
	Status  string          `json:"status"`
	Job     models.CloneJob `json:"job"`
}

// JobsResponse is the body of GET /api/jobs.
type JobsResponse struct {
	Jobs []models.CloneJob `json:"jobs"`
	Busy bool              `json:"busy"`
}

// MessageResponse is a body carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil)
}

// Clone submits link to the backend, which queues a job and starts cloning.
func (a *APIService) Clone(ctx context.Context, link string) (*CloneResponse, error) {
	body, err := json.Marshal(map[string]string{"link": link})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := a.Post(ctx, "/api/clone", body)
	if err != nil {
		return nil, err
	}

	var out CloneResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Jobs lists the backend's jobs in insertion order.
func (a *APIService) Jobs(ctx context.Context) (*JobsResponse, error) {
	resp, err := a.Get(ctx, "/api/jobs")
	if err != nil {
		return nil, err
	}

	var out JobsResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Run asks the backend to start a clone run.
func (a *APIService) Run(ctx context.Context) (*MessageResponse, error) {
	return a.message(ctx, http.MethodPost, "/api/jobs/run")
}

// Cancel asks the backend to stop an active job.
func (a *APIService) Cancel(ctx context.Context, id string) (*MessageResponse, error) {
	return a.message(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel")
}

// Retry asks the backend to requeue a failed job.
func (a *APIService) Retry(ctx context.Context, id string) (*MessageResponse, error) {
	return a.message(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/retry")
}

// Remove deletes a job on the backend.
func (a *APIService) Remove(ctx context.Context, id string) error {
	resp, err := a.Delete(ctx, "/api/jobs/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

func (a *APIService) message(ctx context.Context, method, path string) (*MessageResponse, error) {
	resp, err := a.do(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// decode converts a non-2xx response to an [APIError] and otherwise unmarshals the body into out.
func decode(resp *APIResponse, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if resp.IsJSON && json.Unmarshal(resp.Body, &body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
