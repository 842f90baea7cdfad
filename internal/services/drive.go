// Google Drive API v3 metadata client
//
// Response types based on https://developers.google.com/drive/api/reference/rest/v3
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/shared"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const (
	DriveScope       = "https://www.googleapis.com/auth/drive"
	driveBaseURL     = "https://www.googleapis.com/drive/v3"
	googleRevokeURL  = "https://oauth2.googleapis.com/revoke"
	folderMimeType   = "application/vnd.google-apps.folder"
	defaultDriveRate = 5.0
)

// DriveFile is the subset of the Drive file resource the client reads.
type DriveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size"` // int64 encoded as a string; absent for folders and Google Docs
}

// IsFolder reports whether the file is a Drive folder.
func (f DriveFile) IsFolder() bool {
	return f.MimeType == folderMimeType
}

// Bytes returns the parsed file size, or zero when unknown.
func (f DriveFile) Bytes() int64 {
	return parseBytes(f.Size)
}

// DriveUser identifies the account a token belongs to.
type DriveUser struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// StorageQuota reports storage usage in bytes. Values are int64 encoded as strings; Limit is empty for unlimited accounts.
type StorageQuota struct {
	Limit             string `json:"limit"`
	Usage             string `json:"usage"`
	UsageInDrive      string `json:"usageInDrive"`
	UsageInDriveTrash string `json:"usageInDriveTrash"`
}

func (q StorageQuota) LimitBytes() int64 { return parseBytes(q.Limit) }
func (q StorageQuota) UsageBytes() int64 { return parseBytes(q.Usage) }

// UsedPercent returns usage as a percentage of the limit; zero when unlimited.
func (q StorageQuota) UsedPercent() float64 {
	return shared.Percent(q.UsageBytes(), q.LimitBytes())
}

// About is the Drive about resource.
type About struct {
	User         DriveUser    `json:"user"`
	StorageQuota StorageQuota `json:"storageQuota"`
}

// DriveOpts configures a [DriveService].
type DriveOpts struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	BaseURL           string       // Defaults to the public Drive v3 endpoint
	RevokeURL         string       // Defaults to Google's token revocation endpoint
	RequestsPerSecond float64      // Defaults to 5
	HTTPClient        *http.Client // Base client for token exchange and API calls
}

// DriveService reads Drive metadata on behalf of an OAuth2-authenticated user.
//
// It never transfers file contents. Requests are throttled with a [rate.Limiter].
type DriveService struct {
	config    *oauth2.Config
	baseURL   string
	revokeURL string
	base      *http.Client
	limiter   *rate.Limiter

	mu         sync.RWMutex
	source     oauth2.TokenSource
	httpClient *http.Client
}

// NewDriveService creates a Drive client with the given OAuth2 client credentials.
func NewDriveService(opts DriveOpts) (*DriveService, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = driveBaseURL
	}
	revokeURL := opts.RevokeURL
	if revokeURL == "" {
		revokeURL = googleRevokeURL
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultDriveRate
	}
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	return &DriveService{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{DriveScope},
		},
		baseURL:   baseURL,
		revokeURL: revokeURL,
		base:      base,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (s *DriveService) Name() string {
	return "Google Drive"
}

// AuthURL returns the consent screen URL requesting offline access, so a refresh token is issued.
func (s *DriveService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// WithRedirectURL returns a shallow copy whose OAuth config uses redirectURL.
// The CLI login flow uses it to point Google at its temporary callback server.
func (s *DriveService) WithRedirectURL(redirectURL string) *DriveService {
	cfg := *s.config
	cfg.RedirectURL = redirectURL
	return &DriveService{
		config:    &cfg,
		baseURL:   s.baseURL,
		revokeURL: s.revokeURL,
		base:      s.base,
		limiter:   s.limiter,
	}
}

// Exchange trades an authorization code for a token and starts using it.
func (s *DriveService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	s.SetToken(token)
	return token, nil
}

// SetToken authenticates subsequent requests with token, refreshing it as needed. A nil token logs out.
func (s *DriveService) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == nil {
		s.source = nil
		s.httpClient = nil
		return
	}

	ctx := s.clientContext(context.Background())
	s.source = oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token))
	s.httpClient = oauth2.NewClient(ctx, s.source)
}

// Token returns the current (possibly refreshed) token.
func (s *DriveService) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()

	if source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return token, nil
}

// Authenticated reports whether a token is set.
func (s *DriveService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// Revoke invalidates the current token with Google and forgets it locally.
func (s *DriveService) Revoke(ctx context.Context) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	defer s.SetToken(nil)

	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.base.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// GetFile retrieves file metadata by ID, including files in shared drives.
func (s *DriveService) GetFile(ctx context.Context, fileID string) (*DriveFile, error) {
	query := url.Values{
		"fields":            {"id,name,mimeType,size"},
		"supportsAllDrives": {"true"},
	}

	var file DriveFile
	if err := s.doRequest(ctx, "/files/"+url.PathEscape(fileID), query, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// About retrieves the authenticated user and their storage quota.
func (s *DriveService) About(ctx context.Context) (*About, error) {
	query := url.Values{"fields": {"user(displayName,emailAddress),storageQuota"}}

	var about About
	if err := s.doRequest(ctx, "/about", query, &about); err != nil {
		return nil, err
	}
	return &about, nil
}

// ResolveName implements [links.Resolver] by reading the file's Drive name.
func (s *DriveService) ResolveName(ctx context.Context, link *links.Link) (string, error) {
	if !s.Authenticated() {
		return "", shared.ErrNotAuthenticated
	}
	file, err := s.GetFile(ctx, link.ResourceID)
	if err != nil {
		return "", err
	}
	return file.Name, nil
}

// doRequest performs an authenticated GET against the Drive API and decodes the JSON body into result.
func (s *DriveService) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	s.mu.RLock()
	client := s.httpClient
	s.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("%w: sign in with `driveclone auth login` first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", shared.ErrTokenExpired, retrieveErr)
		}
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: drive returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrFileNotFound, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: drive returned %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: drive API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// clientContext carries the base HTTP client into oauth2 so token exchange and refresh use it.
func (s *DriveService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.base)
}

func parseBytes(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
