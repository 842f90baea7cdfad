// Package services implements the HTTP clients driveclone talks to.
//
// # Google Drive
//
// [DriveService] reads Drive metadata for the signed-in user: file names for display and the account's storage quota.
// It never transfers file contents. Authentication uses [oauth2] with the Google endpoint, offline access and the
// Drive scope; the [oauth2.TokenSource] refreshes expired tokens automatically. Requests are throttled by a rate limiter.
//
// [DriveService] satisfies [links.Resolver], so the job store can replace the "Folder"/"Document" stub names with real ones.
//
// # Backend API
//
// [APIService] calls a running `driveclone serve` instance (POST /api/clone, GET /api/jobs, ...).
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token set
//   - [shared.ErrTokenExpired] : Drive rejected the token or refresh failed
//   - [shared.ErrFileNotFound] : Drive returned 404
//   - [shared.ErrServiceUnavailable] : Drive returned 429 or 5xx
//   - [shared.ErrAPIRequest] : any other non-2xx response ([APIError] for the backend)
//   - [shared.ErrNetwork] : transport failure
package services
