// Package server is the HTTP side of driveclone.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux] method patterns ("GET /api/jobs/{id}") with a middleware stack.
// [Middleware] is applied in reverse order, so the first one added runs outermost.
// A [Handler] lists its own patterns through Routes and dispatches on [http.Request.Pattern].
//
// # Backend
//
// [Server] exposes the clone queue:
//
//	POST   /api/clone              queue a Drive link (202)
//	GET    /api/jobs               ordered jobs and the busy flag
//	GET    /api/jobs/{id}          one job
//	DELETE /api/jobs/{id}          remove an idle job (204, 409 while active)
//	POST   /api/jobs/run           start a run (202, 409 when busy)
//	POST   /api/jobs/{id}/cancel   cancel an active job
//	POST   /api/jobs/{id}/retry    requeue a failed job
//	GET    /api/quota              Drive storage for the signed-in user
//	GET    /metrics, /health
//
// Clients poll GET /api/jobs for progress; the server is the only place progress is computed.
//
// # Sign-in
//
// [AuthHandler] implements the browser flow with a state cookie and an in-memory session.
// [OAuthHandler] serves the one-shot callback used by `driveclone auth login`: a temporary
// server on localhost receives the code, exchanges it and reports the token over a channel.
package server
