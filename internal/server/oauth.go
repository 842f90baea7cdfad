package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthResult is the outcome of one CLI sign-in.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var connectedPage = template.Must(template.New("connected").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.App}}: signed in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f8fafc; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1a73e8; margin: 0 0 1rem 0; }
        p { color: #5f6368; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Google Drive connected</h1>
        <p>You can close this tab and return to the terminal, then run <code>{{.App}} clone add</code>.</p>
    </div>
</body>
</html>
`))

// OAuthHandler serves the callback of the CLI sign-in flow started by `auth login`.
//
// Only the first callback is processed. A replayed code is refused with 400.
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	results   chan OAuthResult
	handled   atomic.Bool
	once      sync.Once
}

// NewOAuthHandler creates a callback handler that expects state, which should come from [shared.GenerateState].
func NewOAuthHandler(exchanger Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		results:   make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.handled.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "Invalid state parameter", fmt.Errorf("invalid state parameter"))
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("consent not granted: %s %s", query.Get("error"), query.Get("error_description"))
		h.fail(w, http.StatusBadRequest, "Authorization failed", err)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed", fmt.Errorf("token exchange failed: %w", err))
		return
	}
	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	connectedPage.Execute(w, struct{ App string }{App: "driveclone"})
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, message string, err error) {
	h.Send(OAuthResult{err: err})
	http.Error(w, message, status)
}

// Send publishes result; only the first call has an effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
