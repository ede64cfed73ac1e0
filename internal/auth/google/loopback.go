package google

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/rs/zerolog/log"
)

const (
	// LoopbackCallbackPath receives the redirect during a CLI login.
	LoopbackCallbackPath = "/oauth-callback"
	// CallbackTimeout is how long to wait for the OAuth callback
	CallbackTimeout = 5 * time.Minute
)

// LoopbackResult is the outcome of a CLI login.
type LoopbackResult struct {
	User  *models.User
	Error error
}

// LoopbackLogin is a temporary HTTP server on 127.0.0.1 that receives one OAuth callback.
type LoopbackLogin struct {
	AuthURL string
	Result  <-chan LoopbackResult

	srv  *http.Server
	once sync.Once
}

// StartLoopbackLogin listens on a random loopback port and returns the consent URL to open.
// The server stops after the first callback, after timeout, or when Close is called.
func (a *Authenticator) StartLoopbackLogin(ctx context.Context, timeout time.Duration) (*LoopbackLogin, error) {
	if timeout <= 0 {
		timeout = CallbackTimeout
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d%s", port, LoopbackCallbackPath)
	authURL, err := a.AuthCodeURL(redirectURL)
	if err != nil {
		listener.Close()
		return nil, err
	}
	log.Info().Int("port", port).Msg("[OAuth] Callback server listening")

	results := make(chan LoopbackResult, 1)
	mux := http.NewServeMux()
	l := &LoopbackLogin{AuthURL: authURL, Result: results, srv: &http.Server{Handler: mux}}

	// Only the first outcome is kept.
	deliver := func(r LoopbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	var handled sync.Once
	mux.HandleFunc(LoopbackCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		first := false
		handled.Do(func() { first = true })
		if !first {
			http.Error(w, "Callback already processed", http.StatusBadRequest)
			return
		}

		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			deliver(LoopbackResult{Error: fmt.Errorf("consent denied: %s", e)})
			http.Error(w, "Login cancelled", http.StatusBadRequest)
			return
		}

		user, err := a.Complete(r.Context(), q.Get("state"), q.Get("code"), redirectURL)
		if err != nil {
			deliver(LoopbackResult{Error: err})
			http.Error(w, "Login failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Login Successful</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 50px">
	<h1>✅ Login Successful</h1>
	<p>Signed in as <strong>%s</strong>. You can close this tab and return to the terminal.</p>
</body>
</html>`, user.Email)
		deliver(LoopbackResult{User: user})
	})

	go func() {
		if err := l.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[OAuth] Callback server error")
		}
	}()

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			log.Warn().Dur("timeout", timeout).Msg("[OAuth] Callback timeout")
			deliver(LoopbackResult{Error: fmt.Errorf("OAuth callback timeout")})
		case <-ctx.Done():
		}
	}()

	return l, nil
}

// Close stops the callback server.
func (l *LoopbackLogin) Close() {
	l.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("[OAuth] Error shutting down callback server")
		}
		log.Info().Msg("[OAuth] Callback server stopped")
	})
}
