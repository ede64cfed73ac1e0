// Package google runs the Google OAuth login: consent redirect, callback, user upsert and session issuance.
package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/pysugar/drivesweep/internal/config"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// SessionCookieName carries the opaque session token.
const SessionCookieName = "user_session"

// UserStore saves the user returned by a successful login.
type UserStore interface {
	UpsertUserByGoogleID(ctx context.Context, user *models.User) error
}

// Authenticator runs the OAuth flow against Google and turns it into a local session.
type Authenticator struct {
	config   *oauth2.Config
	store    UserStore
	state    *StateSigner
	frontend config.FrontendConfig
	session  config.SessionConfig
	// apiOpts are passed to the userinfo client.
	apiOpts []option.ClientOption
}

func NewAuthenticator(oauthConfig *oauth2.Config, store UserStore, state *StateSigner, cfg *config.Config, apiOpts ...option.ClientOption) *Authenticator {
	session := cfg.Session
	session.CookieSecure = session.CookieSecure || cfg.IsRelease()
	return &Authenticator{
		config:   oauthConfig,
		store:    store,
		state:    state,
		frontend: cfg.Frontend,
		session:  session,
		apiOpts:  apiOpts,
	}
}

// isPrivateIP checks if the host is a private/local IP address
func isPrivateIP(host string) bool {
	// Remove port if present
	hostOnly := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostOnly = h
	}

	// Check for localhost
	if hostOnly == "localhost" || hostOnly == "127.0.0.1" {
		return false // localhost doesn't require device_id
	}

	ip := net.ParseIP(hostOnly)
	if ip == nil {
		return false
	}

	// Check private IP ranges: 10.x.x.x, 172.16-31.x.x, 192.168.x.x
	return ip.IsPrivate()
}

// AuthCodeURL builds the consent URL with a fresh signed state.
func (a *Authenticator) AuthCodeURL(redirectURL string) (string, error) {
	state, err := a.state.Issue()
	if err != nil {
		return "", err
	}

	// Offline access with forced consent so Google always returns a refresh token.
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	}

	// Google requires device_id and device_name for private IP redirect hosts
	if host := redirectHost(redirectURL); isPrivateIP(host) {
		deviceID := make([]byte, 16)
		rand.Read(deviceID)
		opts = append(opts,
			oauth2.SetAuthURLParam("device_id", hex.EncodeToString(deviceID)),
			oauth2.SetAuthURLParam("device_name", "drivesweep"),
		)
	}

	return a.withRedirect(redirectURL).AuthCodeURL(state, opts...), nil
}

// HandleLogin initiates the Google OAuth flow by redirecting to Google's consent page.
func (a *Authenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := a.AuthCodeURL("")
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to start login")
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// withRedirect returns the config, overriding the redirect URL when one is given.
func (a *Authenticator) withRedirect(redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		return a.config
	}
	c := *a.config
	c.RedirectURL = redirectURL
	return &c
}

func redirectHost(redirectURL string) string {
	rest := redirectURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
