package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/logging"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Complete exchanges the authorization code, fetches the Google identity and saves the user
// with a new session token. redirectURL must match the one used for the consent URL; empty means the configured one.
func (a *Authenticator) Complete(ctx context.Context, state, code, redirectURL string) (*models.User, error) {
	if err := a.state.Verify(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	cfg := a.withRedirect(redirectURL)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, token))}, a.apiOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return nil, fmt.Errorf("user info is missing id or email")
	}

	user := &models.User{
		GoogleUserID:         info.Id,
		Email:                info.Email,
		Name:                 info.Name,
		AccessToken:          token.AccessToken,
		RefreshToken:         token.RefreshToken,
		AccessTokenExpiresAt: token.Expiry.UTC(),
		SessionToken:         uuid.New().String(),
	}
	if err := a.store.UpsertUserByGoogleID(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	logging.FromContext(ctx).Info().Str("email", user.Email).Str("user_id", user.ID).Msg("✅ Login successful")
	return user, nil
}

// HandleCallback processes the OAuth callback from Google.
func (a *Authenticator) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		a.redirectError(w, r, e)
		return
	}

	user, err := a.Complete(r.Context(), q.Get("state"), q.Get("code"), "")
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("❌ OAuth callback failed")
		a.redirectError(w, r, "authentication_failed")
		return
	}

	http.SetCookie(w, a.sessionCookie(user.SessionToken))
	http.Redirect(w, r, a.frontend.SuccessURL, http.StatusFound)
}

func (a *Authenticator) sessionCookie(token string) *http.Cookie {
	maxAge := a.session.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Authenticator) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	target := a.frontend.ErrorURL
	if target == "" {
		http.Error(w, "Authentication failed: "+reason, http.StatusBadRequest)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		http.Error(w, "Authentication failed: "+reason, http.StatusBadRequest)
		return
	}
	q := u.Query()
	q.Set("error", reason)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
