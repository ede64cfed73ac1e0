// Package token keeps each user's Google access token usable for the next Drive call.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultRefreshSkew refreshes tokens that expire within this window.
const DefaultRefreshSkew = 5 * time.Minute

// ErrNoRefreshToken is returned by RefreshUserToken when the user never granted offline access.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthRefresher refreshes against the provider's token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// UserStore persists refreshed credentials.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
}

// Manager handles token lifecycle including refresh-before-use
type Manager struct {
	store     UserStore
	refresher Refresher
	skew      time.Duration
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a new token manager
func NewManager(store UserStore, refresher Refresher) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		skew:      DefaultRefreshSkew,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// NeedsRefresh reports whether the stored access token expires within the skew window.
func (m *Manager) NeedsRefresh(user *models.User) bool {
	return user.AccessToken == "" || user.AccessTokenExpiresAt.Before(m.now().Add(m.skew))
}

// EnsureFresh returns a token for the user's next Drive call, refreshing it first when it is about to expire.
// A failed refresh is logged and the stored token is returned so the call can still be attempted.
func (m *Manager) EnsureFresh(ctx context.Context, user *models.User) *oauth2.Token {
	lock := m.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	if m.NeedsRefresh(user) {
		if err := m.refresh(ctx, user); err != nil {
			log.Warn().Err(err).Str("email", user.Email).Msg("⚠️ Token refresh failed, using stored token")
		}
	}
	return tokenOf(user)
}

// RefreshUserToken forces a refresh regardless of expiry.
func (m *Manager) RefreshUserToken(ctx context.Context, user *models.User) error {
	lock := m.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()
	return m.refresh(ctx, user)
}

func (m *Manager) refresh(ctx context.Context, user *models.User) error {
	if user.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	newToken, err := m.refresher.Refresh(ctx, user.RefreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			log.Error().Err(err).Str("email", user.Email).Msg("🔒 Refresh token rejected. Please re-login.")
		}
		return fmt.Errorf("refresh token for %s: %w", user.Email, err)
	}

	user.AccessToken = newToken.AccessToken
	user.AccessTokenExpiresAt = newToken.Expiry.UTC()
	// Persist rotated refresh token if provided (RFC 6749 compliance)
	if newToken.RefreshToken != "" && newToken.RefreshToken != user.RefreshToken {
		log.Info().Str("email", user.Email).Msg("🔄 Rotating refresh token")
		user.RefreshToken = newToken.RefreshToken
	}
	if err := m.store.SaveUser(ctx, user); err != nil {
		// The in-memory user still carries the new token for this call.
		log.Warn().Err(err).Str("email", user.Email).Msg("⚠️ Failed to save refreshed token")
		return nil
	}

	log.Info().Str("email", user.Email).Time("expires", newToken.Expiry).Msg("✅ Refreshed token")
	return nil
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func tokenOf(user *models.User) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       user.AccessTokenExpiresAt,
	}
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
