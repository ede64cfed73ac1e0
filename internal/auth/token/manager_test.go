package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeRefresher struct {
	calls atomic.Int32
	token *oauth2.Token
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type memStore struct {
	saved []models.User
	err   error
}

func (s *memStore) SaveUser(ctx context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *user)
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newUser(expiresIn time.Duration) *models.User {
	return &models.User{
		ID:                   "u1",
		Email:                "u@x.com",
		AccessToken:          "old-access",
		RefreshToken:         "refresh-1",
		AccessTokenExpiresAt: fixedNow.Add(expiresIn),
	}
}

func TestEnsureFresh_SkipsRefreshWhenValid(t *testing.T) {
	ref := &fakeRefresher{token: &oauth2.Token{AccessToken: "new"}}
	store := &memStore{}
	m := NewManager(store, ref).WithClock(func() time.Time { return fixedNow })

	tok := m.EnsureFresh(context.Background(), newUser(time.Hour))

	assert.Equal(t, "old-access", tok.AccessToken)
	assert.Zero(t, ref.calls.Load())
	assert.Empty(t, store.saved)
}

func TestEnsureFresh_RefreshesInsideSkewAndPersists(t *testing.T) {
	expiry := fixedNow.Add(time.Hour)
	ref := &fakeRefresher{token: &oauth2.Token{AccessToken: "new-access", RefreshToken: "refresh-2", Expiry: expiry}}
	store := &memStore{}
	m := NewManager(store, ref).WithClock(func() time.Time { return fixedNow })
	user := newUser(4 * time.Minute)

	tok := m.EnsureFresh(context.Background(), user)

	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, int32(1), ref.calls.Load())
	require.Len(t, store.saved, 1)
	assert.Equal(t, "new-access", store.saved[0].AccessToken)
	assert.Equal(t, "refresh-2", store.saved[0].RefreshToken)
	assert.True(t, store.saved[0].AccessTokenExpiresAt.Equal(expiry))
}

func TestEnsureFresh_FailureKeepsStoredToken(t *testing.T) {
	ref := &fakeRefresher{err: errors.New(`oauth2: "invalid_grant"`)}
	store := &memStore{}
	m := NewManager(store, ref).WithClock(func() time.Time { return fixedNow })

	tok := m.EnsureFresh(context.Background(), newUser(-time.Minute))

	assert.Equal(t, "old-access", tok.AccessToken)
	assert.Empty(t, store.saved)
}

func TestEnsureFresh_SaveFailureStillUsesNewToken(t *testing.T) {
	ref := &fakeRefresher{token: &oauth2.Token{AccessToken: "new-access", Expiry: fixedNow.Add(time.Hour)}}
	m := NewManager(&memStore{err: errors.New("disk full")}, ref).WithClock(func() time.Time { return fixedNow })

	tok := m.EnsureFresh(context.Background(), newUser(0))
	assert.Equal(t, "new-access", tok.AccessToken)
}

func TestRefreshUserToken_NoRefreshToken(t *testing.T) {
	m := NewManager(&memStore{}, &fakeRefresher{})
	user := newUser(0)
	user.RefreshToken = ""
	assert.ErrorIs(t, m.RefreshUserToken(context.Background(), user), ErrNoRefreshToken)
}

func TestOAuthRefresher_UsesTokenEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	r := NewOAuthRefresher(&oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL},
	})
	tok, err := r.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.True(t, tok.Expiry.After(time.Now()))
}

func TestIsPermanentRefreshError(t *testing.T) {
	tests := []struct {
		name      string
		errText   string
		permanent bool
	}{
		{name: "invalid grant", errText: "oauth2: cannot fetch token: 400 Bad Request {\"error\":\"invalid_grant\"}", permanent: true},
		{name: "revoked", errText: "token has been expired or revoked", permanent: true},
		{name: "timeout", errText: "context deadline exceeded", permanent: false},
		{name: "temporary", errText: "temporarily_unavailable", permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPermanentRefreshError(assertErr(tt.errText))
			if got != tt.permanent {
				t.Fatalf("expected %v, got %v", tt.permanent, got)
			}
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
