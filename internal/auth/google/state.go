package google

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultStateTTL bounds how long a login may take.
const DefaultStateTTL = 10 * time.Minute

const stateIssuer = "drivesweep"

// ErrInvalidState means the callback's state does not come from this server or has expired.
var ErrInvalidState = errors.New("invalid state token")

// StateSigner issues and verifies the OAuth state parameter as a short-lived HS256 JWT.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner signs with secret; an empty secret gets a random per-process key.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
		log.Warn().Msg("⚠️ session.secret not set, login state is only valid for this process")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{secret: key, ttl: ttl}
}

// Issue returns a fresh state value.
func (s *StateSigner) Issue() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    stateIssuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry.
func (s *StateSigner) Verify(state string) error {
	if state == "" {
		return ErrInvalidState
	}
	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
