// Package token issues and verifies signed, time-boxed access and refresh tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. All of them wrap errs.ErrUnauthorized, so the HTTP
// boundary can render a single message while logs and tests tell them apart.
var (
	ErrMalformed = fmt.Errorf("%w: malformed token", errs.ErrUnauthorized)
	ErrSignature = fmt.Errorf("%w: bad token signature", errs.ErrUnauthorized)
	ErrExpired   = fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
	ErrKind      = fmt.Errorf("%w: wrong token kind", errs.ErrUnauthorized)
)

type claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"type"`
}

// Service signs tokens with a shared HS256 key.
type Service struct {
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// New constructs a token service.
func New(signKey []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{signKey: signKey, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock returns a copy of s reading time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// TTL returns the lifetime of tokens of the given kind.
func (s *Service) TTL(kind model.TokenKind) time.Duration {
	if kind == model.TokenRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue creates a signed token of the given kind for u and returns its expiry.
func (s *Service) Issue(u model.User, kind model.TokenKind) (string, time.Time, error) {
	if kind != model.TokenAccess && kind != model.TokenRefresh {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	now := s.now()
	exp := now.Add(s.TTL(kind))
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:    u.Email,
		Username: u.Username,
		Type:     string(kind),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, expiry (exp <= now is expired) and kind.
func (s *Service) Verify(tok string, want model.TokenKind) (model.Claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tok, &c, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.Claims{}, ErrSignature
	default:
		return model.Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if model.TokenKind(c.Type) != want {
		return model.Claims{}, ErrKind
	}
	id, err := uuid.FromString(c.Subject)
	if err != nil {
		return model.Claims{}, fmt.Errorf("%w: bad subject", ErrMalformed)
	}

	out := model.Claims{
		UserID:   id,
		Email:    c.Email,
		Username: c.Username,
		Kind:     want,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}
