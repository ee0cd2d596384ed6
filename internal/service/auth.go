// Package service contains application services for accounts, the catalog and owned entries.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	pkgcrypto "github.com/and161185/counter-orion/internal/crypto"
	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/limiter"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// MinPasswordLen is the shortest accepted password, in characters.
const MinPasswordLen = 6

// Boundary messages. Token failures are never told apart to the caller.
var (
	errRegisterInput   = fmt.Errorf("%w: email, username, password(>=6) are required", errs.ErrValidation)
	errDuplicate       = fmt.Errorf("%w: email or username already exists", errs.ErrAlreadyExists)
	errBadCredentials  = fmt.Errorf("%w: invalid credentials", errs.ErrUnauthorized)
	errRefreshRequired = fmt.Errorf("%w: refresh_token is required", errs.ErrValidation)
	errBadRefresh      = fmt.Errorf("%w: invalid or expired refresh token", errs.ErrUnauthorized)
	errBadAccess       = fmt.Errorf("%w: invalid or expired token", errs.ErrUnauthorized)
	errUserGone        = fmt.Errorf("%w: user not found", errs.ErrUnauthorized)
	errTooManyAttempts = fmt.Errorf("%w: too many failed login attempts, try again later", errs.ErrRateLimited)
)

// TokenService issues and verifies signed tokens.
type TokenService interface {
	Issue(u model.User, kind model.TokenKind) (string, time.Time, error)
	Verify(tok string, want model.TokenKind) (model.Claims, error)
}

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new user with a salted password hash.
	Register(ctx context.Context, email, username, password string) (model.User, error)
	// Authenticate checks credentials without rate limiting.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	// Login applies rate limiting, authenticates and issues an access/refresh pair.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Resolve verifies an access token and loads its subject.
	Resolve(ctx context.Context, accessToken string) (*model.User, error)
	// Find loads a user by ID.
	Find(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Delete removes a user and all owned entries.
	Delete(ctx context.Context, id uuid.UUID) error
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens TokenService
	lim    limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens TokenService, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Register validates input and stores a new user. Uniqueness is left to the store.
func (s *AuthServiceImpl) Register(ctx context.Context, email, username, password string) (model.User, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || utf8.RuneCountInString(password) < MinPasswordLen {
		return model.User{}, errRegisterInput
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.User{}, err
	}
	hash, salt, err := pkgcrypto.NewPassword(password)
	if err != nil {
		return model.User{}, err
	}

	u := &model.User{
		ID:       uid,
		Email:    email,
		Username: username,
		PwdHash:  hash,
		PwdSalt:  salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.User{}, errDuplicate
		}
		return model.User{}, err
	}
	return *u, nil
}

// Authenticate reports the same error for an unknown email and a wrong password.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		pkgcrypto.BurnPassword(password)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !pkgcrypto.VerifyPassword([]byte(password), u.PwdSalt, u.PwdHash) {
		return nil, errBadCredentials
	}
	return u, nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	subject := NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errTooManyAttempts
	}

	u, err := s.Authenticate(ctx, subject, password)
	if errors.Is(err, errs.ErrUnauthorized) {
		if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errTooManyAttempts
		}
		return model.Tokens{}, model.User{}, err
	}
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}

	// Best-effort reset.
	_ = s.lim.Success(ctx, subject, ipHash)

	access, exp, err := s.tokens.Issue(*u, model.TokenAccess)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	refresh, _, err := s.tokens.Issue(*u, model.TokenRefresh)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, *u, nil
}

// Refresh issues a new access token. The refresh token itself is not rotated.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return model.Tokens{}, errRefreshRequired
	}
	claims, err := s.tokens.Verify(refreshToken, model.TokenRefresh)
	if err != nil {
		return model.Tokens{}, errBadRefresh
	}
	u, err := s.subject(ctx, claims.UserID)
	if err != nil {
		return model.Tokens{}, err
	}
	access, exp, err := s.tokens.Issue(*u, model.TokenAccess)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

// Resolve backs the request gate: the token must be an access token and its
// subject must still exist.
func (s *AuthServiceImpl) Resolve(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tokens.Verify(accessToken, model.TokenAccess)
	if err != nil {
		return nil, errBadAccess
	}
	return s.subject(ctx, claims.UserID)
}

func (s *AuthServiceImpl) subject(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errUserGone
	}
	return u, err
}

// Find loads a user; a missing user yields errs.ErrNotFound.
func (s *AuthServiceImpl) Find(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Delete removes the user together with its owned entries.
func (s *AuthServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.users.Delete(ctx, id)
}
