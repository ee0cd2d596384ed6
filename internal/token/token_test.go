package token

import (
	"errors"
	"testing"
	"time"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(c *clock) *Service {
	return New([]byte("secret"), 30*time.Minute, 7*24*time.Hour).WithClock(c.now)
}

func testUser() model.User {
	return model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@x.com", Username: "a"}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := newTestService(c)
	u := testUser()

	tok, exp, err := s.Issue(u, model.TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(c.t.Add(30 * time.Minute)) {
		t.Fatalf("exp=%v", exp)
	}

	got, err := s.Verify(tok, model.TokenAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.UserID != u.ID || got.Email != u.Email || got.Username != u.Username || got.Kind != model.TokenAccess {
		t.Fatalf("claims mismatch: %+v", got)
	}
	if !got.IssuedAt.Equal(c.t) || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("timestamps mismatch: %+v", got)
	}
}

func TestIssue_RefreshTTL(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	s := newTestService(c)

	_, exp, err := s.Issue(testUser(), model.TokenRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(c.t.Add(7 * 24 * time.Hour)) {
		t.Fatalf("refresh exp=%v", exp)
	}

	if _, _, err := s.Issue(testUser(), model.TokenKind("bogus")); err == nil {
		t.Fatalf("want error for unknown kind")
	}
}

func TestVerify_KindSeparation(t *testing.T) {
	t.Parallel()

	s := newTestService(&clock{t: time.Now()})
	u := testUser()

	access, _, _ := s.Issue(u, model.TokenAccess)
	refresh, _, _ := s.Issue(u, model.TokenRefresh)

	if _, err := s.Verify(access, model.TokenRefresh); !errors.Is(err, ErrKind) {
		t.Fatalf("access as refresh: want ErrKind, got %v", err)
	}
	if _, err := s.Verify(refresh, model.TokenAccess); !errors.Is(err, ErrKind) {
		t.Fatalf("refresh as access: want ErrKind, got %v", err)
	}
	if _, err := s.Verify(refresh, model.TokenRefresh); err != nil {
		t.Fatalf("refresh as refresh: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	s := newTestService(c)

	tok, exp, err := s.Issue(testUser(), model.TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c.t = exp.Add(-time.Second)
	if _, err := s.Verify(tok, model.TokenAccess); err != nil {
		t.Fatalf("just before expiry: %v", err)
	}

	c.t = exp
	if _, err := s.Verify(tok, model.TokenAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("at expiry: want ErrExpired, got %v", err)
	}

	c.t = exp.Add(time.Hour)
	_, err = s.Verify(tok, model.TokenAccess)
	if !errors.Is(err, ErrExpired) || !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("after expiry: want ErrExpired/ErrUnauthorized, got %v", err)
	}
}

func TestVerify_BadSignatureAndGarbage(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newTestService(c)
	other := New([]byte("other-secret"), time.Minute, time.Hour).WithClock(c.now)

	tok, _, _ := other.Issue(testUser(), model.TokenAccess)
	if _, err := s.Verify(tok, model.TokenAccess); !errors.Is(err, ErrSignature) {
		t.Fatalf("foreign key: want ErrSignature, got %v", err)
	}

	if _, err := s.Verify("this-is-not-a-jwt", model.TokenAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage: want ErrMalformed, got %v", err)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newTestService(c)

	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.Must(uuid.NewV4()).String(),
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
		Type: string(model.TokenAccess),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS384, cl).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := s.Verify(tok, model.TokenAccess); err == nil {
		t.Fatalf("want error on HS384 token")
	}
}

func TestVerify_BadSubject(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newTestService(c)

	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
		Type: string(model.TokenAccess),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte("secret"))
	if _, err := s.Verify(tok, model.TokenAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("want ErrMalformed on bad subject, got %v", err)
	}
}
