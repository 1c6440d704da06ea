package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, tokenClaims{
		Role: "teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-7",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	c, err := ParseClaims(tok)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.Subject != "u-7" || c.Role != "teacher" || !c.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected claims %+v", c)
	}
	if c.Expired(time.Now()) {
		t.Fatalf("expected token to be valid")
	}
	if !c.Expired(exp.Add(time.Second)) {
		t.Fatalf("expected token expired after exp")
	}
}

func TestAuthenticated(t *testing.T) {
	past := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	if Authenticated(past, time.Now()) {
		t.Fatalf("expected expired token to be unauthenticated")
	}
	if Authenticated("", time.Now()) {
		t.Fatalf("expected empty token to be unauthenticated")
	}
	if !Authenticated("opaque-session-token", time.Now()) {
		t.Fatalf("expected opaque token to be accepted")
	}
	if _, err := ParseClaims("a.b.c"); err == nil {
		t.Fatalf("expected malformed jwt error")
	}
	if _, err := ParseClaims(" "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestGate(t *testing.T) {
	cases := []struct {
		route  string
		authed bool
		want   string
	}{
		{"books", false, RouteLogin},
		{"books", true, ""},
		{"edit/ch-1", false, RouteLogin},
		{"admin users", false, RouteLogin},
		{"login", true, RouteBooks},
		{"register", true, RouteBooks},
		{"login", false, ""},
		{"help", false, ""},
		{"/cache/status", false, ""},
	}
	for _, tc := range cases {
		if got := Gate(tc.route, tc.authed); got != tc.want {
			t.Errorf("Gate(%q, %v) = %q, want %q", tc.route, tc.authed, got, tc.want)
		}
	}
}
