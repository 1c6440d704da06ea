// Package auth inspects the session token locally and decides which routes
// the current session may enter.
//
// The token's signature is never checked here: the server does that on every
// request. Claims are read only to spot an expired session before a round trip.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no session token")

type Claims struct {
	Subject   string    `json:"sub"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims reads the claims of token without verifying it. Opaque (non-JWT)
// tokens yield empty claims and no error.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrNoToken
	}
	if strings.Count(token, ".") != 2 {
		return Claims{}, nil
	}
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, err
	}
	c := Claims{Subject: tc.Subject, Role: tc.Role}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// Expired reports whether the token carries an exp claim in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Authenticated reports whether token looks usable: present and not expired.
func Authenticated(token string, now time.Time) bool {
	c, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return !c.Expired(now)
}

type Access int

const (
	// Public routes are reachable with or without a session.
	Public Access = iota
	// Protected routes need a session.
	Protected
	// Guest routes are only for users without a session (login, register).
	Guest
)

const (
	RouteLogin = "login"
	RouteBooks = "books"
)

var guestRoutes = map[string]bool{
	"login":    true,
	"register": true,
}

var publicRoutes = map[string]bool{
	"":           true,
	"help":       true,
	"version":    true,
	"completion": true,
	"logout":     true,
	"cache":      true,
	"config":     true,
	"docs":       true,
}

// AccessOf classifies a route by its first path segment.
func AccessOf(route string) Access {
	head := firstSegment(route)
	switch {
	case guestRoutes[head]:
		return Guest
	case publicRoutes[head]:
		return Public
	default:
		return Protected
	}
}

// Gate returns where a session should be sent instead of route, or "" when it
// may proceed.
func Gate(route string, authenticated bool) string {
	switch AccessOf(route) {
	case Protected:
		if !authenticated {
			return RouteLogin
		}
	case Guest:
		if authenticated {
			return RouteBooks
		}
	}
	return ""
}

func firstSegment(route string) string {
	route = strings.Trim(strings.TrimSpace(route), "/ ")
	if i := strings.IndexAny(route, "/ "); i >= 0 {
		route = route[:i]
	}
	return strings.ToLower(route)
}
