package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the marketplace role of the signed-in user.
type Role string

const (
	RoleClient    Role = "client"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

// Session is the signed-in user as returned by the login, registration and
// verification endpoints. The JSON shape matches the API response so it can
// be decoded and persisted without mapping.
type Session struct {
	UserID string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Token  string `json:"token"`
}

// IsAuthenticated returns true if the session carries a bearer token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}

// Validate checks the fields every request depends on. Roles outside the
// known set are kept as sent; redirects fall back to the default home.
func (s *Session) Validate() error {
	if s == nil || s.Token == "" {
		return ErrInvalidSession
	}
	return nil
}

// ExpiresAt returns the token's exp claim when the token is a JWT. The
// signature is not verified; the server remains the authority and a 401 still
// ends the session. Opaque tokens report ok=false.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s == nil || s.Token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired returns true if the token carries an exp claim that is before now.
func (s *Session) IsExpired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && now.After(exp)
}
