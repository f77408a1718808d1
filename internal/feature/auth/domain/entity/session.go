package entity

import "time"

// Session is the decoded content of a verified session token.
// Sessions are not persisted; the signed token is the only copy.
type Session struct {
	TokenID   string    // jti claim, used by the optional denylist
	UserID    string    // sub claim
	IssuedAt  time.Time // iat claim
	ExpiresAt time.Time // exp claim
}

// IsExpired returns true if the session has passed its expiration time.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TTL returns how long the session remains valid after now, or zero if it has expired.
func (s *Session) TTL(now time.Time) time.Duration {
	if s.IsExpired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
