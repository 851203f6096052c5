package session

import "time"

// Session ties an opaque token to a user until ExpiresAt.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

func New(token string, userID int64, ttl time.Duration) Session {
	return Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// MaxAge is the remaining lifetime in whole seconds, as used by Set-Cookie.
func (s Session) MaxAge(now time.Time) int {
	return max(int(s.ExpiresAt.Sub(now).Seconds()), 0)
}
