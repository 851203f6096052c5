package storage

import (
	"time"

	"github.com/freekieb7/reel/session"
)

type SessionStore interface {
	Close() error
	Get(token string) (session.Session, error)
	Save(sess session.Session) error
	Delete(token string) error
	PurgeExpired(now time.Time) int
}
