package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/freekieb7/reel/session"
)

var (
	ErrSessionNotFound = errors.New("session store: session not found")
	ErrSessionExpired  = errors.New("session store: session expired")
)

const MemorySessionStoreName = "memory"

type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]session.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		data: make(map[string]session.Session),
	}
}

func (m *MemorySessionStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.data)
	return nil
}

// Get returns a live session. An expired one is removed and reported as
// ErrSessionExpired.
func (m *MemorySessionStore) Get(token string) (session.Session, error) {
	m.mu.RLock()
	sess, found := m.data[token]
	m.mu.RUnlock()

	if !found {
		return session.Session{}, ErrSessionNotFound
	}
	if sess.Expired(time.Now()) {
		_ = m.Delete(token)
		return session.Session{}, ErrSessionExpired
	}
	return sess, nil
}

func (m *MemorySessionStore) Save(sess session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[sess.Token] = sess
	return nil
}

func (m *MemorySessionStore) Delete(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, token)
	return nil
}

func (m *MemorySessionStore) PurgeExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for token, sess := range m.data {
		if sess.Expired(now) {
			delete(m.data, token)
			purged++
		}
	}
	return purged
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
