package database

import (
	"sort"
	"sync"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"passwordHash"`
	Salt         []byte    `json:"salt"`
	CreatedAt    time.Time `json:"createdAt"`
}

type userTable struct {
	mu     sync.RWMutex
	byID   map[int64]User
	byName map[string]int64
	nextID int64
}

func newUserTable() userTable {
	return userTable{
		byID:   make(map[int64]User),
		byName: make(map[string]int64),
		nextID: 1,
	}
}

func (t *userTable) load(users []User, nextID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, u := range users {
		t.byID[u.ID] = u
		t.byName[u.Username] = u.ID
		nextID = max(nextID, u.ID+1)
	}
	t.nextID = max(nextID, 1)
}

func (t *userTable) dump() ([]User, int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]User, 0, len(t.byID))
	for _, u := range t.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, t.nextID
}

// CreateUser stores a new user. Usernames are unique and case-sensitive.
func (db *Database) CreateUser(username string, passwordHash, salt []byte) (User, error) {
	t := &db.users
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, found := t.byName[username]; found {
		return User{}, ErrUserExists
	}

	u := User{
		ID:           t.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}
	t.nextID++
	t.byID[u.ID] = u
	t.byName[username] = u.ID
	db.markDirty()
	return u, nil
}

func (db *Database) UserByName(username string) (User, error) {
	t := &db.users
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, found := t.byName[username]
	if !found {
		return User{}, ErrNotFound
	}
	return t.byID[id], nil
}

func (db *Database) UserByID(id int64) (User, error) {
	t := &db.users
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, found := t.byID[id]
	if !found {
		return User{}, ErrNotFound
	}
	return u, nil
}
