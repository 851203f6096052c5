// Package auth resolves session cookies to users and manages credentials.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/http"
	"github.com/freekieb7/reel/session"
	"github.com/freekieb7/reel/session/storage"
)

const SessionCookieName = "ott_session"

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// DefaultUsers are created on startup when seeding is enabled.
var DefaultUsers = []Credentials{
	{Username: "test", Password: "test1234"},
	{Username: "demo", Password: "demo1234"},
	{Username: "guest", Password: "guestpass"},
	{Username: "sample", Password: "sample1234"},
}

type Credentials struct {
	Username string
	Password string
}

type Service struct {
	db         *database.Database
	sessions   storage.SessionStore
	ttl        time.Duration
	iterations int
	logger     *slog.Logger
}

func NewService(db *database.Database, sessions storage.SessionStore, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		db:         db,
		sessions:   sessions,
		ttl:        ttl,
		iterations: DefaultIterations,
		logger:     logger,
	}
}

// WithIterations overrides the PBKDF2 work factor. Hashes made with one value
// do not verify with another.
func (s *Service) WithIterations(iterations int) *Service {
	s.iterations = iterations
	return s
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Authenticate resolves the session cookie. Missing, unknown or expired
// sessions leave the request anonymous.
func (s *Service) Authenticate(ctx *http.RequestCtx) {
	cookie, err := ctx.Request.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return
	}

	sess, err := s.sessions.Get(cookie.Value)
	if err != nil {
		return
	}
	user, err := s.db.UserByID(sess.UserID)
	if err != nil {
		return
	}

	ctx.Authenticated = true
	ctx.UserID = user.ID
	ctx.Username = user.Username
	ctx.SessionToken = sess.Token
}

// Login checks the credentials and opens a new session.
func (s *Service) Login(username, password string) (database.User, session.Session, error) {
	user, err := s.db.UserByName(username)
	if errors.Is(err, database.ErrNotFound) {
		return database.User{}, session.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return database.User{}, session.Session{}, err
	}
	if !VerifyPassword(password, user.Salt, user.PasswordHash, s.iterations) {
		return database.User{}, session.Session{}, ErrInvalidCredentials
	}

	token, err := GenerateToken()
	if err != nil {
		return database.User{}, session.Session{}, err
	}

	s.sessions.PurgeExpired(time.Now())
	sess := session.New(token, user.ID, s.ttl)
	if err := s.sessions.Save(sess); err != nil {
		return database.User{}, session.Session{}, fmt.Errorf("auth: persisting session: %w", err)
	}
	return user, sess, nil
}

// Register creates a user. The username must be free.
func (s *Service) Register(username, password string) (database.User, error) {
	hash, salt, err := HashPassword(password, s.iterations)
	if err != nil {
		return database.User{}, err
	}
	return s.db.CreateUser(username, hash, salt)
}

func (s *Service) Logout(token string) {
	if token == "" {
		return
	}
	_ = s.sessions.Delete(token)
}

// SeedDefaultUsers creates the DefaultUsers that do not exist yet.
func (s *Service) SeedDefaultUsers() error {
	for _, creds := range DefaultUsers {
		_, err := s.Register(creds.Username, creds.Password)
		if errors.Is(err, database.ErrUserExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("auth: seeding %s: %w", creds.Username, err)
		}
		s.logger.Info("created default user", slog.String("username", creds.Username))
	}
	return nil
}

// PurgeExpired drops sessions past their expiry.
func (s *Service) PurgeExpired() int {
	return s.sessions.PurgeExpired(time.Now())
}

func (s *Service) SessionCookie(sess session.Session) http.Cookie {
	return http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
	}
}

func ClearSessionCookie() http.Cookie {
	cookie := http.Cookie{
		Name:     SessionCookieName,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	cookie.Expire()
	return cookie
}
