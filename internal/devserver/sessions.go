// ABOUTME: Cookie session management for the development backend
// ABOUTME: Stores sessions in the TTL cache keyed by a random session ID

package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/markalston/record-admin/internal/devserver/cache"
)

// SessionCookieName is the cookie carrying the session ID
const SessionCookieName = "SESSION"

var errSessionNotFound = errors.New("session not found")

type serverSession struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

type sessionService struct {
	cache *cache.Cache[*serverSession]
}

func newSessionService(c *cache.Cache[*serverSession]) *sessionService {
	return &sessionService{cache: c}
}

// create stores a new session and returns its ID, 32 random bytes in
// URL-safe base64
func (s *sessionService) create(username string) (string, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	id := base64.URLEncoding.EncodeToString(idBytes)

	s.cache.Set(sessionKey(id), &serverSession{
		ID:        id,
		Username:  username,
		CreatedAt: time.Now(),
	})
	return id, nil
}

func (s *sessionService) get(id string) (*serverSession, error) {
	sess, ok := s.cache.Get(sessionKey(id))
	if !ok {
		return nil, errSessionNotFound
	}
	return sess, nil
}

func (s *sessionService) delete(id string) {
	s.cache.Delete(sessionKey(id))
}

func (s *sessionService) count() int {
	return s.cache.Len()
}

func sessionKey(id string) string {
	return "session:" + id
}
