package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "kharcha_session"

type session struct {
	userID    int64
	expiresAt time.Time
}

// sessionStore keeps login sessions in memory, keyed by random token.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// create issues a fresh token for the user.
func (ss *sessionStore) create(userID int64) string {
	token := uuid.NewString()
	ss.mu.Lock()
	ss.sessions[token] = session{
		userID:    userID,
		expiresAt: time.Now().Add(ss.ttl),
	}
	ss.mu.Unlock()
	return token
}

// lookup resolves a token to a user ID. Expired sessions are removed on
// the spot rather than by a background sweep.
func (ss *sessionStore) lookup(token string) (int64, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	sess, ok := ss.sessions[token]
	if !ok {
		return 0, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(ss.sessions, token)
		return 0, false
	}
	return sess.userID, true
}

func (ss *sessionStore) revoke(token string) {
	ss.mu.Lock()
	delete(ss.sessions, token)
	ss.mu.Unlock()
}

// setSessionCookie writes the session token as an HTTP-only cookie.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
