package core

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const sessionIdentityKey = "email"

// cookieSession adapts the request's gorilla session to the Session capability.
// Each mutation is saved to the response immediately.
type cookieSession struct {
	cfg  Config
	c    *gin.Context
	sess *sessions.Session
}

// sessionFor returns the Session capability for the current request.
// SessionMiddleware must have run first.
func sessionFor(cfg Config, c *gin.Context) *cookieSession {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return &cookieSession{cfg: cfg, c: c, sess: sess}
}

func (s *cookieSession) Identity() (string, bool) {
	if s.sess == nil {
		return "", false
	}
	email, _ := s.sess.Values[sessionIdentityKey].(string)
	if strings.TrimSpace(email) == "" {
		return "", false
	}
	return email, true
}

// SetIdentity rotates the session values (keeping the CSRF token) and binds email.
func (s *cookieSession) SetIdentity(email string) error {
	if s.sess == nil {
		return ErrUnauthenticated
	}
	csrf := s.sess.Values[csrfSessionKey]
	s.sess.Values = map[interface{}]interface{}{}
	if csrf != nil {
		s.sess.Values[csrfSessionKey] = csrf
	}
	s.sess.Values[sessionIdentityKey] = email
	applySessionOptions(s.cfg, s.sess)
	return s.sess.Save(s.c.Request, s.c.Writer)
}

// Clear drops the identity but keeps the cookie so that flash messages survive the redirect.
func (s *cookieSession) Clear() error {
	if s.sess == nil {
		return nil
	}
	delete(s.sess.Values, sessionIdentityKey)
	applySessionOptions(s.cfg, s.sess)
	return s.sess.Save(s.c.Request, s.c.Writer)
}

// addFlash queues a one-shot message shown on the next page.
func (s *cookieSession) addFlash(msg string) error {
	if s.sess == nil {
		return nil
	}
	s.sess.AddFlash(msg)
	return s.sess.Save(s.c.Request, s.c.Writer)
}

// takeFlashes pops pending flash messages.
func (s *cookieSession) takeFlashes() []string {
	if s.sess == nil {
		return []string{}
	}
	raw := s.sess.Flashes()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	if len(raw) > 0 {
		_ = s.sess.Save(s.c.Request, s.c.Writer)
	}
	return out
}
