package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Guard returns the identity bound to sess, or ErrUnauthenticated.
func Guard(sess Session) (string, error) {
	if sess == nil {
		return "", ErrUnauthenticated
	}
	email, ok := sess.Identity()
	if !ok {
		return "", ErrUnauthenticated
	}
	return email, nil
}

// RequireLogin redirects anonymous visitors to the login page with a flash naming page.
// On success the identity is available as c.GetString("identity").
func RequireLogin(cfg Config, page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFor(cfg, c)
		email, err := Guard(sess)
		if err != nil {
			redirectWithFlash(c, sess, "/login", "Please log in to access the "+page)
			c.Abort()
			return
		}
		c.Set("identity", email)
		c.Next()
	}
}

// redirectWithFlash queues msg and sends a 303 to location.
func redirectWithFlash(c *gin.Context, sess *cookieSession, location, msg string) {
	if err := sess.addFlash(msg); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
