package core

import "github.com/gin-gonic/gin"

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondPage sends a page model with any pending flash messages and the CSRF token.
func respondPage(c *gin.Context, status int, sess *cookieSession, title string, body gin.H) {
	page := gin.H{
		"title":      title,
		"flashes":    sess.takeFlashes(),
		"csrf_token": c.GetString(csrfSessionKey),
	}
	for k, v := range body {
		page[k] = v
	}
	c.JSON(status, page)
}
