package server

import (
	"net/http"

	"stock-watch/src/dashboard"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Recovery
// -----------------------------------------------------------------------------

// jsonRecovery turns a handler panic into a 500 JSON body.
func (s *DashboardServer) jsonRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		s.Logger.Error("Panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// -----------------------------------------------------------------------------

// pageRecovery turns a handler panic into a flash and a redirect to the index.
// A panic on the index itself answers with the flashes inline, otherwise the
// redirect would land on the same failing handler again.
func (s *DashboardServer) pageRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		s.Logger.Error("Panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		sess := sessions.Default(c)
		addFlash(sess, FlashError, "An unexpected error occurred")

		if c.Request.URL.Path == "/" {
			flashes := popFlashes(sess)
			s.saveSession(sess)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"flashes": flashes})
			return
		}

		s.saveSession(sess)
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	})
}

// -----------------------------------------------------------------------------
// Login gate (auth.enabled only)
// -----------------------------------------------------------------------------

func (s *DashboardServer) requireLoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Config.Auth.Enabled {
			c.Next()
			return
		}
		sess := sessions.Default(c)
		if dashboard.Username(sess) != "" {
			c.Next()
			return
		}
		addFlash(sess, FlashError, "Please log in to access this page")
		s.saveSession(sess)
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) requireLoginAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Config.Auth.Enabled || dashboard.Username(sessions.Default(c)) != "" {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
}
