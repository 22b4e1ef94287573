package server

import (
	"errors"
	"net/http"

	"stock-watch/src/dashboard"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Account pages (registered only with auth.enabled)
// -----------------------------------------------------------------------------

func (s *DashboardServer) getAccountPage(c *gin.Context) {
	sess := sessions.Default(c)
	username := dashboard.Username(sess)
	flashes := popFlashes(sess)
	s.saveSession(sess)

	c.JSON(http.StatusOK, gin.H{"username": username, "flashes": flashes})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postRegister(c *gin.Context) {
	sess := sessions.Default(c)

	err := s.Dashboard.Register(c.Request.Context(), sess, c.PostForm("username"), c.PostForm("password"))
	switch {
	case err == nil:
		addFlash(sess, FlashSuccess, "Registration successful!")
		s.saveSession(sess)
		c.Redirect(http.StatusSeeOther, "/")
		return
	case errors.Is(err, dashboard.ErrMissingCredentials):
		addFlash(sess, FlashError, "Username and password are required")
	case errors.Is(err, dashboard.ErrUsernameTaken):
		addFlash(sess, FlashError, "Username already exists")
	default:
		s.Logger.Error("Registration failed: %v", err)
		addFlash(sess, FlashError, "An unexpected error occurred")
	}

	s.saveSession(sess)
	c.Redirect(http.StatusSeeOther, "/register")
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postLogin(c *gin.Context) {
	sess := sessions.Default(c)

	err := s.Dashboard.Login(c.Request.Context(), sess, c.PostForm("username"), c.PostForm("password"))
	switch {
	case err == nil:
		addFlash(sess, FlashSuccess, "Logged in successfully!")
		s.saveSession(sess)
		c.Redirect(http.StatusSeeOther, "/")
		return
	case errors.Is(err, dashboard.ErrMissingCredentials):
		addFlash(sess, FlashError, "Username and password are required")
	case errors.Is(err, dashboard.ErrInvalidCredentials):
		addFlash(sess, FlashError, "Invalid username or password")
	default:
		s.Logger.Error("Login failed: %v", err)
		addFlash(sess, FlashError, "An unexpected error occurred")
	}

	s.saveSession(sess)
	c.Redirect(http.StatusSeeOther, "/login")
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getLogout(c *gin.Context) {
	sess := sessions.Default(c)
	s.Dashboard.Logout(sess)
	addFlash(sess, FlashSuccess, "Logged out successfully!")
	s.saveSession(sess)
	c.Redirect(http.StatusFound, "/login")
}
