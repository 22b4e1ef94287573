package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Flash categories
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
)

const flashKey = "_flashes"

// Flash is a one-shot message shown on the next page view.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// -----------------------------------------------------------------------------

func addFlash(sess sessions.Session, category, message string) {
	sess.AddFlash(category+":"+message, flashKey)
}

// popFlashes drains the queued flashes in the order they were added.
// The caller must save the session.
func popFlashes(sess sessions.Session) []Flash {
	out := []Flash{}
	for _, raw := range sess.Flashes(flashKey) {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		category, message, found := strings.Cut(str, ":")
		if !found {
			category, message = FlashSuccess, str
		}
		out = append(out, Flash{Category: category, Message: message})
	}
	return out
}

// -----------------------------------------------------------------------------

// saveSession persists the cookie; a failure is logged, never surfaced.
func (s *DashboardServer) saveSession(sess sessions.Session) {
	if err := sess.Save(); err != nil {
		s.Logger.Error("Failed to save session: %v", err)
	}
}

// -----------------------------------------------------------------------------

// redirectBack sends a mutation back to return_to when it is a local path,
// else to the Referer, else to the index.
func redirectBack(c *gin.Context) {
	target := "/"
	if rt := c.PostForm("return_to"); isLocalPath(rt) {
		target = rt
	} else if ref := c.Request.Referer(); ref != "" {
		target = ref
	}
	c.Redirect(http.StatusSeeOther, target)
}

// isLocalPath accepts "/path?query" but rejects anything carrying a scheme or
// host, including the protocol-relative "//host" form.
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
