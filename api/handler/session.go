package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/models"
	"github.com/use-agent/vidtrack/session"
)

// SessionController is the part of a tracking session the API drives.
type SessionController interface {
	Status() models.SessionStatus
	Links() []string
	Stop() (*session.Export, error)
	StopAutoScroll() error
}

// SessionStatus returns a handler for GET /api/v1/session.
func SessionStatus(sess SessionController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess == nil {
			respondError(c, errNoSession)
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}

// SessionLinks returns a handler for GET /api/v1/session/links. The body is
// exactly what Stop would write to the export file.
func SessionLinks(sess SessionController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess == nil {
			respondError(c, errNoSession)
			return
		}
		c.String(http.StatusOK, strings.Join(sess.Links(), "\n"))
	}
}

// StopSession returns a handler for POST /api/v1/session/stop.
// Repeated calls re-export and report the same count.
func StopSession(sess SessionController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess == nil {
			respondError(c, errNoSession)
			return
		}
		exp, err := sess.Stop()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.StopResponse{
			Success: true,
			Count:   exp.Count,
			Path:    exp.Path,
		})
	}
}

// StopScroll returns a handler for POST /api/v1/session/stop-scroll.
func StopScroll(sess SessionController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess == nil {
			respondError(c, errNoSession)
			return
		}
		if err := sess.StopAutoScroll(); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess.Status())
	}
}
