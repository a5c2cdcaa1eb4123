package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "stopped" once the session has exported, so a supervisor can
// tell a finished run from a live one.
func Health(sess SessionController, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
		}
		if sess != nil {
			st := sess.Status()
			resp.Count = st.Count
			if st.State == models.StateStopped {
				resp.Status = "stopped"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
