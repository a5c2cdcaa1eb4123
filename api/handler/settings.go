package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/models"
)

// SettingsManager reads and changes the downloader settings.
type SettingsManager interface {
	Settings() models.DownloadSettings
	UpdateSettings(u models.SettingsUpdate) (models.DownloadSettings, error)
	ResetSettings() (models.DownloadSettings, error)
}

// GetSettings returns a handler for GET /api/v1/settings.
func GetSettings(sm SettingsManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SettingsResponse{
			Success:  true,
			Settings: sm.Settings(),
		})
	}
}

// UpdateSettings returns a handler for POST /api/v1/settings.
//
// Only the fields present in the body change. Values outside their bounds
// reject the whole update.
func UpdateSettings(sm SettingsManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var u models.SettingsUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			respondError(c, models.NewTrackError(models.ErrCodeInvalidInput, "invalid settings: "+err.Error(), err))
			return
		}
		s, err := sm.UpdateSettings(u)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SettingsResponse{
			Success:  true,
			Message:  "Settings updated successfully",
			Settings: s,
		})
	}
}

// ResetSettings returns a handler for POST /api/v1/settings/reset.
func ResetSettings(sm SettingsManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sm.ResetSettings()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SettingsResponse{
			Success:  true,
			Message:  "Settings reset to defaults",
			Settings: s,
		})
	}
}
