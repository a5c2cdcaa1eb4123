package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/models"
)

// DownloadManager is the downloader surface the API exposes.
type DownloadManager interface {
	Enqueue(url string) (string, error)
	EnqueueBulk(urls []string) ([]string, error)
	Get(id string) (models.DownloadTask, bool)
	List() []models.DownloadTask
	CleanupCompleted() int
	Version() uint64
	SettingsManager
}

// PostDownloads returns a handler for POST /api/v1/downloads.
//
// Accepts {"url": "..."} or {"urls": [...]}. Bulk requests skip entries that
// are not http(s) and fail only when none is usable.
func PostDownloads(dm DownloadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewTrackError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		var (
			ids []string
			err error
		)
		if len(req.URLs) > 0 {
			ids, err = dm.EnqueueBulk(req.URLs)
		} else {
			var id string
			id, err = dm.Enqueue(req.URL)
			ids = []string{id}
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, models.DownloadResponse{
			Success: true,
			Count:   len(ids),
			TaskIDs: ids,
		})
	}
}

// ListDownloads returns a handler for GET /api/v1/downloads.
func ListDownloads(dm DownloadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dm.List())
	}
}

// GetDownload returns a handler for GET /api/v1/downloads/:id.
func GetDownload(dm DownloadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, ok := dm.Get(c.Param("id"))
		if !ok {
			respondError(c, models.NewTrackError(models.ErrCodeNotFound, "download task not found", nil))
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// CleanupDownloads returns a handler for POST /api/v1/downloads/cleanup.
func CleanupDownloads(dm DownloadManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.CleanupResponse{
			Success:      true,
			RemovedCount: dm.CleanupCompleted(),
		})
	}
}

// DownloadEvents returns a handler for GET /api/v1/downloads/events, a
// server-sent event stream carrying the full task list whenever it changes.
func DownloadEvents(dm DownloadManager, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64
		sent := false
		c.Stream(func(w io.Writer) bool {
			if v := dm.Version(); !sent || v != last {
				c.SSEvent("tasks", dm.List())
				last, sent = v, true
			}
			select {
			case <-c.Request.Context().Done():
				return false
			case <-ticker.C:
				return true
			}
		})
	}
}
