package rest

import (
	"io"
	"net/http"

	"github.com/TuneSync/tune-sync-backend/internal/logger"
	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/gin-gonic/gin"
)

// Stream resolves a source id to its audio URL and relays the bytes, so
// players only ever talk to this server.
func (h *Handlers) Stream(c *gin.Context) {
	id := c.Param("videoId")

	audioURL, err := h.resolver.AudioURL(c.Request.Context(), id)
	if err != nil {
		if resolver.Fatal(err) {
			c.String(http.StatusNotFound, "Audio source not found")
			return
		}

		logger.Log.Warn("audio resolution failed", "source", id, "err", err)
		c.String(http.StatusBadGateway, "Streaming failed")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, audioURL, nil)
	if err != nil {
		c.String(http.StatusBadGateway, "Streaming failed")
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Log.Warn("upstream fetch failed", "source", id, "err", err)
		c.String(http.StatusBadGateway, "Streaming failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		c.String(http.StatusBadGateway, "Streaming failed")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		c.Header("Content-Length", cl)
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Log.Debug("stream copy aborted", "source", id, "err", err)
	}
}
