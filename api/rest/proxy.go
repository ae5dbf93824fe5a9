package rest

import (
	"io"
	"net/http"
	"net/url"

	"github.com/TuneSync/tune-sync-backend/internal/logger"
	"github.com/gin-gonic/gin"
)

// Proxy relays an arbitrary upstream media URL, forwarding status and
// headers. HLS segments rewritten by the M3U8 handler land here.
func (h *Handlers) Proxy(c *gin.Context) {
	rawURL := c.Param("url")[1:]
	parsed, err := url.Parse(rawURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, parsed.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	for k, values := range resp.Header {
		for _, v := range values {
			c.Header(k, v)
		}
	}

	c.Header("Content-Type", contentType)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Log.Debug("proxy copy aborted", "err", err)
	}
}
