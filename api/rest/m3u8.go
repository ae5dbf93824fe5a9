package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/etherlabsio/go-m3u8/m3u8"
	"github.com/gin-gonic/gin"
)

// M3U8 fetches an HLS playlist and rewrites every URI it references
// through /proxied, so players never leave this server even for
// segmented sources.
func (h *Handlers) M3U8(c *gin.Context) {
	rawURL := c.Param("url")[1:]
	parsed, err := url.Parse(rawURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL."})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, parsed.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL."})
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch URL."})
		return
	}
	defer resp.Body.Close()

	playlist, err := m3u8.Read(resp.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to parse M3U8 playlist."})
		return
	}

	for _, item := range playlist.Items {
		switch item := item.(type) {
		case *m3u8.KeyItem:
			item.Encryptable.URI = proxied(*item.Encryptable.URI)
		case *m3u8.PlaylistItem:
			item.URI = *proxied(item.URI)
		case *m3u8.SegmentItem:
			item.Segment = *proxied(item.Segment)
		}
	}

	var buffer bytes.Buffer
	buffer.WriteString(playlist.String())

	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", buffer.Bytes())
}

func proxied(uri string) *string {
	p := fmt.Sprintf("/proxied/%s", url.QueryEscape(uri))
	return &p
}
