package rest

import (
	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/TuneSync/tune-sync-backend/internal/rooms"
	"github.com/gin-gonic/gin"
)

// Handlers carries the dependencies the REST surface is a thin layer
// over.
type Handlers struct {
	store    *rooms.Store
	resolver resolver.Resolver
}

func Register(r *gin.Engine, store *rooms.Store, res resolver.Resolver) {
	h := &Handlers{store: store, resolver: res}

	r.GET("/", h.Health)
	r.POST("/api/rooms", h.CreateRoom)
	r.GET("/api/rooms/:code", h.RoomSummary)
	r.GET("/stream/:videoId", h.Stream)
	r.GET("/m3u8/*url", h.M3U8)
	r.GET("/proxied/*url", h.Proxy)
}

func (h *Handlers) Health(c *gin.Context) {
	c.String(200, "Tune Sync server is online.")
}
