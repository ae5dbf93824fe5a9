package api

import (
	"github.com/TuneSync/tune-sync-backend/api/rest"
	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/TuneSync/tune-sync-backend/internal/rooms"
	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, store *rooms.Store, res resolver.Resolver) {
	router := NewRouter(store, res)
	r.GET("/ws", router.HandleSocket)

	rest.Register(r, store, res)
}
