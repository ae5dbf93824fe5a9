package main

import (
	"strings"

	"github.com/TuneSync/tune-sync-backend/api"
	"github.com/TuneSync/tune-sync-backend/config"
	"github.com/TuneSync/tune-sync-backend/internal/logger"
	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/TuneSync/tune-sync-backend/internal/rooms"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	store := rooms.NewStore()
	store.StartReaper(make(chan struct{}))

	res := resolver.NewHTTP(config.Conf.ResolverURL)

	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	if config.Conf.AllowOrigins == "*" {
		corsConf.AllowAllOrigins = true
	} else {
		corsConf.AllowOrigins = strings.Split(config.Conf.AllowOrigins, ",")
	}
	corsConf.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsConf))

	api.Register(r, store, res)

	logger.Log.Info("listening", "port", config.Conf.Port)
	if err := r.Run(":" + config.Conf.Port); err != nil {
		logger.Log.Error("server stopped", "err", err)
	}
}
