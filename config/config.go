package config

import (
	"sync"

	"github.com/caarlos0/env"
)

type (
	Config struct {
		Port         string `env:"PORT" envDefault:"3001"`
		AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"*"`

		// Base URL of the audio resolution service that turns a
		// source id into a playable URL.
		ResolverURL string `env:"RESOLVER_URL" envDefault:"http://localhost:8090"`

		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}
)

var (
	once sync.Once

	Conf Config
)

func load() {
	if err := env.Parse(&Conf); err != nil {
		panic(err)
	}
}

func init() {
	once.Do(load)
}
