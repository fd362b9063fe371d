package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
	ServerConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Client
	Store
	Server
}

// New reads the process environment into a Config.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config.New] parse environment: %w", err)
	}
	return c, nil
}

// Default returns the configuration with every variable at its default value.
func Default() Config {
	var c mainConfig
	_ = env.ParseWithOptions(&c, env.Options{Environment: map[string]string{}})
	return c
}
