package config

import "strings"

type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

type StoreConfig interface {
	GetTokenStoreKind() StoreKind
	GetStateDir() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Store struct {
	Kind          string `env:"PORTAL_TOKEN_STORE" envDefault:"file"`
	StateDir      string `env:"PORTAL_STATE_DIR,expand" envDefault:"${HOME}/.portal"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"PORTAL_REDIS_PREFIX" envDefault:"portal:session"`
}

var _ StoreConfig = Store{}

// GetTokenStoreKind falls back to the file store for unknown values.
func (s Store) GetTokenStoreKind() StoreKind {
	switch kind := StoreKind(strings.ToLower(s.Kind)); kind {
	case StoreMemory, StoreRedis:
		return kind
	default:
		return StoreFile
	}
}

func (s Store) GetStateDir() string {
	if s.StateDir == "" || s.StateDir == "/.portal" {
		return ".portal"
	}
	return s.StateDir
}

func (s Store) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Store) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Store) GetRedisDB() int {
	return s.RedisDB
}

func (s Store) GetRedisPrefix() string {
	return s.RedisPrefix
}
