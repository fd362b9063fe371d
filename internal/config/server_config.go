package config

import "time"

// ServerConfig configures the stub auth backend.
type ServerConfig interface {
	GetJWTSecret() []byte
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRefreshTokenLength() int
}

type Server struct {
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

var _ ServerConfig = Server{}

func (s Server) GetJWTSecret() []byte {
	return []byte(s.JWTSecret)
}

func (s Server) GetAccessTokenTTL() time.Duration {
	if s.AccessTokenTTL <= 0 {
		return 15 * time.Minute
	}
	return s.AccessTokenTTL
}

func (s Server) GetRefreshTokenTTL() time.Duration {
	if s.RefreshTokenTTL <= 0 {
		return 7 * 24 * time.Hour // 7 days
	}
	return s.RefreshTokenTTL
}

func (Server) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
