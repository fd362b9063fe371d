package config

import (
	"strings"
	"time"
)

// ClientConfig holds the settings a session client needs to reach the portal backend.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetAuthTimeout() time.Duration
}

type Client struct {
	APIBaseURL     string        `env:"PORTAL_API_BASE_URL" envDefault:"http://localhost:8080"`
	RequestTimeout time.Duration `env:"PORTAL_REQUEST_TIMEOUT" envDefault:"10s"`
	AuthTimeout    time.Duration `env:"PORTAL_AUTH_TIMEOUT" envDefault:"10s"`
}

var _ ClientConfig = Client{}

func (c Client) GetAPIBaseURL() string {
	return strings.TrimRight(c.APIBaseURL, "/")
}

func (c Client) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return c.RequestTimeout
}

// GetAuthTimeout bounds login, logout and refresh exchanges.
func (c Client) GetAuthTimeout() time.Duration {
	if c.AuthTimeout <= 0 {
		return 10 * time.Second
	}
	return c.AuthTimeout
}
