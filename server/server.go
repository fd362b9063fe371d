package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/token/refresh"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the part of the application configuration the stub backend reads.
type Config interface {
	config.EnvConfig
	config.ServerConfig
}

// Server is a development implementation of the portal auth backend. It
// issues HS256 access tokens and opaque refresh tokens for accounts held in
// an AccountRepo.
type Server struct {
	env           string
	mux           *http.ServeMux
	routes        []string
	config        Config
	accounts      users.AccountRepo
	refreshTokens *refresh.Manager
	signer        *hmacSigner
	logger        zerolog.Logger
	nowTime       func() time.Time
	seeds         []SeedAccount
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithNowTime sets the clock used for access token issue and expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithSeedAccounts creates the given accounts when the server starts.
func WithSeedAccounts(seeds ...SeedAccount) Option {
	return func(s *Server) {
		s.seeds = append(s.seeds, seeds...)
	}
}

func New(cfg Config, accounts users.AccountRepo, refreshRepo refresh.Repo, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if accounts == nil {
		return nil, errors.New("[server.New] account repo is required")
	}
	if refreshRepo == nil {
		return nil, errors.New("[server.New] refresh token repo is required")
	}
	if len(cfg.GetJWTSecret()) == 0 {
		return nil, errors.New("[server.New] JWT secret is required")
	}

	s := &Server{
		env:           cfg.GetEnv(),
		mux:           http.NewServeMux(),
		config:        cfg,
		accounts:      accounts,
		refreshTokens: refresh.NewManager(refreshRepo, cfg),
		signer:        newHMACSigner(cfg.GetJWTSecret()),
		logger:        log.Logger,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.seedAccounts(s.seeds); err != nil {
		return nil, errors.Wrap(err, "[server.New] failed to seed accounts")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}
