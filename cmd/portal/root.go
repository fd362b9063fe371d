package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jrsteele09/go-portal-session/apiclient"
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/token/filestore"
	"github.com/jrsteele09/go-portal-session/token/memstore"
	"github.com/jrsteele09/go-portal-session/token/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	storeFlag string
	app       *portalApp
)

// portalApp is the wiring shared by every command.
type portalApp struct {
	cfg     config.Config
	store   token.Store
	authn   *auth.HTTPClient
	manager *sessions.Manager
	api     *apiclient.Client
	out     io.Writer
	closers []func() error
}

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Customer portal session client",
	Long: `portal logs in to the customer portal and keeps the session between runs.

Example usage:
  portal login --email me@example.com --password ...
  portal whoami                # Show the session and what it may do
  portal get /api/users/me     # Authenticated GET, refreshing the token if needed
  portal logout`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		app, err = newPortalApp(cmd.OutOrStdout())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return app.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "token store: file, memory or redis (default from PORTAL_TOKEN_STORE)")
}

func newPortalApp(out io.Writer) (*portalApp, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	a := &portalApp{cfg: cfg, out: out}

	a.store, err = a.openStore()
	if err != nil {
		return nil, err
	}

	a.authn, err = auth.NewHTTPClient(cfg.GetAPIBaseURL(), auth.WithTimeout(cfg.GetAuthTimeout()))
	if err != nil {
		return nil, err
	}

	a.manager, err = sessions.NewManager(a.store, a.authn,
		sessions.WithAccountFlows(a.authn),
		sessions.WithRefreshTimeout(cfg.GetAuthTimeout()),
	)
	if err != nil {
		return nil, err
	}
	a.manager.Hydrate()
	a.manager.Subscribe(a.printTransition)

	a.api, err = apiclient.New(cfg.GetAPIBaseURL(), a.manager,
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithCircuitBreaker("portal-api"),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *portalApp) openStore() (token.Store, error) {
	kind := a.cfg.GetTokenStoreKind()
	if storeFlag != "" {
		kind = config.Store{Kind: storeFlag}.GetTokenStoreKind()
	}

	switch kind {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.GetRedisAddr(),
			Password: a.cfg.GetRedisPassword(),
			DB:       a.cfg.GetRedisDB(),
		})
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client, a.cfg.GetRedisPrefix(), a.cfg.GetRequestTimeout())
	default:
		return filestore.New(a.cfg.GetStateDir())
	}
}

func (a *portalApp) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// commandContext bounds a command by the auth and request timeouts combined.
func (a *portalApp) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.GetRequestTimeout()+a.cfg.GetAuthTimeout())
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func (a *portalApp) printTransition(ev sessions.Event) {
	if ev.Previous.Kind == ev.Current.Kind {
		return
	}
	line := fmt.Sprintf("session: %s -> %s", ev.Previous.Kind, ev.Current.Kind)
	if ev.Forced() {
		line += fmt.Sprintf(" (%v)", ev.Reason)
	}
	faint.Fprintln(os.Stderr, line)
}
