package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/light-auth/auth"
	"github.com/jrsteele09/light-auth/credentials"
	"github.com/jrsteele09/light-auth/internal/config"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/ratelimit"
	"github.com/jrsteele09/light-auth/secret"
	"github.com/jrsteele09/light-auth/server"
	"github.com/jrsteele09/light-auth/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger := newLogger(c)
	log.Logger = logger
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := secret.FromEnv(c)
	if err != nil {
		return err
	}

	registry, err := buildProviders(ctx, c, logger)
	if err != nil {
		return err
	}

	userAdapter, closeUsers, err := buildUserAdapter(ctx, c)
	if err != nil {
		return err
	}
	defer closeUsers()

	rateStore, closeRateStore, err := buildRateLimitStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeRateStore()

	service, err := auth.New(auth.Settings{
		BasePath:   c.GetBasePath(),
		Providers:  registry,
		Secret:     key,
		SessionTTL: c.GetSessionExpiry(),
		Secure:     c.IsProduction(),
	},
		auth.WithUserAdapter(userAdapter),
		auth.WithLogger(logger),
		auth.WithExchangeTimeout(c.GetTokenExchangeTimeout()),
		auth.WithDecryptErrorHook(func(_ context.Context, err error) {
			logger.Debug().Err(err).Msg("discarding undecryptable session cookie")
		}),
	)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(rateStore,
		ratelimit.WithWindow(c.GetRateLimitWindow()),
		ratelimit.WithMax(c.GetRateLimitMax()),
		ratelimit.WithLogger(logger),
	)
	dispatcher := server.NewDispatcher(service, server.WithRateLimiter(limiter), server.WithDispatcherLogger(logger))
	srv := server.New(dispatcher, server.WithEnv(c.GetEnv()), server.WithLogger(logger), server.WithTrustedProxy(c.TrustProxyHeaders()))
	srv.RegisterRouteHandler(http.MethodGet, server.RouteMetrics, promhttp.Handler())

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	return shutdown(httpServer)
}

// buildProviders loads the OAuth providers file and adds the credentials provider when
// enabled. A missing file is allowed only when credentials login is on.
func buildProviders(ctx context.Context, c config.Config, logger zerolog.Logger) (*providers.Registry, error) {
	registry, err := providers.NewRegistry()
	if err != nil {
		return nil, err
	}

	path := c.GetProvidersFile()
	if _, statErr := os.Stat(path); statErr == nil || !c.IsCredentialsEnabled() {
		file, err := providers.LoadFile(path)
		if err != nil {
			return nil, err
		}
		built, err := file.Build(ctx, providers.NewDiscovery(), c.GetBaseURL()+c.GetBasePath()+"/callback")
		if err != nil {
			return nil, err
		}
		for _, p := range built {
			if err := registry.Register(p); err != nil {
				return nil, err
			}
			logger.Info().Str("provider", p.Name()).Msg("provider registered")
		}
	}

	if c.IsCredentialsEnabled() {
		opts := []credentials.Option{credentials.WithLogger(logger)}
		if c.GetEnv() == "DEV" {
			opts = append(opts, credentials.WithResetNotifier(credentials.ResetNotifierFunc(
				func(_ context.Context, email, token string, expiresAt time.Time) error {
					logger.Info().Str("email", email).Str("token", token).Time("expires_at", expiresAt).Msg("password reset token")
					return nil
				})))
		}
		store, err := credentials.NewStore(opts...)
		if err != nil {
			return nil, err
		}
		name := c.GetCredentialsProviderName()
		if err := registry.Register(&providers.CredentialsProvider{ProviderName: name, Credentials: store}); err != nil {
			return nil, err
		}
		logger.Info().Str("provider", name).Msg("credentials provider registered")
	}
	return registry, nil
}

func buildUserAdapter(ctx context.Context, c config.Config) (users.Adapter, func(), error) {
	databaseURL := c.GetDatabaseURL()
	if databaseURL == "" {
		return users.NewMemoryAdapter(), func() {}, nil
	}
	pool, err := users.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	adapter := users.NewPostgresAdapter(pool)
	if err := adapter.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().Msg("storing users in postgres")
	return adapter, pool.Close, nil
}

func buildRateLimitStore(ctx context.Context, c config.Config) (ratelimit.Store, func(), error) {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("rate limiting through redis")
	return ratelimit.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("app", c.GetAppName()).Logger()
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
