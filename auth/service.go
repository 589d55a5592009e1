// Package auth is the protocol engine: the OAuth2/OIDC authorization-code flow with
// PKCE, session issuance and renewal, credentials login and logout.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/light-auth/cookies"
	"github.com/jrsteele09/light-auth/csrf"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/secret"
	"github.com/jrsteele09/light-auth/sessions"
	"github.com/jrsteele09/light-auth/users"
	"github.com/rs/zerolog"
)

const (
	DefaultBasePath        = "/api/auth"
	DefaultSessionTTL      = 30 * 24 * time.Hour
	DefaultExchangeTimeout = 10 * time.Second

	pendingAuthorizationTTL  = 10 * time.Minute
	defaultAccessTokenExpiry = time.Hour
)

var defaultScopes = []string{"openid", "profile", "email"}

// Settings is the required configuration. It is copied into the Service and never
// changed afterwards.
type Settings struct {
	BasePath   string
	Providers  *providers.Registry
	Secret     secret.Key
	SessionTTL time.Duration // <= 0 uses DefaultSessionTTL
	Secure     bool          // Secure attribute on every cookie
}

// Service drives every auth operation. It holds no per-request state.
type Service struct {
	basePath        string
	providers       *providers.Registry
	secret          secret.Key
	sessionTTL      time.Duration
	cookieOptions   cookies.Options
	sessions        sessions.Store
	users           users.Adapter
	hooks           Hooks
	csrf            *csrf.Guard
	exchangeTimeout time.Duration
	decryptHook     sessions.DecryptErrorHook
	logger          zerolog.Logger
	nowTime         func() time.Time
}

type Option func(*Service)

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithUserAdapter persists a user record alongside every session.
func WithUserAdapter(adapter users.Adapter) Option {
	return func(s *Service) {
		s.users = adapter
	}
}

func WithHooks(hooks Hooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSessionStore replaces the encrypted cookie store.
func WithSessionStore(store sessions.Store) Option {
	return func(s *Service) {
		s.sessions = store
	}
}

// WithExchangeTimeout bounds the provider token request.
func WithExchangeTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.exchangeTimeout = timeout
		}
	}
}

// WithDecryptErrorHook observes session cookies that fail to decrypt. Ignored when
// WithSessionStore is used.
func WithDecryptErrorHook(hook sessions.DecryptErrorHook) Option {
	return func(s *Service) {
		s.decryptHook = hook
	}
}

// New validates settings and resolves every collaborator.
func New(settings Settings, opts ...Option) (*Service, error) {
	if settings.Secret.IsZero() {
		return nil, fmt.Errorf("[auth.New] %w: secret is required", autherrors.ErrConfig)
	}
	if settings.Providers == nil || settings.Providers.Len() == 0 {
		return nil, fmt.Errorf("[auth.New] %w: at least one provider is required", autherrors.ErrConfig)
	}

	s := &Service{
		basePath:        settings.BasePath,
		providers:       settings.Providers,
		secret:          settings.Secret,
		sessionTTL:      settings.SessionTTL,
		cookieOptions:   cookies.Options{Secure: settings.Secure},
		exchangeTimeout: DefaultExchangeTimeout,
		logger:          zerolog.Nop(),
		nowTime:         time.Now,
	}
	if s.basePath == "" {
		s.basePath = DefaultBasePath
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		codec, err := sessions.NewCodec(s.secret)
		if err != nil {
			return nil, fmt.Errorf("[auth.New] %w: %w", autherrors.ErrConfig, err)
		}
		store, err := sessions.NewCookieStore(codec, s.cookieOptions,
			sessions.WithDecryptErrorHook(s.decryptHook),
			sessions.WithNowTime(s.nowTime),
		)
		if err != nil {
			return nil, fmt.Errorf("[auth.New] %w: %w", autherrors.ErrConfig, err)
		}
		s.sessions = store
	}
	s.csrf = csrf.NewGuard(s.secret.Value(), s.cookieOptions)
	return s, nil
}

func (s *Service) BasePath() string {
	return s.basePath
}

func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) CSRF() *csrf.Guard {
	return s.csrf
}

func (s *Service) Providers() *providers.Registry {
	return s.providers
}

// withTimeout bounds a provider network call.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.exchangeTimeout)
}
