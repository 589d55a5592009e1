// Package credentials is an in-memory email/password account store usable as the
// Credentials behind a providers.CredentialsProvider.
package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const DefaultResetTokenTTL = time.Hour

// Account is a registered user.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Data         map[string]any // registration fields other than email, password and name
	CreatedAt    time.Time
}

// ResetNotifier delivers password reset tokens, usually by email.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

type ResetNotifierFunc func(ctx context.Context, email, token string, expiresAt time.Time) error

func (f ResetNotifierFunc) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	return f(ctx, email, token, expiresAt)
}

type resetToken struct {
	email     string
	expiresAt time.Time
}

type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*Account // keyed by normalized email
	resets    map[string]resetToken
	notifier  ResetNotifier
	resetTTL  time.Duration
	cost      int
	dummyHash []byte
	logger    zerolog.Logger
	nowTime   func() time.Time
}

var _ providers.Credentials = (*Store)(nil)

type Option func(*Store)

func WithResetNotifier(notifier ResetNotifier) Option {
	return func(s *Store) {
		s.notifier = notifier
	}
}

func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithBcryptCost sets the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		accounts: make(map[string]*Account),
		resets:   make(map[string]resetToken),
		resetTTL: DefaultResetTokenTTL,
		cost:     bcrypt.DefaultCost,
		logger:   zerolog.Nop(),
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// compared against when the email is unknown so both paths cost one bcrypt check
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
	if err != nil {
		return nil, fmt.Errorf("[NewStore] %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func (s *Store) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(bytes), err
}

func (s *Store) VerifyCredentials(_ context.Context, email, password string) (*providers.Claims, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, nil
	}

	// ConfirmPasswordReset rewrites the hash in place, so read it under the lock.
	var (
		hash   string
		claims *providers.Claims
	)
	s.mu.RLock()
	account, ok := s.accounts[email]
	if ok {
		hash = account.PasswordHash
		claims = account.claims()
	}
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, nil
	}
	return claims, nil
}

// RegisterUser creates an account. It returns nil claims when the email is taken and a
// validation error when the email or password is unacceptable.
func (s *Store) RegisterUser(_ context.Context, email, password string, data map[string]any) (*providers.Claims, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[Store.RegisterUser] %w", err)
	}

	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.nowTime(),
	}
	for k, v := range data {
		if k == "name" {
			account.Name, _ = v.(string)
			continue
		}
		if account.Data == nil {
			account.Data = make(map[string]any)
		}
		account.Data[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return nil, nil
	}
	s.accounts[email] = account
	return account.claims(), nil
}

// RequestPasswordReset issues a reset token for a known email. Unknown emails succeed
// silently.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	if _, ok := s.accounts[email]; !ok {
		s.mu.Unlock()
		s.logger.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	token := uuid.NewString()
	expiresAt := s.nowTime().Add(s.resetTTL)
	s.resets[token] = resetToken{email: email, expiresAt: expiresAt}
	s.mu.Unlock()

	if s.notifier == nil {
		s.logger.Warn().Msg("password reset token issued but no notifier is configured")
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, email, token, expiresAt); err != nil {
		return fmt.Errorf("[Store.RequestPasswordReset] notify: %w", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password. Tokens are single use; every outstanding
// token for the account is dropped on success.
func (s *Store) ConfirmPasswordReset(_ context.Context, token, newPassword string) error {
	now := s.nowTime()

	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.resets[token]
	if !ok || token == "" {
		return autherrors.ErrInvalidResetToken
	}
	if !now.Before(rt.expiresAt) {
		delete(s.resets, token)
		return autherrors.ErrInvalidResetToken
	}
	account, ok := s.accounts[rt.email]
	if !ok {
		delete(s.resets, token)
		return autherrors.ErrInvalidResetToken
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("[Store.ConfirmPasswordReset] %w", err)
	}

	account.PasswordHash = hash
	for t, r := range s.resets {
		if r.email == rt.email {
			delete(s.resets, t)
		}
	}
	return nil
}

// Account returns a copy of the account registered under email.
func (s *Store) Account(email string) (*Account, bool) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, false
	}
	c := *a
	return &c, true
}

func (a *Account) claims() *providers.Claims {
	c := &providers.Claims{
		Subject: a.ID,
		Email:   a.Email,
		Name:    a.Name,
	}
	if len(a.Data) > 0 {
		c.Extra = make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			c.Extra[k] = v
		}
	}
	return c
}
