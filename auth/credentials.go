package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/light-auth/adapter"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/sessions"
)

// CredentialsLogin verifies email and password and issues a session. Wrong email and
// wrong password produce the same ErrInvalidCredentials.
func (s *Service) CredentialsLogin(ctx context.Context, r adapter.Router, providerName, email, password string) (session *sessions.Session, err error) {
	p, err := s.providers.Credentials(providerName)
	if err != nil {
		return nil, err
	}
	defer func() { recordLogin(p.Name(), "credentials", err) }()

	claims, err := p.Credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("[CredentialsLogin] %w: %w", autherrors.ErrInternal, err)
	}
	if claims == nil || claims.Subject == "" {
		return nil, autherrors.ErrInvalidCredentials
	}
	return s.issueSession(ctx, r, p.Name(), claims, nil)
}

// Register creates an account. With autoLogin a session is issued as for a login and
// returned; otherwise the session is nil.
func (s *Service) Register(ctx context.Context, r adapter.Router, providerName, email, password string, data map[string]any, autoLogin bool) (*providers.Claims, *sessions.Session, error) {
	p, err := s.providers.Credentials(providerName)
	if err != nil {
		return nil, nil, err
	}

	claims, err := p.Credentials.RegisterUser(ctx, email, password, data)
	if err != nil {
		if errors.Is(err, autherrors.ErrValidation) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("[Register] %w: %w", autherrors.ErrInternal, err)
	}
	if claims == nil || claims.Subject == "" {
		return nil, nil, autherrors.ErrUserExists
	}
	if !autoLogin {
		return claims, nil, nil
	}

	session, err := s.issueSession(ctx, r, p.Name(), claims, nil)
	recordLogin(p.Name(), "credentials", err)
	if err != nil {
		return nil, nil, err
	}
	return claims, session, nil
}

// RequestPasswordReset never reports whether email exists. Provider failures are logged
// and swallowed for the same reason.
func (s *Service) RequestPasswordReset(ctx context.Context, providerName, email string) error {
	p, err := s.providers.Credentials(providerName)
	if err != nil {
		return err
	}
	if err := p.Credentials.RequestPasswordReset(ctx, email); err != nil {
		s.logger.Error().Err(err).Str("provider", p.Name()).Msg("password reset request failed")
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token.
func (s *Service) ConfirmPasswordReset(ctx context.Context, providerName, token, newPassword string) error {
	p, err := s.providers.Credentials(providerName)
	if err != nil {
		return err
	}
	if token == "" {
		return autherrors.ErrInvalidResetToken
	}
	if err := p.Credentials.ConfirmPasswordReset(ctx, token, newPassword); err != nil {
		if errors.Is(err, autherrors.ErrValidation) {
			return err
		}
		return fmt.Errorf("[ConfirmPasswordReset] %w: %w", autherrors.ErrInternal, err)
	}
	return nil
}
