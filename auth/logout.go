package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/users"
)

// Logout deletes the stored user and the session, optionally revoking the provider
// access token first, then redirects to callbackURL. Revocation and user store failures
// are logged and do not stop the session cookies being expired.
func (s *Service) Logout(ctx context.Context, r adapter.Router, revoke bool, callbackURL string) error {
	session, err := s.sessions.GetSession(ctx, r)
	if err != nil {
		return fmt.Errorf("[Logout] %w", err)
	}

	if session != nil && s.users != nil {
		s.forgetUser(ctx, session.ProviderName, users.IDFor(session.ProviderName, session.ProviderUserID), revoke)
	}

	if err := s.sessions.DeleteSession(ctx, r); err != nil {
		return fmt.Errorf("[Logout] %w", err)
	}
	r.SetCookies(s.csrf.Clear())
	r.RedirectTo(safeCallbackURL(callbackURL, requestHost(r)))
	return nil
}

func (s *Service) forgetUser(ctx context.Context, providerName, userID string, revoke bool) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("logout could not read user")
	} else if revoke && user != nil && user.AccessToken != "" {
		s.revoke(ctx, providerName, user.AccessToken)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("logout could not delete user")
	}
}

func (s *Service) revoke(ctx context.Context, providerName, token string) {
	p, err := s.providers.OAuth(providerName)
	if err != nil {
		return
	}
	revoker, ok := p.Client.(providers.TokenRevoker)
	if !ok {
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := revoker.RevokeToken(ctx, token); err != nil {
		if errors.Is(err, providers.ErrRevocationUnsupported) {
			s.logger.Debug().Str("provider", providerName).Msg("provider does not support revocation")
			return
		}
		s.logger.Warn().Err(err).Str("provider", providerName).Msg("token revocation failed")
	}
}
