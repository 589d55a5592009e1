package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/light-auth/adapter"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/sessions"
	"github.com/jrsteele09/light-auth/users"
)

// issueSession builds the session and user for a successful login and persists them,
// user first, so a failed user write leaves no session behind.
func (s *Service) issueSession(ctx context.Context, r adapter.Router, providerName string, claims *providers.Claims, tokens *providers.Tokens) (*sessions.Session, error) {
	now := s.nowTime()

	session := &sessions.Session{
		ID:             s.sessions.GenerateSessionID(),
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		Name:           claims.Name,
		ProviderName:   providerName,
		ExpiresAt:      now.Add(s.sessionTTL),
		Claims:         copyClaims(claims.Extra),
	}
	session, err := s.hooks.sessionSaving(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("[issueSession] session vetoed: %w", err)
	}
	if !session.Complete() {
		return nil, fmt.Errorf("[issueSession] %w: session hook returned an incomplete session", autherrors.ErrInternal)
	}

	if s.users != nil {
		user := &users.User{
			ID:             users.IDFor(session.ProviderName, session.ProviderUserID),
			ProviderUserID: session.ProviderUserID,
			Email:          session.Email,
			Name:           session.Name,
			ProviderName:   session.ProviderName,
			Picture:        claims.Picture,
			Claims:         copyClaims(session.Claims),
		}
		if tokens != nil {
			expiresIn := tokens.ExpiresIn
			if expiresIn <= 0 {
				expiresIn = defaultAccessTokenExpiry
			}
			user.AccessToken = tokens.AccessToken
			user.AccessTokenExpiresAt = now.Add(expiresIn)
			user.RefreshToken = tokens.RefreshToken
		}
		if err := s.saveUser(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.SetSession(ctx, r, session); err != nil {
		return nil, fmt.Errorf("[issueSession] %w", err)
	}
	s.hooks.sessionSaved(ctx, session)
	s.logger.Info().Str("provider", providerName).Str("session_id", session.ID).Msg("session issued")
	return session, nil
}

// saveUser runs the user hooks and writes user merged over the stored record.
func (s *Service) saveUser(ctx context.Context, user *users.User) error {
	user, err := s.hooks.userSaving(ctx, user)
	if err != nil {
		return fmt.Errorf("[saveUser] user vetoed: %w", err)
	}
	prev, err := s.users.GetUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("[saveUser] read: %w", err)
	}
	merged := users.Merge(prev, user)
	if err := s.users.SetUser(ctx, merged); err != nil {
		return fmt.Errorf("[saveUser] write: %w", err)
	}
	s.hooks.userSaved(ctx, merged)
	return nil
}

// GetSession returns the current session or nil. An expired session is deleted; one in
// the second half of its lifetime is renewed to a full TTL.
func (s *Service) GetSession(ctx context.Context, r adapter.Router) (*sessions.Session, error) {
	session, err := s.sessions.GetSession(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("[GetSession] %w", err)
	}
	if session == nil {
		return nil, nil
	}

	now := s.nowTime()
	if session.Expired(now) {
		sessionsExpiredTotal.Inc()
		if err := s.sessions.DeleteSession(ctx, r); err != nil {
			return nil, fmt.Errorf("[GetSession] delete expired: %w", err)
		}
		return nil, nil
	}

	if s.needsRenewal(session, now) {
		renewed := session.Clone()
		renewed.ExpiresAt = now.Add(s.sessionTTL)
		if err := s.sessions.SetSession(ctx, r, renewed); err != nil {
			return nil, fmt.Errorf("[GetSession] renew: %w", err)
		}
		sessionsRenewedTotal.Inc()
		s.hooks.sessionSaved(ctx, renewed)
		return renewed, nil
	}
	return session, nil
}

func (s *Service) needsRenewal(session *sessions.Session, now time.Time) bool {
	return now.After(session.ExpiresAt.Add(-s.sessionTTL / 2))
}

// SetSession overwrites the session cookie. Used by trusted server-side callers.
func (s *Service) SetSession(ctx context.Context, r adapter.Router, session *sessions.Session) error {
	if !session.Complete() {
		return fmt.Errorf("%w: session requires id, providerUserId and expiresAt", autherrors.ErrValidation)
	}
	session, err := s.hooks.sessionSaving(ctx, session)
	if err != nil {
		return fmt.Errorf("[SetSession] session vetoed: %w", err)
	}
	if !session.Complete() {
		return fmt.Errorf("%w: session hook returned an incomplete session", autherrors.ErrValidation)
	}
	if err := s.sessions.SetSession(ctx, r, session); err != nil {
		return fmt.Errorf("[SetSession] %w", err)
	}
	s.hooks.sessionSaved(ctx, session)
	return nil
}

func (s *Service) DeleteSession(ctx context.Context, r adapter.Router) error {
	if err := s.sessions.DeleteSession(ctx, r); err != nil {
		return fmt.Errorf("[DeleteSession] %w", err)
	}
	return nil
}

// GetUser returns the stored user for the current session. id may be empty or must be
// the session's own user id. Returns nil when no user adapter is configured or nothing
// is stored.
func (s *Service) GetUser(ctx context.Context, r adapter.Router, id string) (*users.User, error) {
	session, err := s.GetSession(ctx, r)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, autherrors.ErrUnauthorized
	}
	ownID := users.IDFor(session.ProviderName, session.ProviderUserID)
	if id != "" && id != ownID {
		return nil, autherrors.ErrForbidden
	}
	if s.users == nil {
		return nil, nil
	}
	user, err := s.users.GetUser(ctx, ownID)
	if err != nil {
		return nil, fmt.Errorf("[GetUser] %w", err)
	}
	return user, nil
}

// SetUser writes user for the current session. Empty token fields keep stored values.
func (s *Service) SetUser(ctx context.Context, r adapter.Router, user *users.User) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", autherrors.ErrValidation)
	}
	session, err := s.GetSession(ctx, r)
	if err != nil {
		return err
	}
	if session == nil {
		return autherrors.ErrUnauthorized
	}
	ownID := users.IDFor(session.ProviderName, session.ProviderUserID)
	if user.ID != "" && user.ID != ownID {
		return autherrors.ErrForbidden
	}
	if s.users == nil {
		return fmt.Errorf("%w: no user adapter configured", autherrors.ErrNotFound)
	}

	user = user.Clone()
	user.ID = ownID
	user.ProviderUserID = session.ProviderUserID
	user.ProviderName = session.ProviderName
	return s.saveUser(ctx, user)
}

func copyClaims(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
