package auth

import (
	"context"

	"github.com/jrsteele09/light-auth/sessions"
	"github.com/jrsteele09/light-auth/users"
)

// Hooks let callers adjust or veto records before they are written and observe them
// after. A Saving hook that returns nil, nil keeps the record it was given; an error
// aborts the operation before anything is persisted.
type Hooks struct {
	OnSessionSaving func(ctx context.Context, session *sessions.Session) (*sessions.Session, error)
	OnSessionSaved  func(ctx context.Context, session *sessions.Session)
	OnUserSaving    func(ctx context.Context, user *users.User) (*users.User, error)
	OnUserSaved     func(ctx context.Context, user *users.User)
}

func (h Hooks) sessionSaving(ctx context.Context, session *sessions.Session) (*sessions.Session, error) {
	if h.OnSessionSaving == nil {
		return session, nil
	}
	replaced, err := h.OnSessionSaving(ctx, session.Clone())
	if err != nil {
		return nil, err
	}
	if replaced == nil {
		return session, nil
	}
	return replaced, nil
}

func (h Hooks) sessionSaved(ctx context.Context, session *sessions.Session) {
	if h.OnSessionSaved != nil {
		h.OnSessionSaved(ctx, session.Clone())
	}
}

func (h Hooks) userSaving(ctx context.Context, user *users.User) (*users.User, error) {
	if h.OnUserSaving == nil {
		return user, nil
	}
	replaced, err := h.OnUserSaving(ctx, user.Clone())
	if err != nil {
		return nil, err
	}
	if replaced == nil {
		return user, nil
	}
	return replaced, nil
}

func (h Hooks) userSaved(ctx context.Context, user *users.User) {
	if h.OnUserSaved != nil {
		h.OnUserSaved(ctx, user.Clone())
	}
}
