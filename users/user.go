// Package users holds the persisted projection of a session and the adapters that
// store it.
package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the stored form of an authenticated identity. It carries the provider tokens
// needed later, for example to revoke the access token on logout.
type User struct {
	ID                   string         `json:"id"`
	ProviderUserID       string         `json:"providerUserId"`
	Email                string         `json:"email,omitempty"`
	Name                 string         `json:"name,omitempty"`
	ProviderName         string         `json:"providerName"`
	Picture              string         `json:"picture,omitempty"`
	AccessToken          string         `json:"accessToken,omitempty"`
	AccessTokenExpiresAt time.Time      `json:"accessTokenExpiresAt,omitzero"`
	RefreshToken         string         `json:"refreshToken,omitempty"`
	Claims               map[string]any `json:"claims,omitempty"`
}

// Adapter persists users. GetUser returns nil, nil when there is no such user.
type Adapter interface {
	GetUser(ctx context.Context, id string) (*User, error)
	SetUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jrsteele09/light-auth/users"))

// IDFor is the stable user id for a provider identity. It does not change between
// logins, so stored tokens can be carried over.
func IDFor(providerName, providerUserID string) string {
	return uuid.NewSHA1(idNamespace, []byte(providerName+"\x00"+providerUserID)).String()
}

// Merge returns next with any token fields it leaves empty filled in from prev.
// Providers do not re-issue refresh tokens on every login, so an empty value means
// "unchanged", never "cleared".
func Merge(prev, next *User) *User {
	if next == nil {
		return nil
	}
	merged := next.Clone()
	if prev == nil {
		return merged
	}
	if merged.AccessToken == "" {
		merged.AccessToken = prev.AccessToken
		if merged.AccessTokenExpiresAt.IsZero() {
			merged.AccessTokenExpiresAt = prev.AccessTokenExpiresAt
		}
	}
	if merged.RefreshToken == "" {
		merged.RefreshToken = prev.RefreshToken
	}
	return merged
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Claims != nil {
		c.Claims = make(map[string]any, len(u.Claims))
		for k, v := range u.Claims {
			c.Claims[k] = v
		}
	}
	return &c
}

// Public returns u without its provider tokens, for returning to clients.
func (u *User) Public() *User {
	c := u.Clone()
	if c == nil {
		return nil
	}
	c.AccessToken = ""
	c.RefreshToken = ""
	return c
}
