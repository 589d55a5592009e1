// Package providers holds the identity provider variants the auth core can drive and the
// OAuth2/OIDC clients behind them.
package providers

import (
	"context"

	"github.com/jrsteele09/light-auth/internal/utils"
)

// Provider is either an *OAuthProvider or a *CredentialsProvider.
type Provider interface {
	Name() string
}

// OAuthProvider redirects the user to an external authorization server.
type OAuthProvider struct {
	ProviderName string
	Client       AuthorizationClient
	Scopes       []string
	ExtraParams  map[string]string // added to the authorization URL
}

func (p *OAuthProvider) Name() string {
	return p.ProviderName
}

// Credentials verifies and manages email/password accounts.
type Credentials interface {
	// VerifyCredentials returns nil claims when the email or password is wrong.
	VerifyCredentials(ctx context.Context, email, password string) (*Claims, error)
	HashPassword(password string) (string, error)
	// RegisterUser returns nil claims when the account may already exist.
	RegisterUser(ctx context.Context, email, password string, data map[string]any) (*Claims, error)
	// RequestPasswordReset must not reveal whether email is registered.
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// CredentialsProvider authenticates with email and password.
type CredentialsProvider struct {
	ProviderName string
	Credentials  Credentials
}

func (p *CredentialsProvider) Name() string {
	return p.ProviderName
}

// Claims is the identity asserted by a provider.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Picture string
	Extra   map[string]any // every other claim the provider returned
}

var standardClaims = map[string]struct{}{
	"sub": {}, "email": {}, "name": {}, "picture": {},
	"iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "nonce": {}, "at_hash": {}, "azp": {}, "auth_time": {}, "jti": {},
}

// ClaimsFromMap picks the identity fields out of a decoded ID token. Registered JWT
// claims are dropped from Extra.
func ClaimsFromMap(m map[string]any) *Claims {
	c := &Claims{
		Subject: utils.StringValue(m, "sub"),
		Email:   utils.StringValue(m, "email"),
		Name:    utils.StringValue(m, "name"),
		Picture: utils.StringValue(m, "picture"),
	}
	for k, v := range m {
		if _, ok := standardClaims[k]; ok {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c
}
