package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

const (
	TypeOIDC   = "oidc"
	TypeOAuth2 = "oauth2"
)

// ProviderConfig describes one OAuth provider in the providers file.
type ProviderConfig struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"` // oidc (default) or oauth2
	Issuer        string            `yaml:"issuer"`
	ClientID      string            `yaml:"clientId"`
	ClientSecret  string            `yaml:"clientSecret"`
	RedirectURL   string            `yaml:"redirectUrl"`
	AuthURL       string            `yaml:"authUrl"`
	TokenURL      string            `yaml:"tokenUrl"`
	RevocationURL string            `yaml:"revocationUrl"`
	Scopes        []string          `yaml:"scopes"`
	ExtraParams   map[string]string `yaml:"extraParams"`
}

type File struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadFile reads a YAML providers file. ${VAR} references are expanded from the
// environment before parsing so secrets can stay out of the file.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[LoadFile] %w: %w", autherrors.ErrConfig, err)
	}
	return ParseFile([]byte(os.ExpandEnv(string(raw))))
}

func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("[ParseFile] %w: %w", autherrors.ErrConfig, err)
	}
	for i, p := range f.Providers {
		if p.Name == "" || p.ClientID == "" {
			return nil, fmt.Errorf("[ParseFile] %w: provider %d needs name and clientId", autherrors.ErrConfig, i)
		}
		switch strings.ToLower(p.Type) {
		case "", TypeOIDC:
			if p.Issuer == "" {
				return nil, fmt.Errorf("[ParseFile] %w: oidc provider %q needs issuer", autherrors.ErrConfig, p.Name)
			}
		case TypeOAuth2:
			if p.AuthURL == "" || p.TokenURL == "" {
				return nil, fmt.Errorf("[ParseFile] %w: oauth2 provider %q needs authUrl and tokenUrl", autherrors.ErrConfig, p.Name)
			}
		default:
			return nil, fmt.Errorf("[ParseFile] %w: provider %q has unknown type %q", autherrors.ErrConfig, p.Name, p.Type)
		}
	}
	return &f, nil
}

// Build creates the OAuth providers. callbackBase is used to derive a redirect URL of
// callbackBase/<name> when the file does not set one.
func (f *File) Build(ctx context.Context, discovery *Discovery, callbackBase string) ([]Provider, error) {
	out := make([]Provider, 0, len(f.Providers))
	for _, p := range f.Providers {
		redirectURL := p.RedirectURL
		if redirectURL == "" {
			redirectURL = strings.TrimSuffix(callbackBase, "/") + "/" + p.Name
		}
		cfg := oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  redirectURL,
		}

		var client AuthorizationClient
		if strings.ToLower(p.Type) == TypeOAuth2 {
			cfg.Endpoint = oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
			var opts []ClientOption
			if p.RevocationURL != "" {
				opts = append(opts, WithRevocationURL(p.RevocationURL))
			}
			client = NewOAuth2Client(cfg, opts...)
		} else {
			oidcClient, err := NewOIDCClient(ctx, discovery, p.Issuer, cfg)
			if err != nil {
				return nil, fmt.Errorf("[File.Build] %w: %w", autherrors.ErrConfig, err)
			}
			client = oidcClient
		}

		out = append(out, &OAuthProvider{
			ProviderName: p.Name,
			Client:       client,
			Scopes:       p.Scopes,
			ExtraParams:  p.ExtraParams,
		})
	}
	return out, nil
}
