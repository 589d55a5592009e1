package providers

import (
	"errors"
	"fmt"
	"sort"

	autherrors "github.com/jrsteele09/light-auth/internal/errors"
)

var ErrDuplicateProvider = errors.New("duplicate provider")

// Registry maps provider names to providers. It is filled at startup and read-only after.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: provider name is required", autherrors.ErrConfig)
	}
	if _, exists := r.providers[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", autherrors.ErrProviderNotFound, name)
	}
	return p, nil
}

// OAuth returns the named provider only if it is an OAuth provider.
func (r *Registry) OAuth(name string) (*OAuthProvider, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	op, ok := p.(*OAuthProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an oauth provider", autherrors.ErrProviderNotFound, name)
	}
	return op, nil
}

// Credentials returns the named credentials provider. An empty name selects the only
// credentials provider when exactly one is registered.
func (r *Registry) Credentials(name string) (*CredentialsProvider, error) {
	if name != "" {
		p, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		cp, ok := p.(*CredentialsProvider)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a credentials provider", autherrors.ErrProviderNotFound, name)
		}
		return cp, nil
	}

	var found *CredentialsProvider
	for _, p := range r.providers {
		cp, ok := p.(*CredentialsProvider)
		if !ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: several credentials providers, name one", autherrors.ErrProviderNotFound)
		}
		found = cp
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no credentials provider", autherrors.ErrProviderNotFound)
	}
	return found, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	return len(r.providers)
}
