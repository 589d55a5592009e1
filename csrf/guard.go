package csrf

import (
	"net/http"

	"github.com/jrsteele09/light-auth/cookies"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
)

// Guard binds the CSRF operations to one secret and cookie policy.
type Guard struct {
	secret  string
	options cookies.Options
}

func NewGuard(secret string, options cookies.Options) *Guard {
	return &Guard{secret: secret, options: options}
}

// Issue creates a token and the browser-session cookie that carries it.
func (g *Guard) Issue() (Token, *http.Cookie, error) {
	token, err := Issue(g.secret)
	if err != nil {
		return Token{}, nil, err
	}
	return token, g.options.New(cookies.CSRFCookie, token.CookieValue(), 0), nil
}

// Validate returns ErrCsrfRejected unless the CSRF cookie carries a valid pair.
func (g *Guard) Validate(cs []*http.Cookie) error {
	if !Validate(cs, g.secret) {
		return autherrors.ErrCsrfRejected
	}
	return nil
}

func (g *Guard) CheckOrigin(h http.Header) error {
	return CheckOrigin(h)
}

// Clear expires the CSRF cookie.
func (g *Guard) Clear() *http.Cookie {
	return g.options.Expired(cookies.CSRFCookie)
}
