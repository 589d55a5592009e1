// Package csrf implements the stateless double-submit CSRF token and the request
// origin check.
package csrf

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/light-auth/cookies"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
)

const tokenBytes = 32 // 256 bits

// Token is an issued CSRF token and its secret-bound hash.
type Token struct {
	Token     string `json:"csrfToken"`
	TokenHash string `json:"csrfTokenHash"`
}

// CookieValue is the client-side storage form, "hash.token".
func (t Token) CookieValue() string {
	return t.TokenHash + "." + t.Token
}

// Issue creates a random token and binds it to secret.
func Issue(secret string) (Token, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return Token{}, fmt.Errorf("[csrf.Issue] random: %w", err)
	}
	token := hex.EncodeToString(b)
	return Token{Token: token, TokenHash: hash(token, secret)}, nil
}

// Validate recomputes the hash from the token half of the CSRF cookie. The server keeps
// no CSRF state. Comparison is constant time.
func Validate(cs []*http.Cookie, secret string) bool {
	value, ok := cookies.Find(cs, cookies.CSRFCookie)
	if !ok || value == "" {
		return false
	}
	tokenHash, token, ok := strings.Cut(value, ".")
	if !ok || tokenHash == "" || token == "" {
		return false
	}
	expected := hash(token, secret)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(expected)) == 1
}

// CheckOrigin rejects cross-origin requests whose Origin host is not one of the hosts
// the request was addressed to. Requests without an Origin header pass.
func CheckOrigin(h http.Header) error {
	origin := h.Get("Origin")
	if origin == "" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed origin %q", autherrors.ErrCsrfRejected, origin)
	}

	hosts := splitHosts(h.Get("X-Forwarded-Host"))
	hosts = append(hosts, splitHosts(h.Get("Host"))...)
	if len(hosts) == 0 {
		return fmt.Errorf("%w: origin present without host", autherrors.ErrCsrfRejected)
	}

	for _, host := range hosts {
		if strings.EqualFold(host, u.Host) {
			return nil
		}
	}
	return fmt.Errorf("%w: origin %q does not match host", autherrors.ErrCsrfRejected, u.Host)
}

func splitHosts(header string) []string {
	var hosts []string
	for _, h := range strings.Split(header, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func hash(token, secret string) string {
	sum := sha256.Sum256([]byte(token + secret))
	return hex.EncodeToString(sum[:])
}
