package csrf_test

import (
	"net/http"
	"testing"

	"github.com/jrsteele09/light-auth/cookies"
	"github.com/jrsteele09/light-auth/csrf"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

const testSecret = "csrf-test-secret"

func csrfCookie(value string) []*http.Cookie {
	return []*http.Cookie{{Name: cookies.CSRFCookie, Value: value}}
}

func TestIssueValidate(t *testing.T) {
	token, err := csrf.Issue(testSecret)
	require.NoError(t, err)
	require.Len(t, token.Token, 64)

	t.Run("issued token validates", func(t *testing.T) {
		require.True(t, csrf.Validate(csrfCookie(token.CookieValue()), testSecret))
	})

	t.Run("tampered token", func(t *testing.T) {
		tampered := token.TokenHash + "." + token.Token[:63] + "0"
		if tampered == token.CookieValue() {
			tampered = token.TokenHash + "." + token.Token[:63] + "1"
		}
		require.False(t, csrf.Validate(csrfCookie(tampered), testSecret))
	})

	t.Run("hash without the secret cannot be forged", func(t *testing.T) {
		other, err := csrf.Issue("another-secret")
		require.NoError(t, err)
		require.False(t, csrf.Validate(csrfCookie(other.CookieValue()), testSecret))
	})

	t.Run("no cookies", func(t *testing.T) {
		require.False(t, csrf.Validate(nil, testSecret))
		require.False(t, csrf.Validate([]*http.Cookie{}, testSecret))
	})

	t.Run("malformed values", func(t *testing.T) {
		for _, v := range []string{"", ".", "hash-only", "." + token.Token, token.TokenHash + "."} {
			require.False(t, csrf.Validate(csrfCookie(v), testSecret), v)
		}
	})

	t.Run("issued tokens are unique", func(t *testing.T) {
		second, err := csrf.Issue(testSecret)
		require.NoError(t, err)
		require.NotEqual(t, token.Token, second.Token)
	})
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantErr bool
	}{
		{"no origin", map[string]string{"Host": "app.example.com"}, false},
		{"same origin", map[string]string{"Origin": "https://app.example.com", "Host": "app.example.com"}, false},
		{"origin with port", map[string]string{"Origin": "http://localhost:3000", "Host": "localhost:3000"}, false},
		{"forwarded host list", map[string]string{"Origin": "https://app.example.com", "Host": "internal:8080", "X-Forwarded-Host": "cdn.example.com, app.example.com"}, false},
		{"cross origin", map[string]string{"Origin": "https://evil.example", "Host": "app.example.com"}, true},
		{"origin without host", map[string]string{"Origin": "https://app.example.com"}, true},
		{"opaque origin", map[string]string{"Origin": "null", "Host": "app.example.com"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			err := csrf.CheckOrigin(h)
			if tt.wantErr {
				require.ErrorIs(t, err, autherrors.ErrCsrfRejected)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGuard(t *testing.T) {
	g := csrf.NewGuard(testSecret, cookies.Options{Secure: true})

	token, cookie, err := g.Issue()
	require.NoError(t, err)
	require.Equal(t, cookies.CSRFCookie, cookie.Name)
	require.Equal(t, token.CookieValue(), cookie.Value)
	require.True(t, cookie.HttpOnly)

	require.NoError(t, g.Validate([]*http.Cookie{cookie}))
	require.ErrorIs(t, g.Validate(nil), autherrors.ErrCsrfRejected)
	require.Equal(t, -1, g.Clear().MaxAge)
}
