package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/auth"
	"github.com/jrsteele09/light-auth/cookies"
	"github.com/jrsteele09/light-auth/credentials"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/providers"
	"github.com/jrsteele09/light-auth/secret"
	"github.com/jrsteele09/light-auth/sessions"
	"github.com/jrsteele09/light-auth/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testProvider  = "test"
	testPassword  = "Passw0rdOK"
	testHost      = "app.example.com"
	testSessionID = "2f0a1b5c-63f6-4d8e-9a2b-4c1d2e3f4a5b"
)

// fakeClient stands in for a provider's authorization server.
type fakeClient struct {
	mu           sync.Mutex
	lastRequest  providers.AuthorizationRequest
	lastCode     string
	lastVerifier string
	tokens       providers.Tokens
	err          error
	block        bool
	revoked      []string
}

func (f *fakeClient) CreateAuthorizationURL(req providers.AuthorizationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(req.State), nil
}

func (f *fakeClient) ValidateAuthorizationCode(ctx context.Context, code, codeVerifier string) (*providers.Tokens, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCode, f.lastVerifier = code, codeVerifier
	if f.err != nil {
		return nil, f.err
	}
	tokens := f.tokens
	return &tokens, nil
}

func (f *fakeClient) RevokeToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

func idToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unused"))
	require.NoError(t, err)
	return raw
}

// browser carries cookies between requests the way a user agent would.
type browser struct {
	jar map[string]string
}

func newBrowser() *browser {
	return &browser{jar: make(map[string]string)}
}

func (b *browser) request(method, path string) (*httptest.ResponseRecorder, *adapter.NetHTTP) {
	req := httptest.NewRequest(method, "https://"+testHost+path, nil)
	for name, value := range b.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	return rec, adapter.NewNetHTTP(rec, req)
}

func (b *browser) keep(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c.Value
	}
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

type testFixture struct {
	now         time.Time
	client      *fakeClient
	credentials *credentials.Store
	users       *users.MemoryAdapter
	service     *auth.Service
	ctx         context.Context
}

func setupTestFixture(t *testing.T, opts ...auth.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		client: &fakeClient{tokens: providers.Tokens{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		}},
		users: users.NewMemoryAdapter(),
		ctx:   context.Background(),
	}
	f.client.tokens.IDToken = idToken(t, jwt.MapClaims{
		"sub": "user-42", "email": "jane@example.com", "name": "Jane", "picture": "https://img.example.com/j.png", "locale": "en",
	})

	store, err := credentials.NewStore(credentials.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	f.credentials = store

	registry, err := providers.NewRegistry(
		&providers.OAuthProvider{ProviderName: testProvider, Client: f.client, Scopes: []string{"email", "groups"}},
		&providers.CredentialsProvider{ProviderName: "credentials", Credentials: store},
	)
	require.NoError(t, err)

	key, err := secret.Derive("test-secret")
	require.NoError(t, err)

	opts = append([]auth.Option{
		auth.WithNowTime(func() time.Time { return f.now }),
		auth.WithUserAdapter(f.users),
	}, opts...)
	f.service, err = auth.New(auth.Settings{Providers: registry, Secret: key}, opts...)
	require.NoError(t, err)
	return f
}

// login runs BeginLogin and a matching callback, returning the browser holding the session.
func (f *testFixture) login(t *testing.T) *browser {
	t.Helper()
	b := newBrowser()
	rec, r := b.request(http.MethodGet, "/api/auth/login/test?callbackUrl=/dashboard")
	require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "/dashboard"))
	b.keep(rec)

	state := f.client.lastRequest.State
	rec, r = b.request(http.MethodGet, "/api/auth/callback/test?code=code-1&state="+url.QueryEscape(state))
	require.NoError(t, f.service.HandleCallback(f.ctx, r, testProvider))
	b.keep(rec)
	return b
}

func TestNewRequiresConfiguration(t *testing.T) {
	key, err := secret.Derive("s")
	require.NoError(t, err)
	registry, err := providers.NewRegistry(&providers.OAuthProvider{ProviderName: "x", Client: &fakeClient{}})
	require.NoError(t, err)
	empty, err := providers.NewRegistry()
	require.NoError(t, err)

	_, err = auth.New(auth.Settings{Providers: registry})
	require.ErrorIs(t, err, autherrors.ErrConfig)
	_, err = auth.New(auth.Settings{Secret: key, Providers: empty})
	require.ErrorIs(t, err, autherrors.ErrConfig)

	svc, err := auth.New(auth.Settings{Secret: key, Providers: registry, SessionTTL: -1})
	require.NoError(t, err)
	require.Equal(t, auth.DefaultSessionTTL, svc.SessionTTL())
	require.Equal(t, auth.DefaultBasePath, svc.BasePath())
}

func TestBeginLogin(t *testing.T) {
	f := setupTestFixture(t)
	b := newBrowser()
	b.jar[cookies.CSRFCookie] = "stale"

	rec, r := b.request(http.MethodGet, "/api/auth/login/test")
	require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "/dashboard"))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://idp.example.com/authorize")

	req := f.client.lastRequest
	require.Equal(t, []string{"openid", "profile", "email", "groups"}, req.Scopes)
	require.NotEmpty(t, req.State)
	require.GreaterOrEqual(t, len(req.CodeVerifier), 43)

	set := responseCookies(rec)
	require.Equal(t, req.State, set[cookies.StateCookie(testProvider)].Value)
	require.Equal(t, req.CodeVerifier, set[cookies.CodeVerifierCookie(testProvider)].Value)
	require.Equal(t, "/dashboard", set[cookies.CallbackURLCookie(testProvider)].Value)
	require.Equal(t, 600, set[cookies.StateCookie(testProvider)].MaxAge)
	require.True(t, set[cookies.StateCookie(testProvider)].HttpOnly)
	require.Less(t, set[cookies.CSRFCookie].MaxAge, 0, "stale csrf cookie is deleted")

	t.Run("unknown provider", func(t *testing.T) {
		_, r := newBrowser().request(http.MethodGet, "/api/auth/login/nope")
		require.ErrorIs(t, f.service.BeginLogin(f.ctx, r, "nope", ""), autherrors.ErrProviderNotFound)
	})

	t.Run("foreign callback url is replaced", func(t *testing.T) {
		for _, target := range []string{"https://evil.example.net/steal", "//evil.example.net", "javascript:alert(1)"} {
			rec, r := newBrowser().request(http.MethodGet, "/api/auth/login/test")
			require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, target))
			require.Equal(t, "/", responseCookies(rec)[cookies.CallbackURLCookie(testProvider)].Value, target)
		}
		rec, r := newBrowser().request(http.MethodGet, "/api/auth/login/test")
		require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "https://"+testHost+"/home"))
		require.Equal(t, "https://"+testHost+"/home", responseCookies(rec)[cookies.CallbackURLCookie(testProvider)].Value)
	})
}

func TestHandleCallbackSuccess(t *testing.T) {
	f := setupTestFixture(t)
	b := newBrowser()

	rec, r := b.request(http.MethodGet, "/api/auth/login/test")
	require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "/dashboard"))
	b.keep(rec)
	state := f.client.lastRequest.State
	verifier := f.client.lastRequest.CodeVerifier

	rec, r = b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state="+url.QueryEscape(state))
	require.NoError(t, f.service.HandleCallback(f.ctx, r, testProvider))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.Equal(t, "abc", f.client.lastCode)
	require.Equal(t, verifier, f.client.lastVerifier)

	set := responseCookies(rec)
	for _, name := range []string{cookies.StateCookie(testProvider), cookies.CodeVerifierCookie(testProvider), cookies.CallbackURLCookie(testProvider)} {
		require.Less(t, set[name].MaxAge, 0, name)
	}
	require.Contains(t, set, cookies.SessionCookie)
	b.keep(rec)

	_, r = b.request(http.MethodPost, "/api/auth/session")
	session, err := f.service.GetSession(f.ctx, r)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, "user-42", session.ProviderUserID)
	require.Equal(t, "jane@example.com", session.Email)
	require.Equal(t, testProvider, session.ProviderName)
	require.Equal(t, f.now.Add(auth.DefaultSessionTTL), session.ExpiresAt)
	require.Equal(t, "en", session.Claims["locale"])

	user, err := f.users.GetUser(f.ctx, users.IDFor(testProvider, "user-42"))
	require.NoError(t, err)
	require.Equal(t, "access-1", user.AccessToken)
	require.Equal(t, "refresh-1", user.RefreshToken)
	require.Equal(t, "https://img.example.com/j.png", user.Picture)
	require.Equal(t, f.now.Add(time.Hour), user.AccessTokenExpiresAt, "expires_in defaults to one hour")
}

func TestHandleCallbackFailures(t *testing.T) {
	begin := func(t *testing.T, f *testFixture) (*browser, string) {
		b := newBrowser()
		rec, r := b.request(http.MethodGet, "/api/auth/login/test")
		require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "/"))
		b.keep(rec)
		return b, f.client.lastRequest.State
	}

	t.Run("state mismatch issues no session", func(t *testing.T) {
		f := setupTestFixture(t)
		b, _ := begin(t, f)
		rec, r := b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state=forged")
		err := f.service.HandleCallback(f.ctx, r, testProvider)
		require.ErrorIs(t, err, autherrors.ErrInvalidState)

		set := responseCookies(rec)
		require.NotContains(t, set, cookies.SessionCookie)
		require.Less(t, set[cookies.StateCookie(testProvider)].MaxAge, 0, "pending cookies deleted on failure")
		require.Empty(t, f.client.lastCode, "no exchange attempted")
	})

	t.Run("missing pending cookies", func(t *testing.T) {
		f := setupTestFixture(t)
		_, r := newBrowser().request(http.MethodGet, "/api/auth/callback/test?code=abc&state=xyz")
		require.ErrorIs(t, f.service.HandleCallback(f.ctx, r, testProvider), autherrors.ErrInvalidState)
	})

	t.Run("missing code", func(t *testing.T) {
		f := setupTestFixture(t)
		b, state := begin(t, f)
		_, r := b.request(http.MethodGet, "/api/auth/callback/test?state="+url.QueryEscape(state))
		require.ErrorIs(t, f.service.HandleCallback(f.ctx, r, testProvider), autherrors.ErrMissingCodeOrState)
	})

	t.Run("provider error parameter", func(t *testing.T) {
		f := setupTestFixture(t)
		b, _ := begin(t, f)
		_, r := b.request(http.MethodGet, "/api/auth/callback/test?error=access_denied")
		require.ErrorIs(t, f.service.HandleCallback(f.ctx, r, testProvider), autherrors.ErrAuthorizationDenied)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client.err = errors.New("invalid_grant")
		b, state := begin(t, f)
		rec, r := b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state="+url.QueryEscape(state))
		require.ErrorIs(t, f.service.HandleCallback(f.ctx, r, testProvider), autherrors.ErrTokenExchangeFailed)
		require.NotContains(t, responseCookies(rec), cookies.SessionCookie)
	})

	t.Run("exchange timeout", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithExchangeTimeout(20*time.Millisecond))
		f.client.block = true
		b, state := begin(t, f)
		_, r := b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state="+url.QueryEscape(state))
		err := f.service.HandleCallback(f.ctx, r, testProvider)
		require.ErrorIs(t, err, autherrors.ErrTokenExchangeFailed)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing id token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client.tokens.IDToken = ""
		b, state := begin(t, f)
		_, r := b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state="+url.QueryEscape(state))
		require.ErrorIs(t, f.service.HandleCallback(f.ctx, r, testProvider), autherrors.ErrMissingIDToken)
	})
}

func TestTokensPreservedAcrossLogins(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.client.tokens.AccessToken = "access-2"
	f.client.tokens.RefreshToken = ""
	f.client.tokens.ExpiresIn = 30 * time.Minute
	f.login(t)

	user, err := f.users.GetUser(f.ctx, users.IDFor(testProvider, "user-42"))
	require.NoError(t, err)
	require.Equal(t, "access-2", user.AccessToken)
	require.Equal(t, "refresh-1", user.RefreshToken)
	require.Equal(t, f.now.Add(30*time.Minute), user.AccessTokenExpiresAt)
}

func TestSessionRenewal(t *testing.T) {
	ttl := auth.DefaultSessionTTL

	withSession := func(t *testing.T, f *testFixture, expiresAt time.Time) *browser {
		b := newBrowser()
		rec, r := b.request(http.MethodPost, "/api/auth/set_session")
		require.NoError(t, f.service.SetSession(f.ctx, r, &sessions.Session{
			ID: testSessionID, ProviderUserID: "user-42", ProviderName: testProvider, ExpiresAt: expiresAt,
		}))
		b.keep(rec)
		return b
	}

	t.Run("more than half the ttl left is not renewed", func(t *testing.T) {
		f := setupTestFixture(t)
		expiresAt := f.now.Add(ttl/2 + time.Second)
		b := withSession(t, f, expiresAt)

		rec, r := b.request(http.MethodPost, "/api/auth/session")
		session, err := f.service.GetSession(f.ctx, r)
		require.NoError(t, err)
		require.Equal(t, expiresAt, session.ExpiresAt)
		require.Empty(t, rec.Result().Cookies())
	})

	// Renewal is due once now > expiresAt - ttl/2, so a session with just under half its
	// ttl left renews and one with just over half does not. Keep this direction.
	t.Run("less than half the ttl left is renewed", func(t *testing.T) {
		var saved *sessions.Session
		f := setupTestFixture(t, auth.WithHooks(auth.Hooks{
			OnSessionSaved: func(_ context.Context, s *sessions.Session) { saved = s },
		}))
		b := withSession(t, f, f.now.Add(ttl/2-time.Second))

		rec, r := b.request(http.MethodPost, "/api/auth/session")
		session, err := f.service.GetSession(f.ctx, r)
		require.NoError(t, err)
		require.Equal(t, f.now.Add(ttl), session.ExpiresAt)
		require.Equal(t, testSessionID, session.ID)
		require.Contains(t, responseCookies(rec), cookies.SessionCookie)
		require.Equal(t, f.now.Add(ttl), saved.ExpiresAt)
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		f := setupTestFixture(t)
		b := withSession(t, f, f.now.Add(time.Minute))
		f.now = f.now.Add(time.Minute)

		rec, r := b.request(http.MethodPost, "/api/auth/session")
		session, err := f.service.GetSession(f.ctx, r)
		require.NoError(t, err)
		require.Nil(t, session)
		require.Less(t, responseCookies(rec)[cookies.SessionCookie].MaxAge, 0)
	})

	t.Run("tampered cookie is no session", func(t *testing.T) {
		f := setupTestFixture(t)
		b := newBrowser()
		b.jar[cookies.SessionCookie] = "garbage"
		_, r := b.request(http.MethodPost, "/api/auth/session")
		session, err := f.service.GetSession(f.ctx, r)
		require.NoError(t, err)
		require.Nil(t, session)
	})

	t.Run("incomplete session is rejected on write", func(t *testing.T) {
		f := setupTestFixture(t)
		_, r := newBrowser().request(http.MethodPost, "/api/auth/set_session")
		err := f.service.SetSession(f.ctx, r, &sessions.Session{ID: "x"})
		require.ErrorIs(t, err, autherrors.ErrValidation)
	})
}

func TestHooks(t *testing.T) {
	t.Run("veto aborts before anything is written", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithHooks(auth.Hooks{
			OnUserSaving: func(context.Context, *users.User) (*users.User, error) {
				return nil, errors.New("blocked domain")
			},
		}))
		b := newBrowser()
		rec, r := b.request(http.MethodGet, "/api/auth/login/test")
		require.NoError(t, f.service.BeginLogin(f.ctx, r, testProvider, "/"))
		b.keep(rec)

		rec, r = b.request(http.MethodGet, "/api/auth/callback/test?code=abc&state="+url.QueryEscape(f.client.lastRequest.State))
		require.Error(t, f.service.HandleCallback(f.ctx, r, testProvider))
		require.NotContains(t, responseCookies(rec), cookies.SessionCookie)

		user, err := f.users.GetUser(f.ctx, users.IDFor(testProvider, "user-42"))
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("replacement and nil keep-default", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithHooks(auth.Hooks{
			OnSessionSaving: func(_ context.Context, s *sessions.Session) (*sessions.Session, error) {
				s.Claims = map[string]any{"role": "admin"}
				return s, nil
			},
			OnUserSaving: func(context.Context, *users.User) (*users.User, error) {
				return nil, nil
			},
		}))
		b := f.login(t)
		_, r := b.request(http.MethodPost, "/api/auth/session")
		session, err := f.service.GetSession(f.ctx, r)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"role": "admin"}, session.Claims)

		user, err := f.users.GetUser(f.ctx, users.IDFor(testProvider, "user-42"))
		require.NoError(t, err)
		require.Equal(t, "jane@example.com", user.Email)
	})

	t.Run("incomplete replacement on set session is a validation error", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithHooks(auth.Hooks{
			OnSessionSaving: func(_ context.Context, s *sessions.Session) (*sessions.Session, error) {
				s.ProviderUserID = ""
				return s, nil
			},
		}))
		rec, r := newBrowser().request(http.MethodPost, "/api/auth/set_session")
		err := f.service.SetSession(f.ctx, r, &sessions.Session{
			ID: testSessionID, ProviderUserID: "user-42", ProviderName: testProvider, ExpiresAt: f.now.Add(time.Hour),
		})
		require.ErrorIs(t, err, autherrors.ErrValidation)
		require.Equal(t, http.StatusBadRequest, autherrors.HTTPStatus(err))
		require.NotContains(t, responseCookies(rec), cookies.SessionCookie)
	})
}

func TestUserAccess(t *testing.T) {
	f := setupTestFixture(t)
	b := f.login(t)
	ownID := users.IDFor(testProvider, "user-42")

	_, r := b.request(http.MethodPost, "/api/auth/user")
	user, err := f.service.GetUser(f.ctx, r, "")
	require.NoError(t, err)
	require.Equal(t, ownID, user.ID)

	_, r = b.request(http.MethodPost, "/api/auth/user/other")
	_, err = f.service.GetUser(f.ctx, r, "someone-else")
	require.ErrorIs(t, err, autherrors.ErrForbidden)

	_, r = newBrowser().request(http.MethodPost, "/api/auth/user")
	_, err = f.service.GetUser(f.ctx, r, "")
	require.ErrorIs(t, err, autherrors.ErrUnauthorized)

	t.Run("set user merges tokens", func(t *testing.T) {
		_, r := b.request(http.MethodPost, "/api/auth/set_user")
		require.NoError(t, f.service.SetUser(f.ctx, r, &users.User{Name: "Jane D"}))

		stored, err := f.users.GetUser(f.ctx, ownID)
		require.NoError(t, err)
		require.Equal(t, "Jane D", stored.Name)
		require.Equal(t, "access-1", stored.AccessToken)
		require.Equal(t, "refresh-1", stored.RefreshToken)
		require.Equal(t, "user-42", stored.ProviderUserID)

		_, r = b.request(http.MethodPost, "/api/auth/set_user")
		require.ErrorIs(t, f.service.SetUser(f.ctx, r, &users.User{ID: "other"}), autherrors.ErrForbidden)
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	b := f.login(t)

	rec, r := b.request(http.MethodGet, "/api/auth/logout?revokeToken=true")
	require.NoError(t, f.service.Logout(f.ctx, r, true, "/bye"))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/bye", rec.Header().Get("Location"))
	require.Equal(t, []string{"access-1"}, f.client.revoked)
	require.Less(t, responseCookies(rec)[cookies.SessionCookie].MaxAge, 0)

	user, err := f.users.GetUser(f.ctx, users.IDFor(testProvider, "user-42"))
	require.NoError(t, err)
	require.Nil(t, user)

	b.keep(rec)
	_, r = b.request(http.MethodPost, "/api/auth/session")
	session, err := f.service.GetSession(f.ctx, r)
	require.NoError(t, err)
	require.Nil(t, session)

	t.Run("without session still clears cookies", func(t *testing.T) {
		rec, r := newBrowser().request(http.MethodGet, "/api/auth/logout")
		require.NoError(t, f.service.Logout(f.ctx, r, false, ""))
		require.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("user store outage still expires the session", func(t *testing.T) {
		store := &unavailableUsers{MemoryAdapter: users.NewMemoryAdapter()}
		f := setupTestFixture(t, auth.WithUserAdapter(store))
		b := f.login(t)
		store.down.Store(true)

		rec, r := b.request(http.MethodGet, "/api/auth/logout?revokeToken=true")
		require.NoError(t, f.service.Logout(f.ctx, r, true, "/bye"))
		require.Equal(t, "/bye", rec.Header().Get("Location"))
		require.Less(t, responseCookies(rec)[cookies.SessionCookie].MaxAge, 0)
		require.Empty(t, f.client.revoked, "token is unknown while the store is down")
	})
}

// unavailableUsers fails every call once down is set.
type unavailableUsers struct {
	*users.MemoryAdapter
	down atomic.Bool
}

func (u *unavailableUsers) GetUser(ctx context.Context, id string) (*users.User, error) {
	if u.down.Load() {
		return nil, errors.New("connection refused")
	}
	return u.MemoryAdapter.GetUser(ctx, id)
}

func (u *unavailableUsers) DeleteUser(ctx context.Context, id string) error {
	if u.down.Load() {
		return errors.New("connection refused")
	}
	return u.MemoryAdapter.DeleteUser(ctx, id)
}

func TestCredentialsFlow(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("register then duplicate", func(t *testing.T) {
		_, r := newBrowser().request(http.MethodPost, "/api/auth/credentials/register")
		claims, session, err := f.service.Register(f.ctx, r, "", "jane@example.com", testPassword, map[string]any{"name": "Jane"}, false)
		require.NoError(t, err)
		require.Equal(t, "jane@example.com", claims.Email)
		require.Nil(t, session)

		_, r = newBrowser().request(http.MethodPost, "/api/auth/credentials/register")
		_, _, err = f.service.Register(f.ctx, r, "", "jane@example.com", testPassword, nil, false)
		require.ErrorIs(t, err, autherrors.ErrUserExists)
		require.Equal(t, http.StatusConflict, autherrors.HTTPStatus(err))
	})

	t.Run("register with auto login", func(t *testing.T) {
		rec, r := newBrowser().request(http.MethodPost, "/api/auth/credentials/register")
		_, session, err := f.service.Register(f.ctx, r, "credentials", "bob@example.com", testPassword, nil, true)
		require.NoError(t, err)
		require.NotNil(t, session)
		require.Equal(t, "credentials", session.ProviderName)
		require.Contains(t, responseCookies(rec), cookies.SessionCookie)
	})

	t.Run("login", func(t *testing.T) {
		rec, r := newBrowser().request(http.MethodPost, "/api/auth/credentials/login")
		session, err := f.service.CredentialsLogin(f.ctx, r, "", "jane@example.com", testPassword)
		require.NoError(t, err)
		require.Equal(t, "jane@example.com", session.Email)
		require.Equal(t, f.now.Add(auth.DefaultSessionTTL), session.ExpiresAt)
		require.Contains(t, responseCookies(rec), cookies.SessionCookie)
	})

	t.Run("wrong password is a generic 401", func(t *testing.T) {
		rec, r := newBrowser().request(http.MethodPost, "/api/auth/credentials/login")
		_, err := f.service.CredentialsLogin(f.ctx, r, "", "jane@example.com", "Wr0ngPassword")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
		require.Equal(t, http.StatusUnauthorized, autherrors.HTTPStatus(err))
		require.Equal(t, "Invalid email or password", autherrors.PublicMessage(err))
		require.NotContains(t, responseCookies(rec), cookies.SessionCookie)
	})

	t.Run("oauth provider is not a credentials provider", func(t *testing.T) {
		_, r := newBrowser().request(http.MethodPost, "/api/auth/credentials/login")
		_, err := f.service.CredentialsLogin(f.ctx, r, testProvider, "jane@example.com", testPassword)
		require.ErrorIs(t, err, autherrors.ErrProviderNotFound)
	})

	t.Run("password reset", func(t *testing.T) {
		require.NoError(t, f.service.RequestPasswordReset(f.ctx, "", "nobody@example.com"))
		require.NoError(t, f.service.RequestPasswordReset(f.ctx, "", "jane@example.com"))
		require.ErrorIs(t, f.service.ConfirmPasswordReset(f.ctx, "", "bad-token", "N3wPassword"), autherrors.ErrInvalidResetToken)
		require.ErrorIs(t, f.service.ConfirmPasswordReset(f.ctx, "", "", "N3wPassword"), autherrors.ErrInvalidResetToken)
	})
}
