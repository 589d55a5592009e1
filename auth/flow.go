package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/cookies"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/internal/utils"
	"github.com/jrsteele09/light-auth/providers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

var tracer = otel.Tracer("github.com/jrsteele09/light-auth/auth")

// BeginLogin starts the authorization-code flow for providerName and redirects the
// client to the provider.
func (s *Service) BeginLogin(ctx context.Context, r adapter.Router, providerName, callbackURL string) error {
	p, err := s.providers.OAuth(providerName)
	if err != nil {
		return err
	}

	state, err := generateRandomString(32)
	if err != nil {
		return fmt.Errorf("[BeginLogin] %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	authURL, err := p.Client.CreateAuthorizationURL(providers.AuthorizationRequest{
		State:        state,
		CodeVerifier: verifier,
		Scopes:       utils.DedupeAndTrim(defaultScopes, p.Scopes),
		ExtraParams:  p.ExtraParams,
	})
	if err != nil {
		return fmt.Errorf("[BeginLogin] %w: %w", autherrors.ErrInternal, err)
	}

	r.SetCookies(
		s.cookieOptions.New(cookies.StateCookie(p.Name()), state, pendingAuthorizationTTL),
		s.cookieOptions.New(cookies.CodeVerifierCookie(p.Name()), verifier, pendingAuthorizationTTL),
		s.cookieOptions.New(cookies.CallbackURLCookie(p.Name()), safeCallbackURL(callbackURL, requestHost(r)), pendingAuthorizationTTL),
		s.csrf.Clear(),
	)
	s.logger.Debug().Str("provider", p.Name()).Msg("redirecting to provider")
	r.RedirectTo(authURL)
	return nil
}

// HandleCallback completes the flow: it checks the returned state against the pending
// cookies, exchanges the code, and issues the session. The pending cookies are deleted
// whatever the outcome.
func (s *Service) HandleCallback(ctx context.Context, r adapter.Router, providerName string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.HandleCallback",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("auth.provider", providerName)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "callback failed")
		}
		span.End()
	}()

	p, err := s.providers.OAuth(providerName)
	if err != nil {
		return err
	}
	defer func() { recordLogin(p.Name(), "oauth", err) }()

	jar := r.Cookies()
	storedState, hasState := cookies.Find(jar, cookies.StateCookie(p.Name()))
	verifier, hasVerifier := cookies.Find(jar, cookies.CodeVerifierCookie(p.Name()))
	callbackURL, _ := cookies.Find(jar, cookies.CallbackURLCookie(p.Name()))
	r.SetCookies(
		s.cookieOptions.Expired(cookies.StateCookie(p.Name())),
		s.cookieOptions.Expired(cookies.CodeVerifierCookie(p.Name())),
		s.cookieOptions.Expired(cookies.CallbackURLCookie(p.Name())),
	)

	query := r.URL().Query()
	if e := query.Get("error"); e != "" {
		return fmt.Errorf("%w: %s %s", autherrors.ErrAuthorizationDenied, e, query.Get("error_description"))
	}
	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		return autherrors.ErrMissingCodeOrState
	}
	if !hasState || !hasVerifier || storedState == "" || verifier == "" {
		return autherrors.ErrInvalidState
	}
	if subtle.ConstantTimeCompare([]byte(storedState), []byte(state)) != 1 {
		return autherrors.ErrInvalidState
	}

	exchangeCtx, cancel := s.withTimeout(ctx)
	tokens, err := p.Client.ValidateAuthorizationCode(exchangeCtx, code, verifier)
	cancel()
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", p.Name()).Msg("token exchange failed")
		return fmt.Errorf("%w: %w", autherrors.ErrTokenExchangeFailed, err)
	}
	if tokens.IDToken == "" {
		return autherrors.ErrMissingIDToken
	}

	claims, err := s.idTokenClaims(ctx, p.Client, tokens.IDToken)
	if err != nil {
		return err
	}

	if _, err := s.issueSession(ctx, r, p.Name(), claims, tokens); err != nil {
		return err
	}

	if callbackURL == "" {
		callbackURL = "/"
	}
	r.RedirectTo(safeCallbackURL(callbackURL, requestHost(r)))
	return nil
}

func (s *Service) idTokenClaims(ctx context.Context, client providers.AuthorizationClient, rawIDToken string) (*providers.Claims, error) {
	var (
		raw map[string]any
		err error
	)
	if verifier, ok := client.(providers.IDTokenVerifier); ok {
		raw, err = verifier.VerifyIDToken(ctx, rawIDToken)
	} else {
		raw, err = providers.ParseIDTokenClaims(rawIDToken)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("id token rejected")
		return nil, fmt.Errorf("%w: %w", autherrors.ErrInvalidIDToken, err)
	}
	claims := providers.ClaimsFromMap(raw)
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", autherrors.ErrInvalidIDToken)
	}
	return claims, nil
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// requestHost is the host the client addressed, preferring the proxy's forwarded host.
func requestHost(r adapter.Router) string {
	h := r.Headers()
	if fwd := h.Get("X-Forwarded-Host"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return h.Get("Host")
}

// safeCallbackURL allows relative paths and absolute http(s) URLs on host. Anything
// else becomes "/".
func safeCallbackURL(raw, host string) string {
	if raw == "" || strings.ContainsAny(raw, "\\\r\n") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "/"
	}
	if !u.IsAbs() && u.Host == "" {
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return raw
		}
		return "/"
	}
	if (u.Scheme == "http" || u.Scheme == "https") && host != "" && strings.EqualFold(u.Host, host) {
		return raw
	}
	return "/"
}
