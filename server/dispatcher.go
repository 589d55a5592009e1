package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/auth"
	"github.com/jrsteele09/light-auth/ratelimit"
	"github.com/rs/zerolog"
)

// Dispatcher routes the auth endpoints beneath the service's base path.
type Dispatcher struct {
	auth    *auth.Service
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

type DispatcherOption func(*Dispatcher)

// WithRateLimiter throttles every matched endpoint. Without it nothing is limited.
func WithRateLimiter(limiter *ratelimit.Limiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(service *auth.Service, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		auth:   service,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) BasePath() string {
	return d.auth.BasePath()
}

// endpoint is one row of the routing table. param is the trailing path segment for
// parameterised routes (provider name, user id).
type endpoint struct {
	csrf   bool // state-changing, requires a valid CSRF cookie
	handle func(ctx context.Context, r adapter.Router, param string) error
}

// Dispatch handles r if its method and path name an auth endpoint. It reports false
// with a nil error for anything else so the caller can fall through. The origin check
// and the rate limiter run before the endpoint; the CSRF token is checked only for
// state-changing endpoints.
func (d *Dispatcher) Dispatch(ctx context.Context, r adapter.Router) (bool, error) {
	ep, param, ok := d.match(r.Method(), r.URL().Path)
	if !ok {
		return false, nil
	}

	if err := d.auth.CSRF().CheckOrigin(r.Headers()); err != nil {
		return true, err
	}
	if d.limiter != nil && !d.limiter.Handle(r) {
		return true, nil
	}
	if ep.csrf {
		if err := d.auth.CSRF().Validate(r.Cookies()); err != nil {
			return true, err
		}
	}
	return true, ep.handle(ctx, r, param)
}

func (d *Dispatcher) match(method, path string) (endpoint, string, bool) {
	base := strings.TrimSuffix(d.auth.BasePath(), "/")
	if !strings.HasPrefix(path, base+"/") {
		return endpoint{}, "", false
	}
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, base), "/"), "/")

	post, get := method == http.MethodPost, method == http.MethodGet
	switch len(segments) {
	case 1:
		switch {
		case post && segments[0] == SegmentCSRF:
			return endpoint{handle: d.csrfToken}, "", true
		case post && segments[0] == SegmentSession:
			return endpoint{handle: d.session}, "", true
		case post && segments[0] == SegmentSetSession:
			return endpoint{csrf: true, handle: d.setSession}, "", true
		case post && segments[0] == SegmentUser:
			return endpoint{handle: d.user}, "", true
		case post && segments[0] == SegmentSetUser:
			return endpoint{csrf: true, handle: d.setUser}, "", true
		case get && segments[0] == SegmentLogout:
			return endpoint{csrf: true, handle: d.logout}, "", true
		}
	case 2:
		param := segments[1]
		if param == "" {
			break
		}
		switch {
		case post && segments[0] == SegmentUser:
			return endpoint{handle: d.user}, param, true
		case get && segments[0] == SegmentLogin:
			return endpoint{csrf: true, handle: d.login}, param, true
		case get && segments[0] == SegmentCallback:
			return endpoint{handle: d.callback}, param, true
		case post && segments[0] == SegmentCredentials && param == SegmentLogin:
			return endpoint{csrf: true, handle: d.credentialsLogin}, "", true
		case post && segments[0] == SegmentCredentials && param == SegmentRegister:
			return endpoint{csrf: true, handle: d.register}, "", true
		}
	case 3:
		if !post || segments[0] != SegmentCredentials || segments[1] != SegmentResetPassword {
			break
		}
		switch segments[2] {
		case SegmentRequest:
			return endpoint{csrf: true, handle: d.resetRequest}, "", true
		case SegmentConfirm:
			return endpoint{csrf: true, handle: d.resetConfirm}, "", true
		}
	}
	return endpoint{}, "", false
}
