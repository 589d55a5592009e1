package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/light-auth/adapter"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultWindow = time.Second
	DefaultMax    = 10

	RetryAfterHeader = "X-Retry-After"
)

// DefaultMessage is the 429 body unless WithMessage overrides it.
var DefaultMessage = map[string]string{"error": "Too many requests, please try again later."}

// Limiter applies the window algorithm to (client IP, route) keys.
type Limiter struct {
	store   Store
	window  time.Duration
	max     int
	message any
	skip    func(r adapter.Router) bool
	logger  zerolog.Logger
	nowTime func() time.Time
}

type Option func(*Limiter)

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithMax(max int) Option {
	return func(l *Limiter) {
		if max > 0 {
			l.max = max
		}
	}
}

// WithMessage replaces the JSON payload returned with a 429.
func WithMessage(message any) Option {
	return func(l *Limiter) {
		l.message = message
	}
}

// WithSkip exempts requests for which skip returns true.
func WithSkip(skip func(r adapter.Router) bool) Option {
	return func(l *Limiter) {
		l.skip = skip
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(l *Limiter) {
		l.nowTime = nowFunc
	}
}

// New builds a limiter over store. A nil store gets a MemoryStore.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:   store,
		window:  DefaultWindow,
		max:     DefaultMax,
		message: DefaultMessage,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decision is what Allow resolved for one request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // remaining window, set when rejected
}

// Allow records one request for clientIP on route. A rejected request returns
// ErrRateLimited. A store failure returns an allowed decision with the store error.
func (l *Limiter) Allow(ctx context.Context, clientIP, route string) (Decision, error) {
	now := l.nowTime()
	result, err := l.store.Hit(ctx, clientIP+route, now, l.window, l.max)
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("[Limiter.Allow] %w", err)
	}
	if result.Allowed {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: l.window - now.Sub(result.WindowStart)}, autherrors.ErrRateLimited
}

// Handle reports whether the request may proceed. When it may not, the 429 response
// has already been written.
func (l *Limiter) Handle(r adapter.Router) bool {
	if l.skip != nil && l.skip(r) {
		decisionsTotal.WithLabelValues("skipped").Inc()
		return true
	}

	decision, err := l.Allow(r.Request().Context(), r.ClientIP(), r.URL().Path)
	switch {
	case err == nil:
		decisionsTotal.WithLabelValues("allowed").Inc()
		return true
	case errors.Is(err, autherrors.ErrRateLimited):
		decisionsTotal.WithLabelValues("rejected").Inc()
		r.SetHeader(RetryAfterHeader, strconv.Itoa(retrySeconds(decision.RetryAfter)))
		r.ReturnJSON(http.StatusTooManyRequests, l.message)
		return false
	default:
		storeErrorsTotal.Inc()
		l.logger.Warn().Err(err).Str("path", r.URL().Path).Msg("rate limit store failed, allowing request")
		return true
	}
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

