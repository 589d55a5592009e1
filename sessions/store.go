package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/cookies"
)

// Store reads and writes the session for the current request.
type Store interface {
	GetSession(ctx context.Context, r adapter.Router) (*Session, error)
	SetSession(ctx context.Context, r adapter.Router, session *Session) error
	DeleteSession(ctx context.Context, r adapter.Router) error
	GenerateSessionID() string
}

// DecryptErrorHook observes session cookies that failed to decode. The failure itself
// is never returned to the caller.
type DecryptErrorHook func(ctx context.Context, err error)

// CookieStore keeps the encrypted session in the client's cookies, split across
// numbered cookies when it outgrows one.
type CookieStore struct {
	codec          *Codec
	options        cookies.Options
	chunkSize      int
	onDecryptError DecryptErrorHook
	nowTime        func() time.Time
}

var _ Store = (*CookieStore)(nil)

type CookieStoreOption func(*CookieStore)

func WithDecryptErrorHook(hook DecryptErrorHook) CookieStoreOption {
	return func(s *CookieStore) {
		s.onDecryptError = hook
	}
}

// WithChunkSize overrides the per-cookie byte limit (tests use small values).
func WithChunkSize(size int) CookieStoreOption {
	return func(s *CookieStore) {
		s.chunkSize = size
	}
}

func WithNowTime(nowFunc func() time.Time) CookieStoreOption {
	return func(s *CookieStore) {
		s.nowTime = nowFunc
	}
}

func NewCookieStore(codec *Codec, options cookies.Options, opts ...CookieStoreOption) (*CookieStore, error) {
	if codec == nil {
		return nil, errors.New("[NewCookieStore] codec is required")
	}
	s := &CookieStore{
		codec:     codec,
		options:   options,
		chunkSize: cookies.MaxChunkSize,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetSession returns nil when there is no session cookie, when the chunks cannot be
// reassembled, or when the token does not decrypt to a complete session.
func (s *CookieStore) GetSession(ctx context.Context, r adapter.Router) (*Session, error) {
	token, ok := cookies.Join(cookies.SessionCookie, r.Cookies())
	if !ok || token == "" {
		return nil, nil
	}

	session, err := s.codec.DecryptSession(token)
	if err != nil {
		if s.onDecryptError != nil {
			s.onDecryptError(ctx, err)
		}
		return nil, nil
	}
	return session, nil
}

func (s *CookieStore) SetSession(ctx context.Context, r adapter.Router, session *Session) error {
	if !session.Complete() {
		return errors.New("[CookieStore.SetSession] session requires id, providerUserId and expiresAt")
	}
	token, err := s.codec.EncryptSession(session)
	if err != nil {
		return fmt.Errorf("[CookieStore.SetSession] %w", err)
	}

	maxAge := session.ExpiresAt.Sub(s.nowTime())
	chunks := cookies.Split(cookies.SessionCookie, token, s.chunkSize)

	out := make([]*http.Cookie, 0, len(chunks))
	for _, stale := range cookies.Stale(cookies.SessionCookie, r.Cookies(), chunks) {
		out = append(out, s.options.Expired(stale))
	}
	for _, c := range chunks {
		out = append(out, s.options.New(c.Name, c.Value, maxAge))
	}
	r.SetCookies(out...)
	return nil
}

func (s *CookieStore) DeleteSession(ctx context.Context, r adapter.Router) error {
	names := cookies.Names(cookies.SessionCookie, r.Cookies())
	if len(names) == 0 {
		names = []string{cookies.SessionCookie}
	}
	out := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		out = append(out, s.options.Expired(name))
	}
	r.SetCookies(out...)
	return nil
}

func (s *CookieStore) GenerateSessionID() string {
	return uuid.New().String()
}
