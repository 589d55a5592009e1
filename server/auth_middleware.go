package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/light-auth/adapter"
	"github.com/jrsteele09/light-auth/auth"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the authenticated *sessions.Session
const ContextKeySession ContextKey = "session"

// RequireSession is middleware for application routes that need a signed-in user.
// Requests without a valid session get a 401; otherwise the session, renewed if due,
// is placed in the request context.
func RequireSession(service *auth.Service) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			router := adapter.NewNetHTTP(w, r)
			session, err := service.GetSession(r.Context(), router)
			if err != nil {
				router.ReturnJSON(autherrors.HTTPStatus(err), errorResponse{Error: autherrors.PublicMessage(err)})
				return
			}
			if session == nil {
				router.ReturnJSON(http.StatusUnauthorized, errorResponse{Error: autherrors.PublicMessage(autherrors.ErrUnauthorized)})
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return session, ok && session != nil
}
