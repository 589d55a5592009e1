package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/light-auth/adapter"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/rs/zerolog"
)

// Handler serves a Dispatcher over net/http and turns its errors into JSON responses.
type Handler struct {
	dispatcher *Dispatcher
	logger     zerolog.Logger
	routerOpts []adapter.NetHTTPOption
}

func NewHandler(dispatcher *Dispatcher, logger zerolog.Logger, routerOpts ...adapter.NetHTTPOption) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger, routerOpts: routerOpts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r := adapter.NewNetHTTP(w, req, h.routerOpts...)
	handled, err := h.dispatcher.Dispatch(req.Context(), r)
	if err != nil {
		h.writeError(r, err)
		return
	}
	if !handled {
		r.ReturnJSON(http.StatusNotFound, errorResponse{Error: "Not found"})
	}
}

func (h *Handler) writeError(r adapter.Router, err error) {
	status := autherrors.HTTPStatus(err)
	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("method", r.Method()).
		Str("path", r.URL().Path).
		Str("request_id", middleware.GetReqID(r.Request().Context())).
		Msg("auth request failed")
	r.ReturnJSON(status, errorResponse{Error: autherrors.PublicMessage(err)})
}
