package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler(http.MethodGet, RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// Every auth endpoint goes through the dispatcher, which answers 404 itself
	base := s.dispatcher.BasePath()
	s.RegisterRouteHandler("*", base+"/*", ChainMiddleware(s.handler.ServeHTTP, s.APIMiddleware()...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
