// Package server exposes the auth endpoints over net/http.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/light-auth/adapter"
	"github.com/rs/zerolog"
)

// ANSI colours for the DEV route log
const (
	ansiGray  = "\033[90m"
	ansiReset = "\033[0m"
)

var methodColors = map[string]string{
	http.MethodGet:    "\033[32m",
	http.MethodPost:   "\033[34m",
	http.MethodPut:    "\033[36m",
	http.MethodDelete: "\033[33m",
	http.MethodPatch:  "\033[35m",
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	logger     zerolog.Logger
	router     chi.Router
	routes     []string
	dispatcher *Dispatcher
	handler    *Handler
	trustProxy bool
}

type Option func(*Server)

func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTrustedProxy takes the client address from X-Forwarded-For and X-Real-IP. Only
// set it when a proxy in front of the server overwrites those headers.
func WithTrustedProxy(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// New mounts the dispatcher under its base path on a chi router.
func New(dispatcher *Dispatcher, opts ...Option) *Server {
	s := &Server{
		logger:     zerolog.Nop(),
		router:     chi.NewRouter(),
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewHandler(dispatcher, s.logger, adapter.WithTrustedProxy(s.trustProxy))

	s.router.Use(middleware.RequestID)
	if s.trustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteHandler adds a route. method "*" matches every method.
func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler) {
	s.routes = append(s.routes, method+" "+pattern)
	if method == "*" {
		s.router.Handle(pattern, handler)
		return
	}
	s.router.Method(method, pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, _ := strings.Cut(route, " ")
		s.logRoute(method, path)
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = ansiGray
	}
	s.logger.Info().Msgf("[%-19s] %s", color+paddedMethod+ansiReset, path)
}
