// Package server exposes the auth machine's public actions surface over
// HTTP: sign-in/up/out, the current snapshot, and route-guard decisions.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vowquiz/go-quiz-auth/authstate"
)

type Server struct {
	machine *authstate.Machine
	log     zerolog.Logger
	router  chi.Router
}

func New(machine *authstate.Machine, log zerolog.Logger) (*Server, error) {
	if machine == nil {
		return nil, errors.New("[server.New] machine is required")
	}

	s := &Server{
		machine: machine,
		log:     log,
	}
	s.routes()
	return s, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.log))

	r.Get(RouteHealth, s.handleHealth)
	r.Get(RouteSession, s.handleSession)
	r.Post(RouteSignIn, s.handleSignIn)
	r.Post(RouteSignUp, s.handleSignUp)
	r.Post(RouteSignOut, s.handleSignOut)
	r.Post(RouteClearError, s.handleClearError)
	r.Get(RouteRouteDecision, s.handleRouteDecision)

	s.router = r
}
