package server

import (
	"encoding/json"
	"net/http"

	"github.com/vowquiz/go-quiz-auth/routeguard"
	"github.com/vowquiz/go-quiz-auth/session"
)

const contentTypeJSON = "application/json; charset=utf-8"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.machine.GetSnapshot())
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !s.decodeJSON(w, r, &creds) {
		return
	}
	result := s.machine.SignIn(r.Context(), creds)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnauthorized
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var creds session.SignupCredentials
	if !s.decodeJSON(w, r, &creds) {
		return
	}
	result := s.machine.SignUp(r.Context(), creds)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.machine.SignOut(r.Context()))
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.machine.ClearError()
	s.respondJSON(w, http.StatusOK, s.machine.GetSnapshot())
}

// handleRouteDecision evaluates the path-level guard for the current user,
// composed with the ownership check when owner_id is supplied. An ownership
// deny wins over a path allow.
func (s *Server) handleRouteDecision(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path query parameter is required", http.StatusBadRequest)
		return
	}

	decision := s.machine.CanAccessRoute(path)
	if ownerID := r.URL.Query().Get("owner_id"); ownerID != "" {
		owner := routeguard.DecideOwner(s.machine.GetSnapshot().User, ownerID)
		decision = routeguard.Compose(decision, owner)
	}
	s.respondJSON(w, http.StatusOK, decision)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Err(err).Msg("failed to encode response")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
