package server

import (
	"net/http"

	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/logger"
	"go.uber.org/zap"
)

// GetSession checks the session with the API and returns the account
func (s Server) GetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.Session().Check(r.Context()); err != nil {
			logger.FromCtx(r.Context()).Debug("session check failed", zap.Error(err))
		}

		user, ok := s.manager.Session().User()
		if !ok {
			writeResponse(w, http.StatusUnauthorized, GenericResponse{Error: "not authenticated"})
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: user})
	}
}

func (s Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials api.Credentials
		if err := decodeBody(r, &credentials); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		user, err := s.manager.Login(r.Context(), credentials)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: user})
	}
}

func (s Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile api.Profile
		if err := decodeBody(r, &profile); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		user, err := s.manager.Register(r.Context(), profile)
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusCreated, GenericResponse{Response: user})
	}
}

// Logout ends the session. The local session is cleared even when the API call fails.
func (s Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.Logout(r.Context()); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{})
	}
}
