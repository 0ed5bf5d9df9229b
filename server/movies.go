package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/pagination"
	"go.uber.org/zap"
)

type ListMoviesResponse struct {
	Movies []movie.Movie    `json:"movies"`
	Meta   pagination.Meta `json:"meta"`
}

type AddMovieRequest struct {
	Term    string             `json:"term"`
	Mode    manager.SearchMode `json:"mode"`
	Sources []movie.Source     `json:"sources"`
}

type LendRequest struct {
	LentTo string `json:"lent_to"`
}

type RatingRequest struct {
	Rating int `json:"rating"`
}

// ListMovies lists the filtered collection. ?all=true ignores the active criteria.
func (s Server) ListMovies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := ParsePaginationParams(r)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		list := s.manager.Filtered
		if r.URL.Query().Get("all") == "true" {
			list = s.manager.Movies
		}

		records, err := list()
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		page, meta := pagination.Slice(records, params)
		writeResponse(w, http.StatusOK, GenericResponse{
			Response: ListMoviesResponse{Movies: page, Meta: meta},
		})
	}
}

// GetMovie returns a single record of the collection
func (s Server) GetMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := s.manager.Movie(movieID(r))
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{Response: record})
	}
}

// AddMovie searches the catalog and adds the match to the collection
func (s Server) AddMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromCtx(r.Context())

		var request AddMovieRequest
		if err := decodeBody(r, &request); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}
		if request.Mode == "" {
			request.Mode = manager.SearchTitle
		}
		if request.Sources == nil {
			request.Sources = []movie.Source{}
		}

		record, err := s.manager.SearchAndAdd(r.Context(), request.Term, request.Sources, request.Mode)
		if err != nil {
			log.Debug("failed to add movie", zap.Error(err))
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusCreated, GenericResponse{Response: record})
	}
}

// UpdateMovie applies a partial update to the personal fields of a movie
func (s Server) UpdateMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch movie.Patch
		if err := decodeBody(r, &patch); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		s.writeRecord(w, r, func() (movie.Movie, error) {
			return s.manager.UpdateRecord(r.Context(), movieID(r), patch)
		})
	}
}

// DeleteMovie removes a movie from the collection
func (s Server) DeleteMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.DeleteRecord(r.Context(), movieID(r)); err != nil {
			logger.FromCtx(r.Context()).Debug("failed to delete movie", zap.Error(err))
			writeErrorResponse(w, statusFor(err), err)
			return
		}

		writeResponse(w, http.StatusOK, GenericResponse{})
	}
}

func (s Server) ToggleWatched() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeRecord(w, r, func() (movie.Movie, error) {
			return s.manager.ToggleWatched(r.Context(), movieID(r))
		})
	}
}

// LendMovie marks a movie as lent out. The body is optional.
func (s Server) LendMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request LendRequest
		if r.ContentLength > 0 {
			if err := decodeBody(r, &request); err != nil {
				writeErrorResponse(w, http.StatusBadRequest, err)
				return
			}
		}

		s.writeRecord(w, r, func() (movie.Movie, error) {
			return s.manager.Lend(r.Context(), movieID(r), request.LentTo)
		})
	}
}

func (s Server) ReturnMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeRecord(w, r, func() (movie.Movie, error) {
			return s.manager.Return(r.Context(), movieID(r))
		})
	}
}

func (s Server) RateMovie() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request RatingRequest
		if err := decodeBody(r, &request); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		s.writeRecord(w, r, func() (movie.Movie, error) {
			return s.manager.Rate(r.Context(), movieID(r), request.Rating)
		})
	}
}

func (s Server) writeRecord(w http.ResponseWriter, r *http.Request, fn func() (movie.Movie, error)) {
	record, err := fn()
	if err != nil {
		logger.FromCtx(r.Context()).Debug("failed to update movie", zap.Error(err))
		writeErrorResponse(w, statusFor(err), err)
		return
	}

	writeResponse(w, http.StatusOK, GenericResponse{Response: record})
}

func movieID(r *http.Request) movie.ID {
	return movie.ID(mux.Vars(r)["id"])
}
