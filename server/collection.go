package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kasuboski/moviez/pkg/filter"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/view"
)

type FiltersResponse struct {
	Criteria  filter.Criteria `json:"criteria"`
	PanelOpen bool            `json:"panel_open"`
	Matches   int             `json:"matches"`
}

type StateResponse struct {
	State         view.State   `json:"state"`
	Error         string       `json:"error,omitempty"`
	View          manager.View `json:"view"`
	Authenticated bool         `json:"authenticated"`
}

type ViewRequest struct {
	View manager.View `json:"view"`
}

func (s Server) filters() (FiltersResponse, error) {
	filtered, err := s.manager.Filtered()
	if err != nil {
		return FiltersResponse{}, err
	}

	return FiltersResponse{
		Criteria:  s.manager.Criteria().Criteria(),
		PanelOpen: s.manager.Criteria().PanelOpen(),
		Matches:   len(filtered),
	}, nil
}

func (s Server) writeFilters(w http.ResponseWriter) {
	resp, err := s.filters()
	if err != nil {
		writeErrorResponse(w, statusFor(err), err)
		return
	}
	writeResponse(w, http.StatusOK, GenericResponse{Response: resp})
}

func (s Server) GetFilters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeFilters(w)
	}
}

// SetFilters replaces the active criteria with the body, a map of key to value.
// The answer is sent once any remote refinement has settled.
func (s Server) SetFilters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := decodeBody(r, &body); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		c := filter.Criteria{}
		for k, v := range body {
			key, err := filter.ParseKey(k)
			if err != nil {
				writeErrorResponse(w, http.StatusBadRequest, err)
				return
			}
			c[key] = v
		}

		if _, err := s.manager.ApplyFilters(c); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		s.writeFilters(w)
	}
}

func (s Server) ClearFilters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.ClearFilters(); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		s.writeFilters(w)
	}
}

func (s Server) ToggleFilterPanel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.manager.ToggleFilters()
		s.writeFilters(w)
	}
}

// GetStats returns the statistics snapshot with the locally derived insights
func (s Server) GetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.manager.Statistics()
		if err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: report})
	}
}

func (s Server) state() StateResponse {
	resp := StateResponse{
		State:         s.manager.View().State(),
		View:          s.manager.ActiveView(),
		Authenticated: s.manager.Session().IsAuthenticated(),
	}
	if err := s.manager.View().Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s Server) GetState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, GenericResponse{Response: s.state()})
	}
}

// Retry reloads the collection after a failed load
func (s Server) Retry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.Retry(r.Context()); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: s.state()})
	}
}

func (s Server) ChangeView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request ViewRequest
		if err := decodeBody(r, &request); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, err)
			return
		}

		if err := s.manager.ChangeView(request.View); err != nil {
			writeErrorResponse(w, statusFor(err), err)
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{Response: s.state()})
	}
}

func (s Server) ListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, GenericResponse{Response: s.manager.Notifications().List()})
	}
}

func (s Server) DismissNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.manager.Notifications().Dismiss(mux.Vars(r)["id"]) {
			writeResponse(w, http.StatusNotFound, GenericResponse{Error: "notification not found"})
			return
		}
		writeResponse(w, http.StatusOK, GenericResponse{})
	}
}
