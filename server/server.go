package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/collection"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/view"
	"go.uber.org/zap"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type GenericResponse struct {
	Error    string `json:"error,omitempty"`
	Response any    `json:"response"`
}

// Server exposes the synchronized collection held by a manager over http
type Server struct {
	baseLogger *zap.SugaredLogger
	manager    *manager.Manager
}

// New creates a new collection server
func New(logger *zap.SugaredLogger, manager *manager.Manager) Server {
	return Server{
		baseLogger: logger,
		manager:    manager,
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, err error) error {
	return writeResponse(w, status, GenericResponse{
		Error: err.Error(),
	})
}

func writeResponse(w http.ResponseWriter, status int, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w.Header().Set("content-type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}

	w.Write(b)
	return nil
}

// statusFor maps a command error onto the status it is served with
func statusFor(err error) int {
	var remote *manager.RemoteCallFailure
	switch {
	case errors.Is(err, manager.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, collection.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, collection.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, manager.ErrClosed), errors.Is(err, view.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		if api.IsUnauthorized(err) {
			return http.StatusUnauthorized
		}
		if status := api.StatusCode(err); status >= 400 && status < 500 {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", manager.ErrValidation)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", manager.ErrValidation, err)
	}
	return nil
}

// Router builds the routes of the server
func (s Server) Router() http.Handler {
	rtr := mux.NewRouter()
	rtr.Use(s.LogMiddleware())
	rtr.HandleFunc("/healthz", s.Healthz()).Methods(http.MethodGet)

	api := rtr.PathPrefix("/api").Subrouter()

	v1 := api.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/movies", s.ListMovies()).Methods(http.MethodGet)
	v1.HandleFunc("/movies", s.AddMovie()).Methods(http.MethodPost)
	v1.HandleFunc("/movies/{id}", s.GetMovie()).Methods(http.MethodGet)
	v1.HandleFunc("/movies/{id}", s.UpdateMovie()).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/movies/{id}", s.DeleteMovie()).Methods(http.MethodDelete)
	v1.HandleFunc("/movies/{id}/watched", s.ToggleWatched()).Methods(http.MethodPost)
	v1.HandleFunc("/movies/{id}/lend", s.LendMovie()).Methods(http.MethodPost)
	v1.HandleFunc("/movies/{id}/return", s.ReturnMovie()).Methods(http.MethodPost)
	v1.HandleFunc("/movies/{id}/rating", s.RateMovie()).Methods(http.MethodPut)

	v1.HandleFunc("/filters", s.GetFilters()).Methods(http.MethodGet)
	v1.HandleFunc("/filters", s.SetFilters()).Methods(http.MethodPut)
	v1.HandleFunc("/filters", s.ClearFilters()).Methods(http.MethodDelete)
	v1.HandleFunc("/filters/panel", s.ToggleFilterPanel()).Methods(http.MethodPost)

	v1.HandleFunc("/stats", s.GetStats()).Methods(http.MethodGet)
	v1.HandleFunc("/state", s.GetState()).Methods(http.MethodGet)
	v1.HandleFunc("/retry", s.Retry()).Methods(http.MethodPost)
	v1.HandleFunc("/view", s.ChangeView()).Methods(http.MethodPut)

	v1.HandleFunc("/notifications", s.ListNotifications()).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/{id}", s.DismissNotification()).Methods(http.MethodDelete)

	v1.HandleFunc("/auth/session", s.GetSession()).Methods(http.MethodGet)
	v1.HandleFunc("/auth/login", s.Login()).Methods(http.MethodPost)
	v1.HandleFunc("/auth/register", s.Register()).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.Logout()).Methods(http.MethodPost)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(rtr)
}

// Serve starts the http server and is a blocking call
func (s Server) Serve(port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		s.baseLogger.Info("serving...", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil {
			s.baseLogger.Error(err.Error())
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	return srv.Shutdown(ctx)
}

// Healthz is an endpoint that can be used for liveness checks
func (s Server) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := GenericResponse{
			Response: "ok",
		}
		writeResponse(w, http.StatusOK, response)
	}
}
