package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/api/mocks"
	"github.com/kasuboski/moviez/pkg/collection"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/notify"
	"github.com/kasuboski/moviez/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

type response[T any] struct {
	Error    string `json:"error"`
	Response T      `json:"response"`
}

func newServer(t *testing.T, role string) (Server, *mocks.MockClientInterface) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClientInterface(ctrl)
	client.EXPECT().CheckSession(gomock.Any()).Return(api.AuthStatus{Authenticated: true, User: &api.User{Username: "ana", Role: role}}, nil)
	client.EXPECT().ListMovies(gomock.Any()).Return([]movie.Movie{
		{ID: "1", Title: "Heat", Year: movie.Of(1995), Genre: movie.Of("Crime, Drama"), DateAdded: now},
		{ID: "2", Title: "Alien", Year: movie.Of(1979), Genre: movie.Of("Horror, Sci-Fi"), DateAdded: now},
		{ID: "3", Title: "Ran", Year: movie.Of(1985), Genre: movie.Of("Drama, War"), DateAdded: now},
	}, nil)
	client.EXPECT().GetStats(gomock.Any()).Return(stats.Snapshot{TotalMovies: 3}, nil)

	m := manager.New(client,
		manager.WithClock(func() time.Time { return now }),
		manager.WithNotifications(notify.New(notify.WithDuration(0))),
	)
	t.Cleanup(m.Close)
	require.NoError(t, m.Mount(context.Background()))

	return New(zap.NewNop().Sugar(), m), client
}

func serve[T any](t *testing.T, s Server, method, target, body string) (int, response[T]) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, "application/json", rr.Header().Get("content-type"))

	var resp response[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestServer_Healthz(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		s := Server{baseLogger: zap.NewNop().Sugar()}

		req, err := http.NewRequest("GET", "/healthz", nil)
		assert.NoError(t, err)

		rr := httptest.NewRecorder()

		handler := s.Healthz()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		assert.Equal(t, "application/json", rr.Header().Get("content-type"))

		var response GenericResponse
		err = json.Unmarshal(rr.Body.Bytes(), &response)

		assert.NoError(t, err)
		assert.Equal(t, "ok", response.Response)
	})
}

func TestServer_ListMovies(t *testing.T) {
	s, _ := newServer(t, "user")

	t.Run("everything", func(t *testing.T) {
		status, resp := serve[ListMoviesResponse](t, s, http.MethodGet, "/api/v1/movies", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, resp.Response.Movies, 3)
		assert.Equal(t, 3, resp.Response.Meta.TotalItems)
	})

	t.Run("paginated", func(t *testing.T) {
		status, resp := serve[ListMoviesResponse](t, s, http.MethodGet, "/api/v1/movies?page=2&pageSize=2", "")
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, resp.Response.Movies, 1)
		assert.Equal(t, "Ran", resp.Response.Movies[0].Title)
		assert.Equal(t, 2, resp.Response.Meta.TotalPages)
	})

	t.Run("invalid page", func(t *testing.T) {
		status, resp := serve[any](t, s, http.MethodGet, "/api/v1/movies?page=0", "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, resp.Error, "invalid page parameter")
	})
}

func TestServer_GetMovie(t *testing.T) {
	s, _ := newServer(t, "user")

	status, resp := serve[movie.Movie](t, s, http.MethodGet, "/api/v1/movies/2", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alien", resp.Response.Title)

	status, _ = serve[any](t, s, http.MethodGet, "/api/v1/movies/9", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_AddMovie(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		s, client := newServer(t, "admin")
		created := movie.Movie{ID: "4", Title: "Inception", Year: movie.Of(2010), DateAdded: now}
		client.EXPECT().SearchByTitle(gomock.Any(), "Inception", []movie.Source{movie.SourceUHDDisk}).Return(created, nil)
		client.EXPECT().GetStats(gomock.Any()).Return(stats.Snapshot{TotalMovies: 4}, nil)

		status, resp := serve[movie.Movie](t, s, http.MethodPost, "/api/v1/movies", `{"term":"Inception","sources":["UHD Disk"]}`)
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "Inception", resp.Response.Title)
		assert.Equal(t, 4, s.manager.Store().Len())
	})

	t.Run("forbidden for users", func(t *testing.T) {
		s, _ := newServer(t, "user")

		status, resp := serve[any](t, s, http.MethodPost, "/api/v1/movies", `{"term":"Inception"}`)
		assert.Equal(t, http.StatusForbidden, status)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("invalid body", func(t *testing.T) {
		s, _ := newServer(t, "admin")

		status, _ := serve[any](t, s, http.MethodPost, "/api/v1/movies", `{"term":`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("empty term", func(t *testing.T) {
		s, _ := newServer(t, "admin")

		status, _ := serve[any](t, s, http.MethodPost, "/api/v1/movies", `{"term":"  "}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestServer_UpdateMovie(t *testing.T) {
	t.Run("rating out of range", func(t *testing.T) {
		s, _ := newServer(t, "admin")

		status, _ := serve[any](t, s, http.MethodPut, "/api/v1/movies/1/rating", `{"rating":9}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("rated", func(t *testing.T) {
		s, client := newServer(t, "admin")
		client.EXPECT().UpdateMovie(gomock.Any(), movie.ID("1"), movie.RatingPatch(4)).Return(movie.Movie{}, nil)

		status, resp := serve[movie.Movie](t, s, http.MethodPut, "/api/v1/movies/1/rating", `{"rating":4}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, movie.Of(4), resp.Response.PersonalRating)
	})

	t.Run("remote failure", func(t *testing.T) {
		s, client := newServer(t, "admin")
		client.EXPECT().DeleteMovie(gomock.Any(), movie.ID("1")).Return(&api.Error{Status: http.StatusInternalServerError, Message: "boom"})

		status, resp := serve[any](t, s, http.MethodDelete, "/api/v1/movies/1", "")
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, resp.Error, "boom")
		assert.Equal(t, 3, s.manager.Store().Len())
	})
}

func TestServer_Filters(t *testing.T) {
	s, _ := newServer(t, "user")

	status, resp := serve[FiltersResponse](t, s, http.MethodPut, "/api/v1/filters", `{"genre":"drama"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "drama", resp.Response.Criteria.Get("genre"))
	assert.Equal(t, 2, resp.Response.Matches)

	status, _ = serve[any](t, s, http.MethodPut, "/api/v1/filters", `{"studio":"a24"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = serve[FiltersResponse](t, s, http.MethodPost, "/api/v1/filters/panel", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Response.PanelOpen)

	status, resp = serve[FiltersResponse](t, s, http.MethodDelete, "/api/v1/filters", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, resp.Response.Matches)
}

func TestServer_Stats(t *testing.T) {
	s, _ := newServer(t, "user")

	status, resp := serve[manager.Statistics](t, s, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, resp.Response.Snapshot.TotalMovies)
	assert.Equal(t, 3, resp.Response.Insights.TotalMovies)
}

func TestServer_Logout(t *testing.T) {
	s, client := newServer(t, "admin")
	client.EXPECT().Logout(gomock.Any()).Return(nil)

	status, _ := serve[any](t, s, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusOK, status)

	for _, target := range []string{"/api/v1/movies", "/api/v1/movies?all=true", "/api/v1/movies/1", "/api/v1/stats", "/api/v1/filters"} {
		status, resp := serve[any](t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusForbidden, status, target)
		assert.Nil(t, resp.Response, target)
	}

	status, _ = serve[any](t, s, http.MethodPut, "/api/v1/filters", `{"genre":"drama"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, state := serve[StateResponse](t, s, http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, state.Response.Authenticated)
	assert.Equal(t, manager.ViewAuth, state.Response.View)
	assert.Zero(t, s.manager.Store().Len())
}

func TestServer_StateAndView(t *testing.T) {
	s, _ := newServer(t, "user")

	status, resp := serve[StateResponse](t, s, http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, StateResponse{State: "ready", View: manager.ViewCollection, Authenticated: true}, resp.Response)

	status, resp = serve[StateResponse](t, s, http.MethodPut, "/api/v1/view", `{"view":"statistics"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, manager.ViewStatistics, resp.Response.View)

	status, _ = serve[any](t, s, http.MethodPut, "/api/v1/view", `{"view":"settings"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_Notifications(t *testing.T) {
	s, _ := newServer(t, "user")
	n := s.manager.Notifications().Info("hello")

	status, resp := serve[[]notify.Notification](t, s, http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Response, 1)
	assert.Equal(t, "hello", resp.Response[0].Message)

	status, _ = serve[any](t, s, http.MethodDelete, "/api/v1/notifications/"+n.ID, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = serve[any](t, s, http.MethodDelete, "/api/v1/notifications/"+n.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: manager.ErrValidation, want: http.StatusBadRequest},
		{name: "forbidden", err: manager.ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: collection.ErrNotFound, want: http.StatusNotFound},
		{name: "duplicate", err: fmt.Errorf("wrapped: %w", collection.ErrDuplicate), want: http.StatusConflict},
		{name: "closed", err: manager.ErrClosed, want: http.StatusServiceUnavailable},
		{name: "unauthorized", err: &manager.RemoteCallFailure{Op: "list", Err: &api.Error{Status: http.StatusUnauthorized}}, want: http.StatusUnauthorized},
		{name: "conflict", err: &manager.RemoteCallFailure{Op: "add", Err: &api.Error{Status: http.StatusConflict}}, want: http.StatusConflict},
		{name: "server error", err: &manager.RemoteCallFailure{Op: "add", Err: &api.Error{Status: http.StatusInternalServerError}}, want: http.StatusBadGateway},
		{name: "transport", err: &manager.RemoteCallFailure{Op: "add", Err: errors.New("connection refused")}, want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
