package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/stats"
)

// ClientInterface is the remote collection and authentication API
type ClientInterface interface {
	ListMovies(ctx context.Context) ([]movie.Movie, error)
	GetStats(ctx context.Context) (stats.Snapshot, error)
	FilterMovies(ctx context.Context, query url.Values) ([]movie.Movie, error)
	SearchByTitle(ctx context.Context, title string, sources []movie.Source) (movie.Movie, error)
	SearchByIMDb(ctx context.Context, imdbID string, sources []movie.Source) (movie.Movie, error)
	UpdateMovie(ctx context.Context, id movie.ID, patch movie.Patch) (movie.Movie, error)
	DeleteMovie(ctx context.Context, id movie.ID) error

	CheckSession(ctx context.Context) (AuthStatus, error)
	Login(ctx context.Context, credentials Credentials) (User, error)
	Register(ctx context.Context, profile Profile) error
	Logout(ctx context.Context) error
}

// User is the account attached to a session
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// AuthStatus is the answer of a session check
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Profile is a registration request
type Profile struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// Error is a non-2xx answer from the API. Message is the payload's error string
// verbatim, or the status text when the payload has none.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return &Error{Status: status, Message: message}
}

// StatusCode returns the status of an *Error in err's chain or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err means the session is missing or expired
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Message returns the API's message for err, or fallback when err did not come from the API
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return fallback
}
