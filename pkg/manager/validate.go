package manager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/session"
)

type searchRequest struct {
	Term    string         `validate:"required"`
	Mode    SearchMode     `validate:"oneof=title imdb"`
	Sources []movie.Source `validate:"dive,source"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or a nil func
	_ = v.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		return movie.Source(fl.Field().String()).Valid()
	})
	return v
}

// validateSearch refuses a search before any network call. Failures are
// reported with the messages the search form shows.
func (m *Manager) validateSearch(req searchRequest) error {
	err := m.validate.Struct(req)
	if err == nil {
		if req.Mode == SearchIMDb && !imdbIDPattern.MatchString(req.Term) {
			return m.reject("Please enter a valid IMDB ID (e.g., tt0816692 or 0816692)", fmt.Errorf("%q does not match %s", req.Term, imdbIDPattern))
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return m.reject("Invalid search", err)
	}

	switch f := verrs[0]; f.Field() {
	case "Term":
		if req.Mode == SearchIMDb {
			return m.reject("Please enter an IMDB ID", err)
		}
		return m.reject("Please enter a movie title", err)
	case "Mode":
		return m.reject(fmt.Sprintf("Unknown search mode %q", req.Mode), err)
	default:
		return m.reject(fmt.Sprintf("Unknown source %q", f.Value()), err)
	}
}

func (m *Manager) reject(message string, cause error) error {
	m.notes.Error(message)
	return fmt.Errorf("%w: %s: %w", ErrValidation, message, cause)
}

// validationMessage renders a validation failure for a notification
func validationMessage(err error) string {
	switch {
	case errors.Is(err, movie.ErrInvalidPatch):
		return "Invalid update: " + strings.TrimPrefix(unwrapDetail(err), movie.ErrInvalidPatch.Error()+": ")
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Please check your username, email and password"
	default:
		return unwrapDetail(err)
	}
}

func unwrapDetail(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
