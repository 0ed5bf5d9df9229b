package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kasuboski/moviez/pkg/movie"
	"golang.org/x/text/cases"
)

// Key names a filterable field. Keys double as query parameter names on the
// remote filter endpoint.
type Key string

const (
	KeyTitle     Key = "title"
	KeyGenre     Key = "genre"
	KeyYear      Key = "year"
	KeyDirector  Key = "director"
	KeyActor     Key = "actor"
	KeyMinRating Key = "min_rating"
)

// Keys lists every filter key in a stable order
var Keys = []Key{KeyGenre, KeyYear, KeyDirector, KeyActor, KeyTitle, KeyMinRating}

// ParseKey validates a filter key
func ParseKey(s string) (Key, error) {
	for _, k := range Keys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Criteria holds the user chosen filter values. An empty value is inactive.
type Criteria map[Key]string

// Get returns the trimmed value for k
func (c Criteria) Get(k Key) string {
	return strings.TrimSpace(c[k])
}

// With returns a copy of c with k set to value
func (c Criteria) With(k Key, value string) Criteria {
	out := make(Criteria, len(c)+1)
	for key, v := range c {
		out[key] = v
	}
	out[k] = value
	return out
}

// IsActive reports whether at least one value is non-blank
func IsActive(c Criteria) bool {
	for _, k := range Keys {
		if c.Get(k) != "" {
			return true
		}
	}
	return false
}

// Matches decides whether m belongs to the view selected by c. Active fields
// combine with AND; inactive criteria match everything.
func Matches(m movie.Movie, c Criteria) bool {
	for _, k := range Keys {
		value := c.Get(k)
		if value == "" {
			continue
		}

		if !matchField(m, k, value) {
			return false
		}
	}
	return true
}

func matchField(m movie.Movie, k Key, value string) bool {
	switch k {
	case KeyTitle:
		return contains(m.Title, value)
	case KeyGenre:
		return contains(movie.StringValue(m.Genre), value)
	case KeyDirector:
		return contains(movie.StringValue(m.Director), value)
	case KeyActor:
		return contains(movie.StringValue(m.Actors), value)
	case KeyYear:
		want, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		year, ok := movie.Value(m.Year)
		return ok && year == want
	case KeyMinRating:
		threshold, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			// the backend drops a malformed threshold rather than rejecting the request
			return true
		}
		score, ok := m.Score()
		return ok && score >= threshold
	}

	return true
}

// contains is a case-insensitive substring check using Unicode case folding
func contains(field, value string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(field), fold.String(value))
}

// QueryParameters serializes the active fields for the remote filter endpoint
func QueryParameters(c Criteria) url.Values {
	params := url.Values{}
	for _, k := range Keys {
		if v := c.Get(k); v != "" {
			params.Set(string(k), v)
		}
	}
	return params
}

// FromQuery reads criteria back from query parameters. Unknown keys are ignored.
func FromQuery(params url.Values) Criteria {
	c := Criteria{}
	for _, k := range Keys {
		if v := strings.TrimSpace(params.Get(string(k))); v != "" {
			c[k] = v
		}
	}
	return c
}

// Apply returns the movies of records matching c. Inactive criteria return
// records itself without copying.
func Apply(records []movie.Movie, c Criteria) []movie.Movie {
	if !IsActive(c) {
		return records
	}

	out := make([]movie.Movie, 0, len(records))
	for _, m := range records {
		if Matches(m, c) {
			out = append(out, m)
		}
	}
	return out
}
