package movie

import (
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"
)

// NotAvailable is the sentinel the metadata providers use for a missing value
const NotAvailable = "N/A"

// UnknownBorrower is recorded when a movie is lent without naming who has it
const UnknownBorrower = "Unknown"

// ID identifies a movie in the collection. The backend hands out integers but
// the client treats identifiers as opaque strings.
type ID string

func (id ID) String() string {
	return string(id)
}

// Source is where a copy of the movie is owned
type Source string

const (
	SourceAppleTV Source = "Apple TV"
	SourceUHDDisk Source = "UHD Disk"
)

// Sources lists every known source
var Sources = []Source{SourceAppleTV, SourceUHDDisk}

func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// Movie is a single entry of the collection: catalog metadata plus the owner's
// personal management fields. Optional attributes are unspecified when absent.
type Movie struct {
	ID                  ID
	Title               string
	Year                nullable.Nullable[int]
	Genre               nullable.Nullable[string]
	Director            nullable.Nullable[string]
	Actors              nullable.Nullable[string]
	Plot                nullable.Nullable[string]
	PosterURL           nullable.Nullable[string]
	Runtime             nullable.Nullable[string]
	IMDbScore           nullable.Nullable[string]
	RottenTomatoesScore nullable.Nullable[string]
	MetacriticScore     nullable.Nullable[string]
	Sources             []Source
	PersonalRating      nullable.Nullable[int]
	Watched             bool
	DateWatched         nullable.Nullable[time.Time]
	LentOut             bool
	LentTo              nullable.Nullable[string]
	DateLent            nullable.Nullable[time.Time]
	Notes               nullable.Nullable[string]
	Tags                nullable.Nullable[string]
	DateAdded           time.Time
}

// Value returns the value held by n and whether one is present
func Value[T any](n nullable.Nullable[T]) (T, bool) {
	v, err := n.Get()
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// Of wraps a present value
func Of[T any](v T) nullable.Nullable[T] {
	return nullable.NewNullableWithValue(v)
}

// StringValue returns the string held by n or the empty string
func StringValue(n nullable.Nullable[string]) string {
	v, _ := Value(n)
	return v
}

// Score parses the IMDb score as a decimal. Absent or non numeric scores report false.
func (m Movie) Score() (float64, bool) {
	s, ok := Value(m.IMDbScore)
	if !ok {
		return 0, false
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return score, true
}

// Genres splits the comma separated genre field into trimmed labels
func (m Movie) Genres() []string {
	return splitList(StringValue(m.Genre))
}

// TagList splits the comma separated tags into trimmed labels
func (m Movie) TagList() []string {
	return splitList(StringValue(m.Tags))
}

// HasSource reports whether the movie is owned on s
func (m Movie) HasSource(s Source) bool {
	for _, have := range m.Sources {
		if have == s {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Normalize converts provider sentinels into absent values and repairs the
// watched and lending invariants. The returned movie never carries "N/A" and
// satisfies: DateWatched present iff Watched, LentTo and DateLent present iff LentOut.
func Normalize(m Movie) Movie {
	for _, field := range []*nullable.Nullable[string]{
		&m.Genre, &m.Director, &m.Actors, &m.Plot, &m.PosterURL, &m.Runtime,
		&m.IMDbScore, &m.RottenTomatoesScore, &m.MetacriticScore,
		&m.LentTo, &m.Notes, &m.Tags,
	} {
		*field = normalizeString(*field)
	}

	m.Year = normalizeAbsent(m.Year)
	m.PersonalRating = normalizeAbsent(m.PersonalRating)
	if r, ok := Value(m.PersonalRating); ok && (r < MinRating || r > MaxRating) {
		m.PersonalRating = nil
	}

	m.DateWatched = normalizeAbsent(m.DateWatched)
	if !m.Watched {
		m.DateWatched = nil
	} else if _, ok := Value(m.DateWatched); !ok {
		m.DateWatched = Of(m.DateAdded)
	}

	m.DateLent = normalizeAbsent(m.DateLent)
	if !m.LentOut {
		m.LentTo = nil
		m.DateLent = nil
	} else {
		if _, ok := Value(m.LentTo); !ok {
			m.LentTo = Of(UnknownBorrower)
		}
		if _, ok := Value(m.DateLent); !ok {
			m.DateLent = Of(m.DateAdded)
		}
	}

	if len(m.Sources) == 0 {
		m.Sources = nil
	}

	return m
}

func normalizeString(n nullable.Nullable[string]) nullable.Nullable[string] {
	v, ok := Value(n)
	if !ok || strings.TrimSpace(v) == NotAvailable {
		return nil
	}
	return n
}

func normalizeAbsent[T any](n nullable.Nullable[T]) nullable.Nullable[T] {
	if _, ok := Value(n); !ok {
		return nil
	}
	return n
}
