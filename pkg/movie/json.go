package movie

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oapi-codegen/nullable"
)

// timestampLayouts are accepted when decoding dates. The backend serializes
// naive datetimes without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// movieJSON is the wire shape of a movie
type movieJSON struct {
	ID                  ID         `json:"id"`
	Title               string     `json:"title"`
	Year                *flexYear  `json:"year"`
	Genre               *string    `json:"genre"`
	Director            *string    `json:"director"`
	Actors              *string    `json:"actors"`
	Plot                *string    `json:"plot"`
	PosterURL           *string    `json:"poster_url"`
	Runtime             *string    `json:"runtime"`
	IMDbScore           *string    `json:"imdb_score"`
	RottenTomatoesScore *string    `json:"rotten_tomatoes_score"`
	MetacriticScore     *string    `json:"metacritic_score"`
	Sources             []Source   `json:"sources"`
	PersonalRating      *float64   `json:"personal_rating"`
	Watched             bool       `json:"watched"`
	DateWatched         *Timestamp `json:"date_watched"`
	LentOut             bool       `json:"lent_out"`
	LentTo              *string    `json:"lent_to"`
	DateLent            *Timestamp `json:"date_lent"`
	Notes               *string    `json:"notes"`
	Tags                *string    `json:"tags"`
	DateAdded           *Timestamp `json:"date_added"`
}

func (m Movie) MarshalJSON() ([]byte, error) {
	out := movieJSON{
		ID:                  m.ID,
		Title:               m.Title,
		Genre:               ptr(m.Genre),
		Director:            ptr(m.Director),
		Actors:              ptr(m.Actors),
		Plot:                ptr(m.Plot),
		PosterURL:           ptr(m.PosterURL),
		Runtime:             ptr(m.Runtime),
		IMDbScore:           ptr(m.IMDbScore),
		RottenTomatoesScore: ptr(m.RottenTomatoesScore),
		MetacriticScore:     ptr(m.MetacriticScore),
		Sources:             m.Sources,
		Watched:             m.Watched,
		DateWatched:         timestampPtr(m.DateWatched),
		LentOut:             m.LentOut,
		LentTo:              ptr(m.LentTo),
		DateLent:            timestampPtr(m.DateLent),
		Notes:               ptr(m.Notes),
		Tags:                ptr(m.Tags),
	}

	if out.Sources == nil {
		out.Sources = []Source{}
	}
	if y, ok := Value(m.Year); ok {
		fy := flexYear(y)
		out.Year = &fy
	}
	if r, ok := Value(m.PersonalRating); ok {
		f := float64(r)
		out.PersonalRating = &f
	}
	if !m.DateAdded.IsZero() {
		ts := Timestamp(m.DateAdded)
		out.DateAdded = &ts
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire shape. Null and missing attributes become absent;
// sentinel handling is left to Normalize.
func (m *Movie) UnmarshalJSON(b []byte) error {
	var in movieJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*m = Movie{
		ID:                  in.ID,
		Title:               in.Title,
		Genre:               fromPtr(in.Genre),
		Director:            fromPtr(in.Director),
		Actors:              fromPtr(in.Actors),
		Plot:                fromPtr(in.Plot),
		PosterURL:           fromPtr(in.PosterURL),
		Runtime:             fromPtr(in.Runtime),
		IMDbScore:           fromPtr(in.IMDbScore),
		RottenTomatoesScore: fromPtr(in.RottenTomatoesScore),
		MetacriticScore:     fromPtr(in.MetacriticScore),
		Sources:             in.Sources,
		Watched:             in.Watched,
		DateWatched:         fromTimestamp(in.DateWatched),
		LentOut:             in.LentOut,
		LentTo:              fromPtr(in.LentTo),
		DateLent:            fromTimestamp(in.DateLent),
		Notes:               fromPtr(in.Notes),
		Tags:                fromPtr(in.Tags),
	}

	if in.Year != nil && *in.Year != 0 {
		m.Year = Of(int(*in.Year))
	}
	if in.PersonalRating != nil {
		m.PersonalRating = Of(int(math.Round(*in.PersonalRating)))
	}
	if in.DateAdded != nil {
		m.DateAdded = time.Time(*in.DateAdded)
	}

	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts numeric and string identifiers
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid movie id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// flexYear decodes a release year sent either as a number or as a string
// such as "1999" or "2010–2012". Unparseable years decode as zero.
type flexYear int

func (y flexYear) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(y))), nil
}

func (y *flexYear) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*y = 0
		return nil
	}

	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}

	*y = flexYear(parseYear(raw))
	return nil
}

// parseYear reads the leading four digit year of s, returning zero when there is none
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}

	year, err := strconv.Atoi(s[:4])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// Timestamp is a time that tolerates the zone-less layouts the backend emits
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// ParseTimestamp parses s with each accepted layout in turn. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func ptr[T any](n nullable.Nullable[T]) *T {
	v, ok := Value(n)
	if !ok {
		return nil
	}
	return &v
}

func fromPtr[T any](p *T) nullable.Nullable[T] {
	if p == nil {
		return nil
	}
	return Of(*p)
}

func timestampPtr(n nullable.Nullable[time.Time]) *Timestamp {
	v, ok := Value(n)
	if !ok {
		return nil
	}
	ts := Timestamp(v)
	return &ts
}

func fromTimestamp(ts *Timestamp) nullable.Nullable[time.Time] {
	if ts == nil {
		return nil
	}
	return Of(time.Time(*ts))
}
