package movie

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/oapi-codegen/nullable"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrInvalidPatch = errors.New("invalid movie update")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Patch is a partial update of the personal fields of a movie. Unspecified
// fields are left alone, null fields are cleared.
type Patch struct {
	PersonalRating nullable.Nullable[int]
	Watched        nullable.Nullable[bool]
	DateWatched    nullable.Nullable[time.Time]
	LentOut        nullable.Nullable[bool]
	LentTo         nullable.Nullable[string]
	DateLent       nullable.Nullable[time.Time]
	Notes          nullable.Nullable[string]
	Tags           nullable.Nullable[string]
	Sources        nullable.Nullable[[]Source]
}

// IsEmpty reports whether the patch specifies nothing
func (p Patch) IsEmpty() bool {
	return !p.PersonalRating.IsSpecified() &&
		!p.Watched.IsSpecified() &&
		!p.DateWatched.IsSpecified() &&
		!p.LentOut.IsSpecified() &&
		!p.LentTo.IsSpecified() &&
		!p.DateLent.IsSpecified() &&
		!p.Notes.IsSpecified() &&
		!p.Tags.IsSpecified() &&
		!p.Sources.IsSpecified()
}

// Apply merges the specified fields of p into a copy of m
func (m Movie) Apply(p Patch) Movie {
	merge(&m.PersonalRating, p.PersonalRating)
	merge(&m.DateWatched, p.DateWatched)
	merge(&m.LentTo, p.LentTo)
	merge(&m.DateLent, p.DateLent)
	merge(&m.Notes, p.Notes)
	merge(&m.Tags, p.Tags)

	if p.Watched.IsSpecified() {
		m.Watched, _ = Value(p.Watched)
	}
	if p.LentOut.IsSpecified() {
		m.LentOut, _ = Value(p.LentOut)
	}
	if p.Sources.IsSpecified() {
		sources, _ := Value(p.Sources)
		m.Sources = append([]Source(nil), sources...)
	}

	return m
}

func merge[T any](dst *nullable.Nullable[T], src nullable.Nullable[T]) {
	if !src.IsSpecified() {
		return
	}

	v, ok := Value(src)
	if !ok {
		*dst = nil
		return
	}
	*dst = Of(v)
}

// Validate checks the patch on its own: ratings are in range, sources are known
// and the watched and lending fields travel together.
func (p Patch) Validate() error {
	var errs []error

	if r, ok := Value(p.PersonalRating); ok {
		if err := validate.Var(r, fmt.Sprintf("min=%d,max=%d", MinRating, MaxRating)); err != nil {
			errs = append(errs, fmt.Errorf("personal_rating must be between %d and %d", MinRating, MaxRating))
		}
	}

	if sources, ok := Value(p.Sources); ok {
		for _, s := range sources {
			if !s.Valid() {
				errs = append(errs, fmt.Errorf("unknown source %q", s))
			}
		}
	}

	_, hasDateWatched := Value(p.DateWatched)
	if watched, ok := Value(p.Watched); ok {
		if watched != hasDateWatched {
			errs = append(errs, errors.New("watched and date_watched must be set together"))
		}
	} else if p.DateWatched.IsSpecified() {
		errs = append(errs, errors.New("date_watched requires watched"))
	}

	lentTo, hasLentTo := Value(p.LentTo)
	_, hasDateLent := Value(p.DateLent)
	if lent, ok := Value(p.LentOut); ok {
		if lent && (!hasLentTo || strings.TrimSpace(lentTo) == "" || !hasDateLent) {
			errs = append(errs, errors.New("lending requires lent_to and date_lent"))
		}
		if !lent && (hasLentTo || hasDateLent) {
			errs = append(errs, errors.New("returning clears lent_to and date_lent"))
		}
	} else if p.LentTo.IsSpecified() || p.DateLent.IsSpecified() {
		errs = append(errs, errors.New("lent_to and date_lent require lent_out"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, errors.Join(errs...))
	}
	return nil
}

// WatchedPatch flips the watched flag of m, stamping or clearing the watch date
func WatchedPatch(m Movie, now time.Time) Patch {
	p := Patch{Watched: Of(!m.Watched)}
	if m.Watched {
		p.DateWatched = nullable.NewNullNullable[time.Time]()
	} else {
		p.DateWatched = Of(now)
	}
	return p
}

// LendPatch marks a movie as lent to someone. A blank borrower is recorded as unknown.
func LendPatch(to string, now time.Time) Patch {
	to = strings.TrimSpace(to)
	if to == "" {
		to = UnknownBorrower
	}

	return Patch{
		LentOut:  Of(true),
		LentTo:   Of(to),
		DateLent: Of(now),
	}
}

// ReturnPatch marks a lent movie as back home
func ReturnPatch() Patch {
	return Patch{
		LentOut:  Of(false),
		LentTo:   nullable.NewNullNullable[string](),
		DateLent: nullable.NewNullNullable[time.Time](),
	}
}

// RatingPatch sets the personal rating
func RatingPatch(rating int) Patch {
	return Patch{PersonalRating: Of(rating)}
}

// DetailsPatch replaces the notes, tags and sources of a movie
func DetailsPatch(notes, tags string, sources []Source) Patch {
	if sources == nil {
		sources = []Source{}
	}

	return Patch{
		Notes:   Of(notes),
		Tags:    Of(tags),
		Sources: Of(sources),
	}
}

// MarshalJSON emits only the specified fields, with null for cleared ones
func (p Patch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)

	putField(body, "personal_rating", p.PersonalRating, func(v int) any { return v })
	putField(body, "watched", p.Watched, func(v bool) any { return v })
	putField(body, "date_watched", p.DateWatched, func(v time.Time) any { return Timestamp(v) })
	putField(body, "lent_out", p.LentOut, func(v bool) any { return v })
	putField(body, "lent_to", p.LentTo, func(v string) any { return v })
	putField(body, "date_lent", p.DateLent, func(v time.Time) any { return Timestamp(v) })
	putField(body, "notes", p.Notes, func(v string) any { return v })
	putField(body, "tags", p.Tags, func(v string) any { return v })
	putField(body, "sources", p.Sources, func(v []Source) any { return v })

	return json.Marshal(body)
}

func putField[T any](body map[string]any, key string, n nullable.Nullable[T], conv func(T) any) {
	if !n.IsSpecified() {
		return
	}

	v, ok := Value(n)
	if !ok {
		body[key] = nil
		return
	}
	body[key] = conv(v)
}

// UnmarshalJSON reads a partial update. Keys that are not patchable are ignored.
func (p *Patch) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*p = Patch{}
	var errs []error
	errs = append(errs,
		readField(fields, "personal_rating", &p.PersonalRating),
		readField(fields, "watched", &p.Watched),
		readTimestampField(fields, "date_watched", &p.DateWatched),
		readField(fields, "lent_out", &p.LentOut),
		readField(fields, "lent_to", &p.LentTo),
		readTimestampField(fields, "date_lent", &p.DateLent),
		readField(fields, "notes", &p.Notes),
		readField(fields, "tags", &p.Tags),
		readField(fields, "sources", &p.Sources),
	)

	return errors.Join(errs...)
}

func readField[T any](fields map[string]json.RawMessage, key string, dst *nullable.Nullable[T]) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	if string(raw) == "null" {
		*dst = nullable.NewNullNullable[T]()
		return nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Of(v)
	return nil
}

func readTimestampField(fields map[string]json.RawMessage, key string, dst *nullable.Nullable[time.Time]) error {
	var ts nullable.Nullable[Timestamp]
	if err := readField(fields, key, &ts); err != nil {
		return err
	}

	if !ts.IsSpecified() {
		return nil
	}
	if v, ok := Value(ts); ok {
		*dst = Of(time.Time(v))
		return nil
	}
	*dst = nullable.NewNullNullable[time.Time]()
	return nil
}

// Validate checks the invariants of a stored movie
func (m Movie) Validate() error {
	var errs []error

	if m.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if err := validate.Var(m.Title, "required"); err != nil {
		errs = append(errs, errors.New("title is required"))
	}
	if r, ok := Value(m.PersonalRating); ok && (r < MinRating || r > MaxRating) {
		errs = append(errs, fmt.Errorf("personal_rating must be between %d and %d", MinRating, MaxRating))
	}
	if _, ok := Value(m.DateWatched); ok != m.Watched {
		errs = append(errs, errors.New("date_watched must be present exactly when watched"))
	}
	_, hasLentTo := Value(m.LentTo)
	_, hasDateLent := Value(m.DateLent)
	if hasLentTo != m.LentOut || hasDateLent != m.LentOut {
		errs = append(errs, errors.New("lent_to and date_lent must be present exactly when lent out"))
	}
	for _, s := range m.Sources {
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("unknown source %q", s))
		}
	}

	return errors.Join(errs...)
}
