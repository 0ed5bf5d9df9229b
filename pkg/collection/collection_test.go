package collection

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(records []movie.Movie) []string {
	out := make([]string, len(records))
	for i, m := range records {
		out[i] = m.Title
	}
	return out
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.Load([]movie.Movie{
		{ID: "1", Title: "Heat"},
		{ID: "2", Title: "Alien"},
		{ID: "3", Title: "Ran"},
	})
	return s
}

func TestStore_Load(t *testing.T) {
	s := New()
	assert.Empty(t, s.Snapshot())

	s.Load([]movie.Movie{
		{ID: "1", Title: "Heat", IMDbScore: movie.Of("N/A")},
		{ID: "2", Title: "Alien"},
		{ID: "1", Title: "Heat again"},
	})

	assert.Equal(t, []string{"Heat", "Alien"}, titles(s.Snapshot()))
	assert.Nil(t, s.Snapshot()[0].IMDbScore, "records are normalized on the way in")
	assert.Equal(t, 2, s.Len())
}

func TestStore_Insert(t *testing.T) {
	s := seeded(t)

	err := s.Insert(movie.Movie{ID: "4", Title: "Ikiru"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Heat", "Alien", "Ran", "Ikiru"}, titles(s.Snapshot()))

	err = s.Insert(movie.Movie{ID: "2", Title: "Aliens"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 4, s.Len())
}

func TestStore_Patch(t *testing.T) {
	s := seeded(t)

	err := s.Patch("2", movie.RatingPatch(4))
	require.NoError(t, err)

	got, err := s.Get("2")
	require.NoError(t, err)
	assert.Equal(t, movie.Of(4), got.PersonalRating)
	assert.Equal(t, []string{"Heat", "Alien", "Ran"}, titles(s.Snapshot()))

	err = s.Patch("9", movie.RatingPatch(4))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Patch_EmptyIsIdempotent(t *testing.T) {
	s := New()
	s.Load([]movie.Movie{{
		ID:          "1",
		Title:       "Heat",
		Year:        movie.Of(1995),
		Watched:     true,
		DateWatched: movie.Of(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)),
		Sources:     []movie.Source{movie.SourceUHDDisk},
	}})

	before, err := s.Get("1")
	require.NoError(t, err)
	beforeJSON, err := json.Marshal(before)
	require.NoError(t, err)

	require.NoError(t, s.Patch("1", movie.Patch{}))

	after, err := s.Get("1")
	require.NoError(t, err)
	afterJSON, err := json.Marshal(after)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, beforeJSON, afterJSON)
}

func TestStore_Replace(t *testing.T) {
	s := seeded(t)

	err := s.Replace(movie.Movie{ID: "2", Title: "Aliens"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Heat", "Aliens", "Ran"}, titles(s.Snapshot()))

	err = s.Replace(movie.Movie{ID: "7", Title: "Nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Remove(t *testing.T) {
	s := seeded(t)

	require.NoError(t, s.Remove("1"))
	assert.Equal(t, []string{"Alien", "Ran"}, titles(s.Snapshot()))

	got, err := s.Get("3")
	require.NoError(t, err)
	assert.Equal(t, "Ran", got.Title, "index follows the shifted records")

	assert.ErrorIs(t, s.Remove("1"), ErrNotFound)

	_, err = s.Get("1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	s := seeded(t)

	first := s.Snapshot()
	again := s.Snapshot()
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &again[0])

	require.NoError(t, s.Patch("1", movie.RatingPatch(2)))
	require.NoError(t, s.Remove("2"))
	require.NoError(t, s.Insert(movie.Movie{ID: "5", Title: "Ikiru"}))

	assert.Equal(t, []string{"Heat", "Alien", "Ran"}, titles(first))
	assert.Nil(t, first[0].PersonalRating)
}

func TestStore_Subscribe(t *testing.T) {
	s := New()

	var events []Event
	var seen [][]string
	unsubscribe := s.Subscribe(func(e Event) {
		events = append(events, e)
		seen = append(seen, titles(s.Snapshot()))
	})

	s.Load([]movie.Movie{{ID: "1", Title: "Heat"}})
	require.NoError(t, s.Insert(movie.Movie{ID: "2", Title: "Alien"}))
	require.NoError(t, s.Patch("2", movie.RatingPatch(3)))
	require.NoError(t, s.Remove("1"))
	assert.Error(t, s.Remove("1"))

	assert.Equal(t, []Event{
		{Kind: EventLoad, Version: 1},
		{Kind: EventInsert, ID: "2", Version: 2},
		{Kind: EventPatch, ID: "2", Version: 3},
		{Kind: EventRemove, ID: "1", Version: 4},
	}, events)
	assert.Equal(t, [][]string{{"Heat"}, {"Heat", "Alien"}, {"Heat", "Alien"}, {"Alien"}}, seen, "listeners observe the mutated store")
	assert.Equal(t, uint64(4), s.Version())

	unsubscribe()
	s.Load(nil)
	assert.Len(t, events, 4)
}
