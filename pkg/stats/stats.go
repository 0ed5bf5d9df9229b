package stats

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/goccy/go-json"
	"github.com/kasuboski/moviez/pkg/movie"
)

// ListSize is the length of the latest and top rated lists
const ListSize = 5

// Count is a label and the number of movies carrying it
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Counts is ordered by descending count. It marshals to a JSON object whose key
// order follows the slice order.
type Counts []Count

// Get returns the count for label
func (c Counts) Get(label string) int {
	for _, entry := range c {
		if entry.Label == label {
			return entry.Count
		}
	}
	return 0
}

// Top returns the first n entries
func (c Counts) Top(n int) Counts {
	if n >= len(c) {
		return c
	}
	return c[:max(n, 0)]
}

// Bottom returns the last n entries, least frequent last
func (c Counts) Bottom(n int) Counts {
	if n >= len(c) {
		return c
	}
	return c[len(c)-max(n, 0):]
}

// Labels returns the labels in order
func (c Counts) Labels() []string {
	labels := make([]string, len(c))
	for i, entry := range c {
		labels[i] = entry.Label
	}
	return labels
}

func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", entry.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a label to count object. JSON objects carry no order so
// the result is sorted by descending count, then label.
func (c *Counts) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := make(Counts, 0, len(raw))
	for label, n := range raw {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Label, b.Label)
	})

	*c = out
	return nil
}

// Snapshot is the aggregate view of the whole collection
type Snapshot struct {
	TotalMovies  int    `json:"total_movies"`
	Genres       Counts `json:"genres"`
	Decades      Counts `json:"decades"`
	TopDirectors Counts `json:"top_directors"`
}

// Loan is a movie that is currently lent out
type Loan struct {
	ID     movie.ID `json:"id"`
	Title  string   `json:"title"`
	LentTo string   `json:"lent_to"`
}

// Insights are the derived figures shown next to the snapshot
type Insights struct {
	TotalMovies           int           `json:"total_movies"`
	ScoredMovies          int           `json:"scored_movies"`
	AverageIMDbScore      float64       `json:"average_imdb_score"`
	Watched               int           `json:"watched"`
	Unwatched             int           `json:"unwatched"`
	WatchedPercent        int           `json:"watched_percent"`
	LentOut               int           `json:"lent_out"`
	AtHome                int           `json:"at_home"`
	Loans                 []Loan        `json:"loans"`
	Rated                 int           `json:"rated"`
	AveragePersonalRating float64       `json:"average_personal_rating"`
	Latest                []movie.Movie `json:"latest"`
	TopRated              []movie.Movie `json:"top_rated"`
}

// Report carries both results of a single aggregation pass
type Report struct {
	Snapshot Snapshot
	Insights Insights
}

// Compute aggregates records into a snapshot
func Compute(records []movie.Movie) Snapshot {
	return Analyze(records).Snapshot
}

// ComputeInsights derives the insight figures of records
func ComputeInsights(records []movie.Movie) Insights {
	return Analyze(records).Insights
}

// Analyze walks records once and builds the snapshot and the insights
func Analyze(records []movie.Movie) Report {
	genres := newTally()
	decades := newTally()
	directors := newTally()

	in := Insights{TotalMovies: len(records), Loans: []Loan{}}

	var scoreSum float64
	var ratingSum int
	scored := make([]scoredMovie, 0, len(records))

	for _, m := range records {
		for _, g := range m.Genres() {
			genres.add(g)
		}

		if year, ok := movie.Value(m.Year); ok {
			decades.add(DecadeLabel(year))
		}

		if director, ok := movie.Value(m.Director); ok && director != "" {
			directors.add(director)
		}

		if score, ok := m.Score(); ok {
			scoreSum += score
			scored = append(scored, scoredMovie{movie: m, score: score})
		}

		if m.Watched {
			in.Watched++
		}

		if m.LentOut {
			in.LentOut++
			in.Loans = append(in.Loans, Loan{ID: m.ID, Title: m.Title, LentTo: movie.StringValue(m.LentTo)})
		}

		if r, ok := movie.Value(m.PersonalRating); ok {
			in.Rated++
			ratingSum += r
		}
	}

	in.ScoredMovies = len(scored)
	in.Unwatched = in.TotalMovies - in.Watched
	in.AtHome = in.TotalMovies - in.LentOut
	if in.TotalMovies > 0 {
		in.WatchedPercent = int(math.Round(float64(in.Watched) / float64(in.TotalMovies) * 100))
	}
	if len(scored) > 0 {
		in.AverageIMDbScore = scoreSum / float64(len(scored))
	}
	if in.Rated > 0 {
		in.AveragePersonalRating = float64(ratingSum) / float64(in.Rated)
	}

	in.Latest = latest(records, ListSize)
	in.TopRated = topRated(scored, ListSize)

	return Report{
		Snapshot: Snapshot{
			TotalMovies:  len(records),
			Genres:       genres.counts(),
			Decades:      decades.counts(),
			TopDirectors: directors.counts(),
		},
		Insights: in,
	}
}

// DecadeLabel formats the decade of year, e.g. 1999 becomes "1990s"
func DecadeLabel(year int) string {
	decade := int(math.Floor(float64(year)/10)) * 10
	return fmt.Sprintf("%ds", decade)
}

type scoredMovie struct {
	movie movie.Movie
	score float64
}

func latest(records []movie.Movie, n int) []movie.Movie {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b movie.Movie) int {
		return b.DateAdded.Compare(a.DateAdded)
	})
	return head(sorted, n)
}

func topRated(scored []scoredMovie, n int) []movie.Movie {
	slices.SortStableFunc(scored, func(a, b scoredMovie) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]movie.Movie, 0, n)
	for _, s := range scored {
		if len(out) == n {
			break
		}
		out = append(out, s.movie)
	}
	return out
}

func head(records []movie.Movie, n int) []movie.Movie {
	if len(records) > n {
		return records[:n]
	}
	if records == nil {
		return []movie.Movie{}
	}
	return records
}

// tally counts labels remembering the order they were first seen
type tally struct {
	index   map[string]int
	entries Counts
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(label string) {
	if i, ok := t.index[label]; ok {
		t.entries[i].Count++
		return
	}
	t.index[label] = len(t.entries)
	t.entries = append(t.entries, Count{Label: label, Count: 1})
}

// counts orders by descending count, ties keep first seen order
func (t *tally) counts() Counts {
	out := slices.Clone(t.entries)
	if out == nil {
		out = Counts{}
	}
	slices.SortStableFunc(out, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}
