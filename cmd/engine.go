package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/kasuboski/moviez/config"
	"github.com/kasuboski/moviez/pkg/api"
	mhttp "github.com/kasuboski/moviez/pkg/http"
	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/notify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// newManager wires the engine against the configured API
func newManager(cfg config.Config) (*manager.Manager, error) {
	serverURL, err := cfg.API.URL()
	if err != nil {
		return nil, err
	}

	sessionClient, err := mhttp.NewSessionClient(cfg.API.Timeout)
	if err != nil {
		return nil, err
	}

	doer := mhttp.NewRateLimitedClient(
		mhttp.WithHTTPClient(sessionClient),
		mhttp.WithMaxRetries(cfg.API.MaxRetries),
		mhttp.WithBaseBackoff(cfg.API.BaseBackoff),
	)

	client, err := api.NewClient(serverURL, api.WithHTTPClient(doer))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	breaker := api.NewBreakerClient(client, api.BreakerSettings{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	})

	return manager.New(breaker,
		manager.WithNotifications(notify.New(notify.WithDuration(cfg.Notifications.Duration))),
		manager.WithRemoteFilter(cfg.API.RemoteFilter),
	), nil
}

// openSession reads the configuration, signs in with the configured credentials
// and loads the collection. Notifications are echoed to stdout.
func openSession(ctx context.Context) (*manager.Manager, *zap.SugaredLogger) {
	m, log := unauthenticated()

	username, password := viper.GetString("auth.username"), viper.GetString("auth.password")
	if username == "" {
		log.Fatal("auth.username and auth.password must be configured")
	}

	_, err := m.Login(ctx, api.Credentials{Username: username, Password: password})
	if err != nil {
		m.Close()
		log.Fatalw("failed to login", "error", err)
	}

	if err := m.View().Err(); err != nil {
		m.Close()
		log.Fatalw("failed to load collection", "error", err)
	}

	return m, log
}

func printNotification(w io.Writer) func(notify.Change) {
	return func(c notify.Change) {
		if c.Dismissed {
			return
		}
		fmt.Fprintf(w, "[%s] %s\n", c.Notification.Level, c.Notification.Message)
	}
}

func printMovies(w io.Writer, records []movie.Movie) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tDIRECTOR\tIMDB\tRATING\tWATCHED\tLENT\tADDED")
	for _, m := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID,
			m.Title,
			year(m),
			dash(movie.StringValue(m.Director)),
			dash(movie.StringValue(m.IMDbScore)),
			stars(m),
			watched(m),
			lent(m),
			humanize.Time(m.DateAdded),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s movies\n", humanize.Comma(int64(len(records))))
}

func printMovie(w io.Writer, m movie.Movie) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k, v string) { fmt.Fprintf(tw, "%s\t%s\n", k, v) }

	row("ID", m.ID.String())
	row("Title", m.Title)
	row("Year", year(m))
	row("Genre", dash(movie.StringValue(m.Genre)))
	row("Director", dash(movie.StringValue(m.Director)))
	row("Actors", dash(movie.StringValue(m.Actors)))
	row("Runtime", dash(movie.StringValue(m.Runtime)))
	row("IMDb", dash(movie.StringValue(m.IMDbScore)))
	row("Rotten Tomatoes", dash(movie.StringValue(m.RottenTomatoesScore)))
	row("Sources", dash(joinSources(m.Sources)))
	row("Rating", stars(m))
	row("Watched", watched(m))
	row("Lent", lent(m))
	row("Tags", dash(movie.StringValue(m.Tags)))
	row("Notes", dash(movie.StringValue(m.Notes)))
	row("Added", humanize.Time(m.DateAdded))
	tw.Flush()
}

func year(m movie.Movie) string {
	if y, ok := movie.Value(m.Year); ok {
		return fmt.Sprint(y)
	}
	return "-"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func stars(m movie.Movie) string {
	r, ok := movie.Value(m.PersonalRating)
	if !ok {
		return "-"
	}
	return strings.Repeat("★", r) + strings.Repeat("☆", movie.MaxRating-r)
}

func watched(m movie.Movie) string {
	if !m.Watched {
		return "no"
	}
	if d, ok := movie.Value(m.DateWatched); ok {
		return humanize.Time(d)
	}
	return "yes"
}

func lent(m movie.Movie) string {
	if !m.LentOut {
		return "-"
	}
	to := movie.StringValue(m.LentTo)
	if d, ok := movie.Value(m.DateLent); ok {
		return fmt.Sprintf("%s (%s)", to, humanize.Time(d))
	}
	return to
}

func joinSources(sources []movie.Source) string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}

func parseSources(values []string) ([]movie.Source, error) {
	var out []movie.Source
	var errs []error
	for _, v := range values {
		s := movie.Source(strings.TrimSpace(v))
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("unknown source %q, want one of %s", v, joinSources(movie.Sources)))
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}
