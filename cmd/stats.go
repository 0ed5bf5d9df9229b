package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kasuboski/moviez/pkg/stats"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "summarize the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, log := openSession(ctx)
		defer m.Close()

		report, err := m.Statistics()
		if err != nil {
			return err
		}
		if report.Degraded {
			log.Warn("statistics endpoint unavailable, showing figures computed locally")
		}

		printStats(os.Stdout, report.Snapshot, report.Insights)
		return nil
	},
}

func printStats(w io.Writer, s stats.Snapshot, in stats.Insights) {
	fmt.Fprintf(w, "%s movies\n", humanize.Comma(int64(s.TotalMovies)))
	fmt.Fprintf(w, "watched %s of %s (%d%%)\n", humanize.Comma(int64(in.Watched)), humanize.Comma(int64(in.TotalMovies)), in.WatchedPercent)
	fmt.Fprintf(w, "lent out %s, at home %s\n", humanize.Comma(int64(in.LentOut)), humanize.Comma(int64(in.AtHome)))
	if in.ScoredMovies > 0 {
		fmt.Fprintf(w, "average IMDb score %.1f over %s movies\n", in.AverageIMDbScore, humanize.Comma(int64(in.ScoredMovies)))
	}
	if in.Rated > 0 {
		fmt.Fprintf(w, "average personal rating %.1f over %s movies\n", in.AveragePersonalRating, humanize.Comma(int64(in.Rated)))
	}

	printCounts(w, "Genres", s.Genres)
	printCounts(w, "Decades", s.Decades)
	printCounts(w, "Top directors", s.TopDirectors)

	if len(in.Loans) > 0 {
		fmt.Fprintln(w, "\nLoans")
		for _, l := range in.Loans {
			fmt.Fprintf(w, "  %s: %s\n", l.Title, l.LentTo)
		}
	}

	if len(in.Latest) > 0 {
		fmt.Fprintln(w, "\nRecently added")
		for i, mv := range in.Latest {
			fmt.Fprintf(w, "  %s %s (%s)\n", humanize.Ordinal(i+1), mv.Title, humanize.Time(mv.DateAdded))
		}
	}

	if len(in.TopRated) > 0 {
		fmt.Fprintln(w, "\nTop rated")
		for i, mv := range in.TopRated {
			score, _ := mv.Score()
			fmt.Fprintf(w, "  %s %s (%.1f)\n", humanize.Ordinal(i+1), mv.Title, score)
		}
	}
}

func printCounts(w io.Writer, title string, c stats.Counts) {
	if len(c) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, e := range c {
		fmt.Fprintf(w, "  %-24s %s\n", e.Label, humanize.Comma(int64(e.Count)))
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
