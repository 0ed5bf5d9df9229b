package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kasuboski/moviez/pkg/manager"
	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/spf13/cobra"
)

var (
	searchByIMDb bool
	sourceNames  []string
	updateNotes  string
	updateTags   string
)

var movieCmd = &cobra.Command{
	Use:   "movie",
	Short: "manage the movie collection",
}

var listMoviesCmd = &cobra.Command{
	Use:   "list",
	Short: "list the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		records, err := m.Movies()
		if err != nil {
			return err
		}
		printMovies(os.Stdout, records)
		return nil
	},
}

var showMovieCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "show a single movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		record, err := m.Movie(movie.ID(args[0]))
		if err != nil {
			return err
		}
		printMovie(os.Stdout, record)
		return nil
	},
}

var addMovieCmd = &cobra.Command{
	Use:   "add <title or imdb id>",
	Short: "search the catalog and add the match to the collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := parseSources(sourceNames)
		if err != nil {
			return err
		}

		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		mode := manager.SearchTitle
		if searchByIMDb {
			mode = manager.SearchIMDb
		}

		return printResult(m.SearchAndAdd(ctx, strings.Join(args, " "), sources, mode))
	},
}

var updateMovieCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "update notes, tags and sources of a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		id := movie.ID(args[0])
		current, err := m.Movie(id)
		if err != nil {
			return err
		}

		notes := movie.StringValue(current.Notes)
		if cmd.Flags().Changed("notes") {
			notes = updateNotes
		}
		tags := movie.StringValue(current.Tags)
		if cmd.Flags().Changed("tags") {
			tags = updateTags
		}
		sources := current.Sources
		if cmd.Flags().Changed("source") {
			sources, err = parseSources(sourceNames)
			if err != nil {
				return err
			}
		}

		return printResult(m.UpdateRecord(ctx, id, movie.DetailsPatch(notes, tags, sources)))
	},
}

var deleteMovieCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "remove a movie from the collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		return m.DeleteRecord(ctx, movie.ID(args[0]))
	},
}

var watchedCmd = &cobra.Command{
	Use:   "watched <id>",
	Short: "toggle the watched flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		return printResult(m.ToggleWatched(ctx, movie.ID(args[0])))
	},
}

var lendCmd = &cobra.Command{
	Use:   "lend <id> [borrower]",
	Short: "mark a movie as lent out",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		return printResult(m.Lend(ctx, movie.ID(args[0]), strings.Join(args[1:], " ")))
	},
}

var returnCmd = &cobra.Command{
	Use:   "return <id>",
	Short: "mark a lent movie as returned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		return printResult(m.Return(ctx, movie.ID(args[0])))
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "set the personal rating",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("rating must be a number: %q", args[1])
		}

		ctx := context.Background()
		m, _ := openSession(ctx)
		defer m.Close()

		return printResult(m.Rate(ctx, movie.ID(args[0]), rating))
	},
}

func printResult(record movie.Movie, err error) error {
	if err != nil {
		return err
	}
	printMovie(os.Stdout, record)
	return nil
}

func init() {
	addMovieCmd.Flags().BoolVar(&searchByIMDb, "imdb", false, "search by IMDb id instead of title")
	addMovieCmd.Flags().StringSliceVar(&sourceNames, "source", nil, "where the movie is owned (Apple TV, UHD Disk)")

	updateMovieCmd.Flags().StringVar(&updateNotes, "notes", "", "free form notes")
	updateMovieCmd.Flags().StringVar(&updateTags, "tags", "", "comma separated tags")
	updateMovieCmd.Flags().StringSliceVar(&sourceNames, "source", nil, "where the movie is owned (Apple TV, UHD Disk)")

	movieCmd.AddCommand(listMoviesCmd, showMovieCmd, addMovieCmd, updateMovieCmd, deleteMovieCmd, watchedCmd, lendCmd, returnCmd, rateCmd)
	rootCmd.AddCommand(movieCmd)
}
