package cmd

import (
	"context"
	"os"

	"github.com/kasuboski/moviez/pkg/filter"
	"github.com/spf13/cobra"
)

var criteria = map[filter.Key]*string{}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "list the movies matching the given criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, log := openSession(ctx)
		defer m.Close()

		c := filter.Criteria{}
		for k, v := range criteria {
			if cmd.Flags().Changed(string(k)) {
				c[k] = *v
			}
		}
		log.Debugw("filtering", "criteria", c)

		records, err := m.ApplyFilters(c)
		if err != nil {
			return err
		}
		printMovies(os.Stdout, records)
		return nil
	},
}

func init() {
	for _, k := range filter.Keys {
		criteria[k] = filterCmd.Flags().String(string(k), "", "match "+string(k))
	}
	rootCmd.AddCommand(filterCmd)
}
