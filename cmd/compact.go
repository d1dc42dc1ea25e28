package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the local database to reclaim disk space",
	Long: `Rewrites the bbolt database file to a fresh copy, reclaiming free
pages left behind by keys that each refresh overwrites. Safe to run while the server is
stopped; do not run it against a database a running 'serve' process
has open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compacting store: %w", err)
		}

		fmt.Printf("Compacted %s\n", deps.Store.Path())
		fmt.Printf("  %s -> %s\n", humanBytes(before), humanBytes(after))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
