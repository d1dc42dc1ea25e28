package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle now, bypassing the HTTP API and scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Config.Validate(); err != nil {
			return err
		}

		res := deps.Orch.Run(context.Background(), "manual")
		if res.Skipped {
			return fmt.Errorf("refresh skipped: %s", res.Reason)
		}
		if !res.OK {
			return fmt.Errorf("refresh failed: %s", res.Error)
		}

		fmt.Printf("Refresh succeeded: version=%s generated_at=%s warnings=%d\n",
			res.Version, res.GeneratedAt, len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Println("  warning:", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
