package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent refresh run history and current health",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		meta := deps.Store.ReadRunMeta()
		version, err := deps.Store.ReadLatestVersion()
		if err != nil {
			return err
		}

		fmt.Println("Latest version:      ", nonEmpty(version, "(none)"))
		fmt.Println("Last updated:        ", nonEmpty(meta.LastUpdated, "(never)"))
		fmt.Println("Last attempt:        ", nonEmpty(meta.LastAttempt, "(never)"))
		fmt.Println("Last success:        ", nonEmpty(meta.LastSuccess, "(never)"))
		fmt.Println("Consecutive failures:", meta.ConsecutiveFailure)
		if meta.LastError != "" {
			fmt.Println("Last error:          ", meta.LastError)
		}

		rows, bytes, err := deps.Store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Database:             %s (%d rows, %s)\n", deps.Store.Path(), rows, humanBytes(bytes))
		fmt.Println()

		runs, err := deps.Store.ReadRunLog()
		if err != nil {
			return err
		}
		if len(runs) > statusLimit {
			runs = runs[:statusLimit]
		}

		tw := tablewriter.NewWriter(os.Stdout)
		tw.SetHeader([]string{"Time", "Trigger", "OK", "Duration", "Warnings", "Error"})
		tw.SetBorder(true)
		tw.SetRowLine(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAutoWrapText(false)

		for _, r := range runs {
			status := "OK"
			if r.Skipped {
				status = "SKIPPED"
			} else if !r.OK {
				status = "FAILED"
			}
			tw.Append([]string{
				r.Timestamp.Format("2006-01-02T15:04:05Z"),
				r.Trigger,
				status,
				fmt.Sprintf("%dms", r.DurationMs),
				fmt.Sprintf("%d", r.WarningsCount),
				errOrReason(r.Error, r.Reason),
			})
		}
		tw.Render()
		return nil
	},
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func errOrReason(err, reason string) string {
	if err != "" {
		return err
	}
	return reason
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "max number of run-log rows to show")
}
