package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state, staged windows, and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Printf("mode:    %s\n", report.Session.Mode)
		if report.Session.Target != "" {
			fmt.Printf("target:  %s\n", report.Session.Target)
		}
		fmt.Printf("staged:  %d\n", report.Staged)
		fmt.Printf("rounds:  %d\n", report.Session.Rounds)
		fmt.Printf("shots:   %d\n", report.Session.Shots)
		if report.Metrics.Enabled {
			fmt.Printf("skips:   %d\n", report.Metrics.Totals.Skips)
			fmt.Printf("errors:  %d\n", report.Metrics.Totals.InjectionErrors)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the full report as JSON")
	rootCmd.AddCommand(statusCmd)
}
