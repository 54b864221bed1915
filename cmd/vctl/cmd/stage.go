package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stageCount int

var stageCmd = &cobra.Command{
	Use:   "stage <url> [url...]",
	Short: "Launch and arrange a grid of browser windows",
	Long: `Stage launches the requested number of windows, assigning URLs round-robin
when more than one is given, waits for them to appear, and arranges them
into a non-overlapping grid. Any running fire session is stopped first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.Stage(cmd.Context(), args, stageCount)
		if err != nil {
			return err
		}
		fmt.Printf("staged %d windows\n", len(result.Handles))
		if result.Shortfall > 0 {
			fmt.Printf("warning: %d requested windows never appeared\n", result.Shortfall)
		}
		return nil
	},
}

func init() {
	stageCmd.Flags().IntVarP(&stageCount, "count", "n", 1, "number of windows to stage")
	rootCmd.AddCommand(stageCmd)
}
