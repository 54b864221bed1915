package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	fireAuto   bool
	fireRounds int
	fireTarget string
)

var fireCmd = &cobra.Command{
	Use:   "fire <prompt>",
	Short: "Fire a prompt into every staged window",
	Long: `Fire injects the prompt into each staged window in turn. The default is a
single round (semi); --auto keeps firing rounds until stopped or the
round limit is reached. Starting a new session replaces the running one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		mode := "semi"
		if fireAuto {
			mode = "auto"
		}
		result, err := c.Fire(cmd.Context(), mode, fireTarget, args[0], fireRounds)
		if err != nil {
			return err
		}
		fmt.Printf("session %s started (%s)\n", result.SessionID, mode)
		return nil
	},
}

func init() {
	fireCmd.Flags().BoolVar(&fireAuto, "auto", false, "keep firing rounds until stopped")
	fireCmd.Flags().IntVar(&fireRounds, "rounds", 0, "round limit for --auto (0 = unbounded)")
	fireCmd.Flags().StringVar(&fireTarget, "target", "", "target URL recorded in the history ledger")
	_ = fireCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(fireCmd)
}
