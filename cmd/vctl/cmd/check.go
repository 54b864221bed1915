package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/promptvolley/promptvolley/internal/config"
)

var checkConfigDir string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the layered configuration without a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.DefaultPaths(checkConfigDir)...)
		if err != nil {
			return err
		}
		fmt.Printf("config ok: browser=%s pattern=%q window=%dx%d\n",
			cfg.Browser.Binary, cfg.Browser.Pattern, cfg.Window.Width, cfg.Window.Height)
		return nil
	},
}

func init() {
	home, _ := os.UserHomeDir()
	checkCmd.Flags().StringVar(&checkConfigDir, "config-dir", filepath.Join(home, ".config", "promptvolley"), "directory holding the layered config files")
	rootCmd.AddCommand(checkCmd)
}
