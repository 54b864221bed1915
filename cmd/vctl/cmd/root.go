package cmd

import (
	"github.com/spf13/cobra"

	"github.com/promptvolley/promptvolley/internal/control/client"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	socketPath string
)

var rootCmd = &cobra.Command{
	Use:   "vctl",
	Short: "Control the promptvolley daemon",
	Long: `vctl drives a running volleyd over its control socket: stage a grid of
browser windows, fire prompts into them in coordinated rounds, and watch
or stop the active session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "control socket path (default: runtime dir)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("vctl {{.Version}}\n")
}

func newClient() (*client.Client, error) {
	return client.New(socketPath)
}
