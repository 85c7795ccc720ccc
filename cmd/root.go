// Package cmd implements the taskdeck CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskdeck/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "taskdeck",
	Short:         "Personal task manager with trash retention and drag-to-reorder",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}
