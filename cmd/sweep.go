package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskdeck/internal/store"
	"taskdeck/internal/sweeper"
)

var flagRetentionDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a one-shot retention sweep and exit",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&flagRetentionDays, "retention-days", 0,
		"override the configured retention window in days")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	retention := cfg.Retention()
	if flagRetentionDays > 0 {
		retention = time.Duration(flagRetentionDays) * 24 * time.Hour
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := sweeper.New(s, retention).Sweep(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "purged %d task(s)\n", purged)
	return nil
}
