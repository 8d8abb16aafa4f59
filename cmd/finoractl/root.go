package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finora/internal/backup"
	"finora/internal/models"
)

var version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finoractl",
		Short: "Offline tools for finora backup files",
		Long: `finoractl works on a finora backup file without a running server.

It classifies descriptions, computes the dashboard for a month, builds
date-ranged reports and exports the invoice calendar as ICS or JSON.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("backup", "", "Path to a backup JSON file")

	root.AddCommand(newClassifyCmd(), newStatsCmd(), newReportCmd(), newCalendarCmd())
	return root
}

// loadBackup reads the file named by --backup.
func loadBackup(cmd *cobra.Command) (backup.File, error) {
	path, _ := cmd.Flags().GetString("backup")
	if path == "" {
		return backup.File{}, fmt.Errorf("--backup is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return backup.File{}, fmt.Errorf("read backup: %w", err)
	}
	return backup.Parse(data)
}

// parseDay reads a YYYY-MM-DD flag, falling back to def when empty.
func parseDay(cmd *cobra.Command, name string, def time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, use YYYY-MM-DD", name, raw)
	}
	return t, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
