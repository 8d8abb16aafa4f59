package main

import (
	"time"

	"github.com/spf13/cobra"

	"finora/internal/backup"
	"finora/internal/stats"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Compute the dashboard for the month containing --date",
		Example: `  finoractl stats --backup finora-backup.json --date 2024-03-15`,
		RunE:    runStats,
	}
	cmd.Flags().String("date", "", "Any day of the month to summarise (format: YYYY-MM-DD, default: today)")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	f, err := loadBackup(cmd)
	if err != nil {
		return err
	}
	day, err := parseDay(cmd, "date", time.Now().UTC())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stats.Aggregate(f.Incomes, f.Expenses, f.Clients, f.Invoices, day))
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Build a report for an inclusive date range",
		Example: `  finoractl report --backup finora-backup.json --from 2024-01-01 --to 2024-03-31`,
		RunE:    runReport,
	}
	cmd.Flags().String("from", "", "First day (format: YYYY-MM-DD, default: first day of this month)")
	cmd.Flags().String("to", "", "Last day (format: YYYY-MM-DD, default: today)")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	f, err := loadBackup(cmd)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	from, err := parseDay(cmd, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return err
	}
	to, err := parseDay(cmd, "to", now)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return errRange
	}
	return writeJSON(cmd.OutOrStdout(), backup.BuildReport(f, from, to, backup.AllSections()))
}
