package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"finora/internal/calendar"
)

var errRange = errors.New("--to must not be before --from")

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export the invoice calendar derived from a backup",
		Example: `  finoractl calendar --backup finora-backup.json > finora.ics
  finoractl calendar --backup finora-backup.json --format json --lead-days 5`,
		RunE: runCalendar,
	}
	cmd.Flags().String("format", "ics", "ics or json")
	cmd.Flags().Int("lead-days", calendar.DefaultOptions().LeadDays, "Days before the due date a reminder fires")
	cmd.Flags().Int("reminder-hour", calendar.DefaultOptions().ReminderHour, "Hour of day reminders fire")
	cmd.Flags().String("timezone", "UTC", "IANA timezone for reminder times")
	return cmd
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	f, err := loadBackup(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	leadDays, _ := cmd.Flags().GetInt("lead-days")
	hour, _ := cmd.Flags().GetInt("reminder-hour")
	tz, _ := cmd.Flags().GetString("timezone")

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid --timezone: %w", err)
	}
	if leadDays < 0 || hour < 0 || hour > 23 {
		return fmt.Errorf("--lead-days must be >= 0 and --reminder-hour within 0-23")
	}

	evts, reminders := calendar.Derive(f.Invoices, f.Clients, calendar.Options{LeadDays: leadDays, ReminderHour: hour, Location: loc})
	switch format {
	case "ics":
		_, err = io.WriteString(cmd.OutOrStdout(), calendar.ExportICS(evts))
		return err
	case "json":
		data, err := calendar.ExportJSON(evts, reminders)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		return fmt.Errorf("invalid --format %q, use ics or json", format)
	}
}
