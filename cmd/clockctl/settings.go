package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the persisted alarm settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current alarm settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var s schedule.Settings
		if err := call("GET", "/api/settings", nil, &s); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var (
	setWholeHour bool
	setPeriodOn  bool
	setPeriod    string
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change alarm settings; unspecified flags keep their current value",
	Example: `  clockctl settings set --whole-hour=false
  clockctl settings set --period 22:30-06:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var s schedule.Settings
		if err := call("GET", "/api/settings", nil, &s); err != nil {
			return err
		}
		if err := applyFlags(cmd, &s); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
		var out schedule.Settings
		if err := call("POST", "/api/settings", s, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func applyFlags(cmd *cobra.Command, s *schedule.Settings) error {
	f := cmd.Flags()
	if f.Changed("whole-hour") {
		s.WholeHourAlarmEnabled = setWholeHour
	}
	if f.Changed("period-enabled") {
		s.PeriodAlarmEnabled = setPeriodOn
	}
	if f.Changed("period") {
		if _, err := fmt.Sscanf(setPeriod, "%d:%d-%d:%d", &s.StartHour, &s.StartMinute, &s.EndHour, &s.EndMinute); err != nil {
			return fmt.Errorf("period %q: want HH:MM-HH:MM: %w", setPeriod, err)
		}
		if !f.Changed("period-enabled") {
			s.PeriodAlarmEnabled = true
		}
	}
	return nil
}

func init() {
	settingsSetCmd.Flags().BoolVar(&setWholeHour, "whole-hour", true, "ring at minute 0 of every hour")
	settingsSetCmd.Flags().BoolVar(&setPeriodOn, "period-enabled", false, "ring throughout the period window")
	settingsSetCmd.Flags().StringVar(&setPeriod, "period", "", "period window HH:MM-HH:MM (end exclusive; may wrap midnight)")
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
