package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

func newSetCmd() *cobra.Command {
	c := &cobra.Command{Use: "set"}
	c.Flags().BoolVar(&setWholeHour, "whole-hour", true, "")
	c.Flags().BoolVar(&setPeriodOn, "period-enabled", false, "")
	c.Flags().StringVar(&setPeriod, "period", "", "")
	return c
}

func TestApplyFlagsPeriod(t *testing.T) {
	c := newSetCmd()
	require.NoError(t, c.Flags().Parse([]string{"--period", "22:30-06:05", "--whole-hour=false"}))

	s := schedule.DefaultSettings()
	require.NoError(t, applyFlags(c, &s))
	assert.True(t, s.PeriodAlarmEnabled)
	assert.False(t, s.WholeHourAlarmEnabled)
	assert.Equal(t, 22, s.StartHour)
	assert.Equal(t, 30, s.StartMinute)
	assert.Equal(t, 6, s.EndHour)
	assert.Equal(t, 5, s.EndMinute)
}

func TestApplyFlagsUntouched(t *testing.T) {
	c := newSetCmd()
	require.NoError(t, c.Flags().Parse(nil))

	s := schedule.DefaultSettings()
	require.NoError(t, applyFlags(c, &s))
	assert.Equal(t, schedule.DefaultSettings(), s)
}

func TestApplyFlagsBadPeriod(t *testing.T) {
	c := newSetCmd()
	require.NoError(t, c.Flags().Parse([]string{"--period", "late"}))
	s := schedule.DefaultSettings()
	assert.Error(t, applyFlags(c, &s))
}
