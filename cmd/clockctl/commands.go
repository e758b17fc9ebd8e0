package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/coreman2200/usagiclock/internal/ws"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print player status and server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var out map[string]any
		if err := call("GET", "/health", nil, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func controlCmd(use, short string, build func(args []string) (ws.Command, error), args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			c, err := build(a)
			if err != nil {
				return err
			}
			var st ws.Status
			if err := call("POST", "/api/control", c, &st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: frame=%d index=%d mode=%s paused=%v\n",
				c.Cmd, st.Frame.ID, st.Frame.Index, st.Frame.Mode, st.Paused)
			return nil
		},
	}
}

func fixed(name string) func([]string) (ws.Command, error) {
	return func([]string) (ws.Command, error) { return ws.Command{Cmd: name}, nil }
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(
		controlCmd("trigger", "Start the alarm now", fixed("trigger"), cobra.NoArgs),
		controlCmd("reset", "Return to idle", fixed("reset"), cobra.NoArgs),
		controlCmd("pause", "Freeze playback", fixed("pause"), cobra.NoArgs),
		controlCmd("resume", "Resume playback", fixed("resume"), cobra.NoArgs),
		controlCmd("step [delta]", "Pause and move by delta frames (default 1)", func(a []string) (ws.Command, error) {
			c := ws.Command{Cmd: "step", Delta: 1}
			if len(a) == 1 {
				n, err := strconv.Atoi(a[0])
				if err != nil {
					return c, fmt.Errorf("delta: %w", err)
				}
				c.Delta = n
			}
			return c, nil
		}, cobra.MaximumNArgs(1)),
		controlCmd("test <kind>", "Run a frame test: keyframe_sweep, dense_sweep or marker_tour", func(a []string) (ws.Command, error) {
			return ws.Command{Cmd: "test", Test: a[0]}, nil
		}, cobra.ExactArgs(1)),
	)
}
