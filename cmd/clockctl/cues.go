package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coreman2200/usagiclock/internal/audio"
)

var (
	cuesDir  string
	cuesRate int
)

var cuesCmd = &cobra.Command{
	Use:   "cues",
	Short: "Write placeholder WAV cues for any that are missing",
	Long: `cues synthesizes short tones for the tick, alarm and alarm-loop cues so the
clock can run before real recordings exist. Existing files are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := audio.Paths{
			Tick:      filepath.Join(cuesDir, "tiktok.wav"),
			Alarm:     filepath.Join(cuesDir, "alarm.wav"),
			AlarmLoop: filepath.Join(cuesDir, "alarm_loop.wav"),
		}
		made, err := audio.EnsureWAV(p, cuesRate)
		for _, m := range made {
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", m)
		}
		if err != nil {
			return err
		}
		if len(made) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "all cues present")
		}
		return nil
	},
}

func init() {
	cuesCmd.Flags().StringVar(&cuesDir, "dir", "assets/audio", "output directory")
	cuesCmd.Flags().IntVar(&cuesRate, "rate", int(audio.DefaultSampleRate), "sample rate")
	rootCmd.AddCommand(cuesCmd)
}
