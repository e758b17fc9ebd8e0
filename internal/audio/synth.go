package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone describes a placeholder cue: Beeps pulses of Freq Hz, each Length
// long, separated by Gap, with an exponential decay per pulse.
type Tone struct {
	Freq   float64
	Length time.Duration
	Gap    time.Duration
	Beeps  int
	Decay  float64
	Gain   float64
}

// Placeholder tones for the three cues.
var (
	TickTone      = Tone{Freq: 1800, Length: 35 * time.Millisecond, Beeps: 1, Decay: 60, Gain: 0.6}
	AlarmTone     = Tone{Freq: 880, Length: 180 * time.Millisecond, Gap: 90 * time.Millisecond, Beeps: 4, Decay: 4, Gain: 0.7}
	AlarmLoopTone = Tone{Freq: 1320, Length: 120 * time.Millisecond, Gap: 130 * time.Millisecond, Beeps: 4, Decay: 6, Gain: 0.6}
)

// Samples renders t as mono 16-bit PCM at rate.
func (t Tone) Samples(rate int) []int {
	per := int(t.Length.Seconds() * float64(rate))
	gap := int(t.Gap.Seconds() * float64(rate))
	beeps := t.Beeps
	if beeps < 1 {
		beeps = 1
	}
	out := make([]int, 0, beeps*(per+gap))
	for b := 0; b < beeps; b++ {
		for i := 0; i < per; i++ {
			sec := float64(i) / float64(rate)
			v := t.Gain * math.Exp(-t.Decay*sec) * math.Sin(2*math.Pi*t.Freq*sec)
			out = append(out, int(v*math.MaxInt16))
		}
		for i := 0; i < gap; i++ {
			out = append(out, 0)
		}
	}
	return out
}

// WriteWAV renders t into a mono 16-bit WAV file at path.
func WriteWAV(path string, t Tone, rate int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           t.Samples(rate),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return enc.Close()
}

// EnsureWAV writes a placeholder for every missing cue path. Existing files
// are left alone. It returns the paths it created.
func EnsureWAV(p Paths, rate int) ([]string, error) {
	var made []string
	for _, c := range []struct {
		path string
		tone Tone
	}{
		{p.Tick, TickTone},
		{p.Alarm, AlarmTone},
		{p.AlarmLoop, AlarmLoopTone},
	} {
		if c.path == "" || filepath.Ext(c.path) != ".wav" {
			continue
		}
		if _, err := os.Stat(c.path); err == nil {
			continue
		}
		if err := WriteWAV(c.path, c.tone, rate); err != nil {
			return made, err
		}
		made = append(made, c.path)
	}
	return made, nil
}
