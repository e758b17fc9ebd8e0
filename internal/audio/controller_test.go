package audio

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/faiface/beep"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFormat = beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}

func constCue(name string, n int, v float64) *Cue {
	buf := beep.NewBuffer(testFormat)
	left := n
	buf.Append(beep.StreamerFunc(func(s [][2]float64) (int, bool) {
		if left == 0 {
			return 0, false
		}
		k := len(s)
		if k > left {
			k = left
		}
		for i := 0; i < k; i++ {
			s[i] = [2]float64{v, v}
		}
		left -= k
		return k, true
	}))
	return NewCue(name, buf)
}

func pull(c *Controller, total, chunk int) [][2]float64 {
	out := make([][2]float64, 0, total)
	buf := make([][2]float64, chunk)
	for len(out) < total {
		n, ok := c.Stream(buf)
		if !ok {
			break
		}
		out = append(out, buf[:n]...)
	}
	return out[:total]
}

func TestOneShotChainsIntoLoopWithoutGap(t *testing.T) {
	for _, chunk := range []int{64, 150, 512} {
		c := NewController()
		alarm := constCue("alarm", 150, 0.8)
		loop := constCue("alarm_loop", 40, 0.3)
		var inAlarm atomic.Bool
		inAlarm.Store(true)

		completed := 0
		c.PlayOneShot(ClassAlarm, alarm, func() {
			completed++
			if inAlarm.Load() {
				c.PlayLoop(loop)
			}
		})

		out := pull(c, 600, chunk)
		require.Equal(t, 1, completed, "chunk %d", chunk)
		for i, s := range out {
			want := 0.3
			if i < 150 {
				want = 0.8
			}
			require.InDeltaf(t, want, s[0], 0.01, "chunk %d sample %d", chunk, i)
		}
	}
}

func TestLoopNotStartedAfterCancel(t *testing.T) {
	c := NewController()
	var inAlarm atomic.Bool
	inAlarm.Store(true)
	loop := constCue("alarm_loop", 40, 0.3)
	c.PlayOneShot(ClassAlarm, constCue("alarm", 100, 0.8), func() {
		if inAlarm.Load() {
			c.PlayLoop(loop)
		}
	})

	pull(c, 50, 50)
	inAlarm.Store(false)
	out := pull(c, 200, 50)
	for i := 50; i < len(out); i++ {
		require.Zerof(t, out[i][0], "sample %d", i)
	}
	assert.Empty(t, c.Active())
}

func TestPlayLoopIfChecksUnderLock(t *testing.T) {
	c := NewController()
	loop := constCue("alarm_loop", 40, 0.3)
	var inAlarm atomic.Bool

	// Idle already committed when the one-shot completes: no loop.
	assert.False(t, c.PlayLoopIf(loop, inAlarm.Load))
	assert.Empty(t, c.Active())

	// The guard runs with the controller locked, so a StopAll issued after
	// a mode change is serialised behind it.
	inAlarm.Store(true)
	locked := false
	started := c.PlayLoopIf(loop, func() bool {
		locked = !c.mu.TryLock()
		return inAlarm.Load()
	})
	require.True(t, started)
	assert.True(t, locked)
	assert.Equal(t, []string{"alarm_loop (loop)"}, c.Active())

	inAlarm.Store(false)
	c.StopAll()
	out := pull(c, 100, 50)
	for i, smp := range out {
		require.Zerof(t, smp[0], "sample %d", i)
	}
}

func TestLoopGuardedByModeInCompletion(t *testing.T) {
	c := NewController()
	var inAlarm atomic.Bool
	inAlarm.Store(true)
	loop := constCue("alarm_loop", 40, 0.3)
	c.PlayOneShot(ClassAlarm, constCue("alarm", 60, 0.8), func() {
		c.PlayLoopIf(loop, inAlarm.Load)
	})

	pull(c, 50, 50)
	// Mode goes Idle, then StopAll, before the one-shot finishes.
	inAlarm.Store(false)
	c.StopAll()
	c.PlayOneShot(ClassAlarm, constCue("alarm", 60, 0.8), func() {
		c.PlayLoopIf(loop, inAlarm.Load)
	})
	out := pull(c, 200, 50)
	for i := 60; i < len(out); i++ {
		require.Zerof(t, out[i][0], "sample %d", i)
	}
	assert.Empty(t, c.Active())
}

func TestReplacedOneShotNeverCompletes(t *testing.T) {
	c := NewController()
	first, second := 0, 0
	c.PlayOneShot(ClassTick, constCue("a", 100, 0.5), func() { first++ })
	pull(c, 10, 10)
	c.PlayOneShot(ClassTick, constCue("b", 20, 0.5), func() { second++ })
	pull(c, 200, 10)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestClassesMix(t *testing.T) {
	c := NewController()
	c.PlayOneShot(ClassTick, constCue("tick", 10, 0.25), nil)
	c.PlayOneShot(ClassAlarm, constCue("alarm", 10, 0.5), nil)
	out := pull(c, 10, 10)
	assert.InDelta(t, 0.75, out[0][0], 0.01)
}

func TestStopAllIdempotent(t *testing.T) {
	c := NewController()
	c.StopAll()
	c.PlayLoop(constCue("loop", 10, 0.5))
	c.PlayOneShot(ClassTick, constCue("tick", 100, 0.5), func() { t.Fatal("stopped cue completed") })
	assert.Len(t, c.Active(), 2)
	c.StopAll()
	c.StopAll()
	for _, s := range pull(c, 300, 100) {
		require.Zero(t, s[0])
	}
}

func TestSilentCueCompletesImmediately(t *testing.T) {
	c := NewController()
	played := 0
	c.Played = func(string) { played++ }
	done := false
	c.PlayOneShot(ClassAlarm, NewCue("broken", nil), func() { done = true })
	assert.True(t, done)
	c.PlayLoop(nil)
	assert.Empty(t, c.Active())
	assert.Zero(t, played)
}

func TestSynthRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Tick:      filepath.Join(dir, "tick.wav"),
		Alarm:     filepath.Join(dir, "alarm.wav"),
		AlarmLoop: filepath.Join(dir, "alarm_loop.wav"),
	}
	made, err := EnsureWAV(paths, 22050)
	require.NoError(t, err)
	assert.Len(t, made, 3)

	made, err = EnsureWAV(paths, 22050)
	require.NoError(t, err)
	assert.Empty(t, made)

	f, err := os.Open(paths.Alarm)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	assert.True(t, dec.IsValidFile())

	a := LoadAssets(paths, DefaultSampleRate, zerolog.Nop())
	assert.False(t, a.Tick.Silent())
	assert.False(t, a.AlarmLoop.Silent())
	want := len(AlarmTone.Samples(22050)) * 2
	assert.InDelta(t, want, a.Alarm.Len(), 64)
}

func TestLoadAssetsMissingIsSilent(t *testing.T) {
	a := LoadAssets(Paths{Tick: "/nonexistent/tick.wav", Alarm: "x.ogg"}, DefaultSampleRate, zerolog.Nop())
	assert.True(t, a.Tick.Silent())
	assert.True(t, a.Alarm.Silent())
	assert.True(t, a.AlarmLoop.Silent())
}
