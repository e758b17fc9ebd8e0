package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/usagiclock/internal/frames"
)

func testIndices(t *testing.T) (*frames.Table, frames.Indices) {
	t.Helper()
	tbl, err := frames.Build([]frames.ID{100, 101, 102, 103, 104, 106, 108, 109, 110, 111, 112})
	require.NoError(t, err)
	ix, err := frames.Markers{
		TiktokLoop: frames.Range{L: 100, R: 104},
		AlarmFrame: 106,
		AlarmLoop:  frames.Range{L: 108, R: 112},
	}.Resolve(tbl)
	require.NoError(t, err)
	return tbl, ix
}

func TestIdlePingPong(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, time.Minute)
	s := m.Initial()
	now := time.Unix(0, 0)

	want := []int{1, 2, 3, 4, 3, 2, 1, 0, 1, 2, 3, 4, 3}
	for i, w := range want {
		s, _ = m.Advance(s, now)
		require.Equalf(t, w, s.Position, "step %d", i)
		require.Equal(t, Idle, s.Mode)
	}
}

func TestIdleBounded(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, time.Minute)
	s := m.Initial()
	flips := 0
	prev := s.Direction
	for i := 0; i < 10_000; i++ {
		s, _ = m.Advance(s, time.Time{})
		require.GreaterOrEqual(t, s.Position, ix.TiktokStart)
		require.LessOrEqual(t, s.Position, ix.TiktokEnd)
		if s.Direction != prev {
			flips++
			require.Contains(t, []int{ix.TiktokStart, ix.TiktokEnd}, s.Position)
			prev = s.Direction
		}
	}
	assert.Equal(t, 10_000/(ix.TiktokEnd-ix.TiktokStart), flips)
}

func TestIdleOutOfRangeClamps(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, time.Minute)

	s, _ := m.Advance(State{Mode: Idle, Position: ix.AlarmLoopEnd, Direction: Forward}, time.Time{})
	assert.Equal(t, ix.TiktokEnd, s.Position)
	assert.Equal(t, Backward, s.Direction)

	s, _ = m.Advance(State{Mode: Idle, Position: ix.TiktokStart}, time.Time{})
	assert.Equal(t, ix.TiktokStart+1, s.Position)
	assert.Equal(t, Forward, s.Direction)
}

func TestAlarmLifecycle(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, 60*time.Second)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now := start

	s, ok := m.TriggerAlarm(m.Initial())
	require.True(t, ok)
	require.Equal(t, AlarmIntro, s.Mode)
	require.Equal(t, ix.AlarmFrame, s.Position)

	prev := s.Position
	var tr Transition
	for s.Mode == AlarmIntro {
		now = now.Add(100 * time.Millisecond)
		s, tr = m.Advance(s, now)
		require.Greater(t, s.Position, prev)
		require.LessOrEqual(t, s.Position, ix.AlarmLoopStart)
		prev = s.Position
	}
	require.Equal(t, Transition{From: AlarmIntro, To: AlarmLoop}, tr)
	require.Equal(t, ix.AlarmLoopStart, s.Position)
	require.Equal(t, now, s.AlarmEnteredAt)
	loopStart := now

	wraps := 0
	for s.Mode == AlarmLoop {
		now = now.Add(time.Second)
		before := s.Position
		s, tr = m.Advance(s, now)
		if s.Mode != AlarmLoop {
			break
		}
		require.GreaterOrEqual(t, s.Position, ix.AlarmLoopStart)
		require.Less(t, s.Position, ix.AlarmLoopEnd)
		if s.Position < before {
			wraps++
			require.Equal(t, ix.AlarmLoopStart, s.Position)
			require.Equal(t, ix.AlarmLoopEnd-1, before)
		}
	}
	require.Equal(t, Transition{From: AlarmLoop, To: Idle}, tr)
	assert.GreaterOrEqual(t, now.Sub(loopStart), 60*time.Second)
	assert.Greater(t, wraps, 0)
	assert.Equal(t, m.Initial(), s)
}

func TestAlarmLoopFinishesCycle(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, 10*time.Second)
	entered := time.Unix(1000, 0)
	s := State{Mode: AlarmLoop, Position: ix.AlarmLoopStart, Direction: Forward, AlarmEnteredAt: entered}

	// Duration has passed but the cycle boundary has not been reached.
	late := entered.Add(time.Hour)
	s, _ = m.Advance(s, late)
	assert.Equal(t, AlarmLoop, s.Mode)
	assert.Equal(t, ix.AlarmLoopStart+1, s.Position)
}

func TestNoRetrigger(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, time.Minute)
	for _, s := range []State{
		{Mode: AlarmIntro, Position: ix.AlarmFrame + 1, Direction: Forward},
		{Mode: AlarmLoop, Position: ix.AlarmLoopStart + 2, Direction: Forward, AlarmEnteredAt: time.Unix(5, 0)},
	} {
		got, ok := m.TriggerAlarm(s)
		assert.False(t, ok)
		assert.Equal(t, s, got)
	}
}

func TestForceIdleAndSeek(t *testing.T) {
	_, ix := testIndices(t)
	m := NewMachine(ix, time.Minute)

	s := m.ForceIdle(State{Mode: AlarmLoop, Position: ix.AlarmLoopStart + 1, AlarmEnteredAt: time.Unix(1, 0)})
	assert.Equal(t, m.Initial(), s)

	s = m.Seek(s, -3)
	assert.Equal(t, 0, s.Position)
	s = m.Seek(s, 1000)
	assert.Equal(t, ix.Len-1, s.Position)
	assert.Equal(t, Idle, s.Mode)
}
