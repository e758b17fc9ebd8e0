package sequence

import (
	"time"

	"github.com/coreman2200/usagiclock/internal/frames"
)

const DefaultAlarmDuration = 60 * time.Second

// Machine holds the resolved frame markers and computes transitions. It is
// stateless; every method is a pure function of its arguments.
type Machine struct {
	ix       frames.Indices
	duration time.Duration
}

func NewMachine(ix frames.Indices, alarmDuration time.Duration) *Machine {
	if alarmDuration <= 0 {
		alarmDuration = DefaultAlarmDuration
	}
	return &Machine{ix: ix, duration: alarmDuration}
}

func (m *Machine) Indices() frames.Indices       { return m.ix }
func (m *Machine) AlarmDuration() time.Duration { return m.duration }

// Initial is the state at startup: idle at the start of the tick-tock range.
func (m *Machine) Initial() State {
	return State{Mode: Idle, Position: m.ix.TiktokStart, Direction: Forward}
}

// Advance moves s forward by one logical frame.
func (m *Machine) Advance(s State, now time.Time) (State, Transition) {
	from := s.Mode
	switch s.Mode {
	case AlarmIntro:
		s.Position++
		if s.Position >= m.ix.AlarmLoopStart {
			s.Mode = AlarmLoop
			s.Position = m.ix.AlarmLoopStart
			s.AlarmEnteredAt = now
		}
	case AlarmLoop:
		s.Position++
		if s.Position >= m.ix.AlarmLoopEnd {
			if now.Sub(s.AlarmEnteredAt) >= m.duration {
				s = m.Initial()
			} else {
				s.Position = m.ix.AlarmLoopStart
			}
		}
	default:
		if s.Direction != Backward {
			s.Direction = Forward
		}
		s.Position += s.Direction
		switch {
		case s.Position >= m.ix.TiktokEnd:
			s.Position = m.ix.TiktokEnd
			s.Direction = Backward
		case s.Position <= m.ix.TiktokStart:
			s.Position = m.ix.TiktokStart
			s.Direction = Forward
		}
	}
	return s, Transition{From: from, To: s.Mode}
}

// TriggerAlarm enters AlarmIntro at the alarm frame. It only applies from
// Idle; otherwise s is returned unchanged and ok is false.
func (m *Machine) TriggerAlarm(s State) (State, bool) {
	if s.Mode != Idle {
		return s, false
	}
	return State{Mode: AlarmIntro, Position: m.ix.AlarmFrame, Direction: Forward}, true
}

// ForceIdle resets to the start of the tick-tock range from any mode.
func (m *Machine) ForceIdle(State) State {
	return m.Initial()
}

// Seek moves the position by delta without changing mode, clamped to the
// table. Used for manual frame stepping.
func (m *Machine) Seek(s State, delta int) State {
	s.Position += delta
	if s.Position < 0 {
		s.Position = 0
	}
	if max := m.ix.Len - 1; s.Position > max {
		s.Position = max
	}
	return s
}
