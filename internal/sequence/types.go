package sequence

import (
	"time"

	"github.com/coreman2200/usagiclock/internal/frames"
)

// Mode enumerates playback regimes.
type Mode string

const (
	Idle       Mode = "idle"
	AlarmIntro Mode = "alarm_intro"
	AlarmLoop  Mode = "alarm_loop"
)

// Alarm reports whether m is one of the alarm modes.
func (m Mode) Alarm() bool { return m == AlarmIntro || m == AlarmLoop }

const (
	Forward  = 1
	Backward = -1
)

// State is the whole playback position. Only Machine methods produce new
// values; owners hold it by value.
type State struct {
	Mode      Mode `json:"mode"`
	Position  int  `json:"index"`
	Direction int  `json:"direction"`
	// AlarmEnteredAt is set when AlarmLoop begins and is zero otherwise.
	AlarmEnteredAt time.Time `json:"alarm_entered_at,omitempty"`
}

// Transition describes a mode change produced by a single call.
type Transition struct {
	From Mode
	To   Mode
}

func (t Transition) Changed() bool { return t.From != t.To }

// Hooks are dependency-injected callbacks into the render and audio sides.
// They run on the goroutine that drives the Player.
type Hooks struct {
	// OnFrame receives the frame for every logical frame, changed or not.
	OnFrame func(f Frame)
	// OnTransition fires after the state has been committed.
	OnTransition func(t Transition, s State, at time.Time)
}

// Frame is what a Player emits each logical frame.
type Frame struct {
	ID    frames.ID `json:"frame_id"`
	Index int       `json:"index"`
	Mode  Mode      `json:"mode"`
	At    time.Time `json:"t"`
}
