package sequence

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreman2200/usagiclock/internal/frames"
)

// Player owns the playback State and uses Hooks to drive rendering and audio.
// Mutating calls are expected from a single driver goroutine; State and Mode
// are safe to read from anywhere.
type Player struct {
	tbl     *frames.Table
	machine *Machine
	hooks   Hooks

	mu     sync.Mutex
	state  State
	last   Frame
	paused bool

	mode atomic.Value // Mode
}

// NewPlayer constructs a Player idle at the start of the tick-tock range.
func NewPlayer(tbl *frames.Table, m *Machine, h Hooks) *Player {
	p := &Player{tbl: tbl, machine: m, hooks: h, state: m.Initial()}
	p.mode.Store(p.state.Mode)
	p.last = p.frameLocked(time.Time{})
	return p
}

func (p *Player) Machine() *Machine { return p.machine }

// Mode is the committed mode. Audio completion callbacks read it.
func (p *Player) Mode() Mode { return p.mode.Load().(Mode) }

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current is the most recently emitted frame.
func (p *Player) Current() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *Player) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Step runs one logical frame: advance (unless paused) and emit the frame.
func (p *Player) Step(now time.Time) Frame {
	p.mu.Lock()
	var tr Transition
	if !p.paused {
		p.state, tr = p.machine.Advance(p.state, now)
	} else {
		tr = Transition{From: p.state.Mode, To: p.state.Mode}
	}
	f, s := p.commitLocked(now)
	p.mu.Unlock()

	p.fire(tr, s, f, now)
	return f
}

// Trigger starts the alarm. It reports false when an alarm is already active.
func (p *Player) Trigger(now time.Time) bool {
	p.mu.Lock()
	from := p.state.Mode
	next, ok := p.machine.TriggerAlarm(p.state)
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.state = next
	_, s := p.commitLocked(now)
	p.mu.Unlock()

	p.fire(Transition{From: from, To: s.Mode}, s, Frame{}, now)
	return true
}

// ForceIdle cancels an active alarm. It reports whether the mode changed.
func (p *Player) ForceIdle(now time.Time) bool {
	p.mu.Lock()
	from := p.state.Mode
	if !from.Alarm() {
		p.mu.Unlock()
		return false
	}
	p.state = p.machine.ForceIdle(p.state)
	_, s := p.commitLocked(now)
	p.mu.Unlock()

	p.fire(Transition{From: from, To: Idle}, s, Frame{}, now)
	return true
}

// Reset puts the player back at the idle start regardless of mode.
func (p *Player) Reset(now time.Time) {
	if p.ForceIdle(now) {
		return
	}
	p.mu.Lock()
	p.state = p.machine.Initial()
	p.commitLocked(now)
	p.mu.Unlock()
}

// StepBy moves the position by delta frames and emits the result. Mode is
// left untouched.
func (p *Player) StepBy(delta int, now time.Time) Frame {
	p.mu.Lock()
	p.state = p.machine.Seek(p.state, delta)
	f, s := p.commitLocked(now)
	p.mu.Unlock()

	p.fire(Transition{From: s.Mode, To: s.Mode}, s, f, now)
	return f
}

func (p *Player) commitLocked(now time.Time) (Frame, State) {
	p.mode.Store(p.state.Mode)
	p.last = p.frameLocked(now)
	return p.last, p.state
}

func (p *Player) frameLocked(now time.Time) Frame {
	return Frame{
		ID:    p.tbl.At(p.state.Position),
		Index: p.state.Position,
		Mode:  p.state.Mode,
		At:    now,
	}
}

// fire runs hooks outside the lock. A zero Frame means nothing to emit.
func (p *Player) fire(tr Transition, s State, f Frame, now time.Time) {
	if tr.Changed() && p.hooks.OnTransition != nil {
		p.hooks.OnTransition(tr, s, now)
	}
	if f.Mode != "" && p.hooks.OnFrame != nil {
		p.hooks.OnFrame(f)
	}
}
