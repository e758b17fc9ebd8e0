package audio

import (
	"sync"

	"github.com/faiface/beep"
)

// Class separates one-shots that may overlap each other. Starting a one-shot
// replaces only the one-shot of the same class.
type Class int

const (
	ClassTick Class = iota
	ClassAlarm
	numClasses
)

type shot struct {
	cue        *Cue
	s          beep.StreamSeeker
	onComplete func()
}

// Controller mixes at most one one-shot per Class and one loop cue. It is a
// beep.Streamer itself and is registered with the speaker once; all
// scheduling happens between sample buffers, so a loop started from a
// one-shot's completion callback begins on the sample after the one-shot's
// last one.
type Controller struct {
	mu      sync.Mutex
	shots   [numClasses]*shot
	loop    beep.Streamer
	loopCue *Cue
	// loopAt is the offset into the current output buffer at which a newly
	// started loop begins.
	loopAt int
	// cursor is the completion offset while callbacks run, -1 otherwise.
	cursor  int
	scratch [][2]float64

	// Played is called with the cue name whenever playback starts.
	Played func(name string)
}

func NewController() *Controller {
	return &Controller{cursor: -1}
}

// PlayOneShot starts cue once. onComplete runs exactly once when the cue
// finishes naturally; a cue that is replaced or stopped never completes. A
// silent cue completes immediately on the caller's goroutine.
func (c *Controller) PlayOneShot(class Class, cue *Cue, onComplete func()) {
	if class < 0 || class >= numClasses {
		return
	}
	c.mu.Lock()
	if cue.Silent() {
		c.shots[class] = nil
		c.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	c.shots[class] = &shot{cue: cue, s: cue.streamer(), onComplete: onComplete}
	c.mu.Unlock()
	c.played(cue.Name)
}

// PlayLoop replaces any running loop with cue, repeated until stopped.
func (c *Controller) PlayLoop(cue *Cue) {
	c.PlayLoopIf(cue, nil)
}

// PlayLoopIf is PlayLoop guarded by cond, evaluated under the controller
// lock. A StopAll that follows a state change cond observes can therefore
// never be overtaken by the loop it was meant to stop. It reports whether
// the loop was (re)started.
func (c *Controller) PlayLoopIf(cue *Cue, cond func() bool) bool {
	c.mu.Lock()
	if cond != nil && !cond() {
		c.mu.Unlock()
		return false
	}
	c.loop, c.loopCue, c.loopAt = nil, nil, 0
	if cue.Silent() {
		c.mu.Unlock()
		return false
	}
	c.loop = beep.Loop(-1, cue.streamer())
	c.loopCue = cue
	if c.cursor >= 0 {
		c.loopAt = c.cursor
	}
	c.mu.Unlock()
	c.played(cue.Name)
	return true
}

// StopAll halts every one-shot and the loop. It is idempotent and safe on a
// Controller that never played anything.
func (c *Controller) StopAll() {
	c.mu.Lock()
	for i := range c.shots {
		c.shots[i] = nil
	}
	c.loop, c.loopCue, c.loopAt = nil, nil, 0
	c.mu.Unlock()
}

// Active lists the names of the cues currently playing.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.shots {
		if s != nil {
			out = append(out, s.cue.Name)
		}
	}
	if c.loopCue != nil {
		out = append(out, c.loopCue.Name+" (loop)")
	}
	return out
}

func (c *Controller) played(name string) {
	if c.Played != nil {
		c.Played(name)
	}
}

type completion struct {
	at int
	fn func()
}

// Stream implements beep.Streamer. It always fills samples, with silence when
// nothing is playing.
func (c *Controller) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{}
	}

	c.mu.Lock()
	if cap(c.scratch) < len(samples) {
		c.scratch = make([][2]float64, len(samples))
	}
	var done []completion
	for i, s := range c.shots {
		if s == nil {
			continue
		}
		n := c.mix(s.s, samples)
		if n < len(samples) || s.s.Position() >= s.s.Len() {
			c.shots[i] = nil
			if s.onComplete != nil {
				done = append(done, completion{at: n, fn: s.onComplete})
			}
		}
	}
	c.mu.Unlock()

	for _, d := range done {
		c.mu.Lock()
		c.cursor = d.at
		c.mu.Unlock()
		d.fn()
	}

	c.mu.Lock()
	c.cursor = -1
	if c.loop != nil && c.loopAt < len(samples) {
		c.mix(c.loop, samples[c.loopAt:])
	}
	c.loopAt = 0
	c.mu.Unlock()

	return len(samples), true
}

// mix adds s into dst and returns how many samples s produced.
func (c *Controller) mix(s beep.Streamer, dst [][2]float64) int {
	buf := c.scratch[:len(dst)]
	filled := 0
	for filled < len(dst) {
		n, ok := s.Stream(buf[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}
	for i := 0; i < filled; i++ {
		dst[i][0] += buf[i][0]
		dst[i][1] += buf[i][1]
	}
	return filled
}

func (c *Controller) Err() error { return nil }
