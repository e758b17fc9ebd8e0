// Package pacing converts an irregular callback cadence into fixed-interval
// logical steps without accumulating drift.
package pacing

import "time"

// Pacer decides, per callback, whether one logical step is due.
//
// Elapsed time is accumulated and one Interval is subtracted per step, so a
// callback that runs slightly fast or slow never shifts the phase. At most
// one step is taken per callback, and less than one Interval of backlog is
// ever kept: whole intervals left after a step are discarded and counted as
// dropped, so a stall never turns into back-to-back frames.
type Pacer struct {
	Interval time.Duration
	// Immediate makes the very first callback a step instead of a primer.
	Immediate bool

	last    time.Time
	acc     time.Duration
	primed  bool
	dropped uint64
}

func New(interval time.Duration) *Pacer {
	return &Pacer{Interval: interval}
}

// FromRate builds a Pacer for fps logical frames per second.
func FromRate(fps float64) *Pacer {
	return New(time.Duration(float64(time.Second) / fps))
}

// Step records a callback at ts and reports whether a logical step is due.
func (p *Pacer) Step(ts time.Time) bool {
	if !p.primed {
		p.primed = true
		p.last = ts
		p.acc = 0
		return p.Immediate
	}
	d := ts.Sub(p.last)
	p.last = ts
	if d > 0 {
		p.acc += d
	}
	if p.Interval <= 0 || p.acc < p.Interval {
		return false
	}
	p.acc -= p.Interval
	if p.acc >= p.Interval {
		p.dropped += uint64(p.acc / p.Interval)
		p.acc %= p.Interval
	}
	return true
}

// Reset forgets all history; the next Step primes again.
func (p *Pacer) Reset() {
	p.primed = false
	p.acc = 0
}

// Backlog is the time accumulated toward the next step.
func (p *Pacer) Backlog() time.Duration { return p.acc }

// Dropped counts the intervals discarded to stay aligned with real time.
func (p *Pacer) Dropped() uint64 { return p.dropped }
