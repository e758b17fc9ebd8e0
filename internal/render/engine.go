package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/usagiclock/internal/sequence"
)

// Sink consumes the current frame. It is called once per logical frame, even
// when the frame id has not changed; skipping redundant redraws is up to the
// sink.
type Sink interface {
	Write(f sequence.Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f sequence.Frame) error

func (fn SinkFunc) Write(f sequence.Frame) error { return fn(f) }

type namedSink struct {
	name string
	s    Sink
}

// Engine fans each frame out to every attached sink. A failing sink is logged
// and counted; it never stops the others or the caller's tick loop.
type Engine struct {
	log zerolog.Logger

	mu    sync.RWMutex
	sinks []namedSink

	// OnError observes sink failures (metrics).
	OnError func(sink string, err error)

	// last timings in ms
	Last struct {
		WriteMS float64
	}
	frames uint64
	errs   uint64
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "render").Logger()}
}

// Attach adds a sink under name. Names must be unique.
func (e *Engine) Attach(name string, s Sink) error {
	if s == nil {
		return errors.New("sink is nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ns := range e.sinks {
		if ns.name == name {
			return fmt.Errorf("sink already attached: %s", name)
		}
	}
	e.sinks = append(e.sinks, namedSink{name: name, s: s})
	return nil
}

func (e *Engine) Detach(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, ns := range e.sinks {
		if ns.name == name {
			e.sinks = append(e.sinks[:i], e.sinks[i+1:]...)
			return
		}
	}
}

func (e *Engine) Sinks() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.sinks))
	for i, ns := range e.sinks {
		out[i] = ns.name
	}
	return out
}

// RenderOnce writes f to every sink and returns the joined sink errors.
func (e *Engine) RenderOnce(f sequence.Frame) error {
	start := time.Now()
	e.mu.RLock()
	sinks := e.sinks
	e.mu.RUnlock()

	var errs []error
	for _, ns := range sinks {
		if err := ns.s.Write(f); err != nil {
			err = fmt.Errorf("sink %s: %w", ns.name, err)
			errs = append(errs, err)
			e.log.Debug().Err(err).Int("frame", int(f.ID)).Msg("sink write failed")
			if e.OnError != nil {
				e.OnError(ns.name, err)
			}
		}
	}

	e.mu.Lock()
	e.frames++
	e.errs += uint64(len(errs))
	e.Last.WriteMS = float64(time.Since(start).Microseconds()) / 1000.0
	e.mu.Unlock()
	return errors.Join(errs...)
}

// Stats returns frames rendered and sink errors seen.
func (e *Engine) Stats() (frames, errs uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frames, e.errs
}
