package fake

import (
	"fmt"
	"io"
	"sync"

	"github.com/coreman2200/usagiclock/internal/sequence"
)

// Driver records every frame and optionally prints a compact line per frame,
// useful for headless runs and tests.
type Driver struct {
	Out io.Writer

	mu     sync.Mutex
	count  int
	frames []sequence.Frame
}

func (d *Driver) Write(f sequence.Frame) error {
	d.mu.Lock()
	d.count++
	d.frames = append(d.frames, f)
	n := d.count
	d.mu.Unlock()

	if d.Out != nil {
		fmt.Fprintf(d.Out, "[frame %05d] id=%d index=%d mode=%s\n", n, f.ID, f.Index, f.Mode)
	}
	return nil
}

func (d *Driver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Frames returns a copy of everything written so far.
func (d *Driver) Frames() []sequence.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sequence.Frame, len(d.frames))
	copy(out, d.frames)
	return out
}

func (d *Driver) Reset() {
	d.mu.Lock()
	d.count = 0
	d.frames = nil
	d.mu.Unlock()
}
