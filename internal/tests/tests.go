package tests

import (
	"github.com/coreman2200/usagiclock/internal/frames"
	"github.com/coreman2200/usagiclock/internal/sequence"
)

type Kind string

const (
	None          Kind = ""
	KeyframeSweep Kind = "keyframe_sweep"
	DenseSweep    Kind = "dense_sweep"
	MarkerTour    Kind = "marker_tour"
)

func Kinds() []Kind { return []Kind{KeyframeSweep, DenseSweep, MarkerTour} }

type Plan struct{ Kind Kind }

// Runner walks a fixed list of table positions, one per logical frame, so
// every image can be eyeballed on the sinks.
type Runner struct {
	plan    Plan
	tbl     *frames.Table
	indices []int
	step    int
}

// NewRunner returns nil for an unknown kind.
func NewRunner(plan Plan, tbl *frames.Table, ix frames.Indices) *Runner {
	r := &Runner{plan: plan, tbl: tbl}
	switch plan.Kind {
	case KeyframeSweep:
		for _, id := range tbl.Keyframes() {
			i, _ := tbl.IndexOf(id)
			r.indices = append(r.indices, i)
		}
	case DenseSweep:
		for i := 0; i < tbl.Len(); i++ {
			r.indices = append(r.indices, i)
		}
	case MarkerTour:
		r.indices = []int{ix.TiktokStart, ix.TiktokEnd, ix.AlarmFrame, ix.AlarmLoopStart, ix.AlarmLoopEnd}
	default:
		return nil
	}
	return r
}

func (r *Runner) Kind() Kind { return r.plan.Kind }
func (r *Runner) Len() int   { return len(r.indices) }

// Step returns the next frame; false when complete.
func (r *Runner) Step() (sequence.Frame, bool) {
	if r.step >= len(r.indices) {
		return sequence.Frame{}, false
	}
	i := r.indices[r.step]
	r.step++
	return sequence.Frame{ID: r.tbl.At(i), Index: i, Mode: sequence.Mode("test")}, true
}
