package frames

import (
	"errors"
	"fmt"
	"sort"
)

// ID identifies a still image. Only keyframes carry image content; every
// other id in [First, Last] reuses the nearest preceding keyframe.
type ID int

var (
	ErrEmptyKeyframeSet   = errors.New("empty keyframe set")
	ErrUnorderedKeyframes = errors.New("keyframes must be strictly increasing")
	ErrInvalidFrameMarker = errors.New("invalid frame marker")
)

// Table is the dense, one-entry-per-position expansion of a keyframe list.
// It is immutable once built.
type Table struct {
	dense     []ID
	keyframes []ID
}

// Build expands keyframes into a dense table with a single forward scan.
func Build(keyframes []ID) (*Table, error) {
	if len(keyframes) == 0 {
		return nil, ErrEmptyKeyframeSet
	}
	for i := 1; i < len(keyframes); i++ {
		if keyframes[i] <= keyframes[i-1] {
			return nil, fmt.Errorf("%w: %d follows %d at position %d",
				ErrUnorderedKeyframes, keyframes[i], keyframes[i-1], i)
		}
	}

	first, last := keyframes[0], keyframes[len(keyframes)-1]
	dense := make([]ID, 0, int(last-first)+1)
	cur := first
	k := 0
	for i := first; i <= last; i++ {
		if k < len(keyframes) && keyframes[k] == i {
			cur = i
			k++
		}
		dense = append(dense, cur)
	}

	kf := make([]ID, len(keyframes))
	copy(kf, keyframes)
	return &Table{dense: dense, keyframes: kf}, nil
}

func (t *Table) Len() int    { return len(t.dense) }
func (t *Table) First() ID   { return t.keyframes[0] }
func (t *Table) Last() ID    { return t.keyframes[len(t.keyframes)-1] }
func (t *Table) At(i int) ID { return t.dense[i] }

// Keyframes returns a copy of the distinct ids that need image content.
func (t *Table) Keyframes() []ID {
	out := make([]ID, len(t.keyframes))
	copy(out, t.keyframes)
	return out
}

// IndexOf returns the first dense position holding id. Non-keyframe ids are
// never stored as values, so they report false.
func (t *Table) IndexOf(id ID) (int, bool) {
	i := sort.Search(len(t.dense), func(i int) bool { return t.dense[i] >= id })
	if i < len(t.dense) && t.dense[i] == id {
		return i, true
	}
	return -1, false
}
