package frames

import "fmt"

// Range is an inclusive pair of keyframe ids, L < R.
type Range struct {
	L ID `yaml:"l" json:"l"`
	R ID `yaml:"r" json:"r"`
}

// Markers names the frames the player navigates between. The design assumes
// TiktokLoop.R < AlarmFrame < AlarmLoop.L < AlarmLoop.R along the frame axis.
type Markers struct {
	TiktokLoop Range `yaml:"tiktok_loop" json:"tiktokLoop"`
	AlarmFrame ID    `yaml:"alarm_frame" json:"alarmFrame"`
	AlarmLoop  Range `yaml:"alarm_loop" json:"alarmLoop"`
}

// Indices are Markers resolved to dense table positions.
type Indices struct {
	TiktokStart    int
	TiktokEnd      int
	AlarmFrame     int
	AlarmLoopStart int
	AlarmLoopEnd   int
	// Len is the dense table length; positions live in [0, Len-1].
	Len int
}

// Resolve maps every marker onto t once, at setup. Any marker that is not a
// keyframe, or any ordering violation, fails with ErrInvalidFrameMarker.
func (m Markers) Resolve(t *Table) (Indices, error) {
	lookup := func(name string, id ID) (int, error) {
		i, ok := t.IndexOf(id)
		if !ok {
			return 0, fmt.Errorf("%w: %s=%d is not a keyframe in [%d,%d]",
				ErrInvalidFrameMarker, name, id, t.First(), t.Last())
		}
		return i, nil
	}

	var (
		ix  = Indices{Len: t.Len()}
		err error
	)
	if ix.TiktokStart, err = lookup("tiktok_loop.l", m.TiktokLoop.L); err != nil {
		return Indices{}, err
	}
	if ix.TiktokEnd, err = lookup("tiktok_loop.r", m.TiktokLoop.R); err != nil {
		return Indices{}, err
	}
	if ix.AlarmFrame, err = lookup("alarm_frame", m.AlarmFrame); err != nil {
		return Indices{}, err
	}
	if ix.AlarmLoopStart, err = lookup("alarm_loop.l", m.AlarmLoop.L); err != nil {
		return Indices{}, err
	}
	if ix.AlarmLoopEnd, err = lookup("alarm_loop.r", m.AlarmLoop.R); err != nil {
		return Indices{}, err
	}

	if !(ix.TiktokStart < ix.TiktokEnd &&
		ix.TiktokEnd < ix.AlarmFrame &&
		ix.AlarmFrame < ix.AlarmLoopStart &&
		ix.AlarmLoopStart < ix.AlarmLoopEnd) {
		return Indices{}, fmt.Errorf("%w: want tiktok_loop.l < tiktok_loop.r < alarm_frame < alarm_loop.l < alarm_loop.r, got %d < %d < %d < %d < %d",
			ErrInvalidFrameMarker, m.TiktokLoop.L, m.TiktokLoop.R, m.AlarmFrame, m.AlarmLoop.L, m.AlarmLoop.R)
	}
	return ix, nil
}
