package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"
)

// DefaultSampleRate is the mixer rate every cue is resampled to.
const DefaultSampleRate = beep.SampleRate(44100)

// Cue is a fully decoded audio clip. A Cue with no buffer is silent; playing
// it completes immediately.
type Cue struct {
	Name string
	buf  *beep.Buffer
}

func NewCue(name string, buf *beep.Buffer) *Cue { return &Cue{Name: name, buf: buf} }

// Silent reports whether the cue has nothing to play.
func (c *Cue) Silent() bool { return c == nil || c.buf == nil || c.buf.Len() == 0 }

// Len is the cue length in samples.
func (c *Cue) Len() int {
	if c.Silent() {
		return 0
	}
	return c.buf.Len()
}

func (c *Cue) streamer() beep.StreamSeeker { return c.buf.Streamer(0, c.buf.Len()) }

// LoadCue decodes a WAV or MP3 file into memory at sample rate sr.
func LoadCue(name, path string, sr beep.SampleRate) (*Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("cue %s: unsupported format %q", name, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cue %s: decode %s: %w", name, path, err)
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != sr {
		src = beep.Resample(4, format.SampleRate, sr, s)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	buf.Append(src)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("cue %s: stream %s: %w", name, path, err)
	}
	return NewCue(name, buf), nil
}

// Paths locates the three cues the player uses.
type Paths struct {
	Tick      string `yaml:"tick"`
	Alarm     string `yaml:"alarm"`
	AlarmLoop string `yaml:"alarm_loop"`
}

// Assets are the decoded cues handed to the Controller.
type Assets struct {
	Tick      *Cue
	Alarm     *Cue
	AlarmLoop *Cue
}

// LoadAssets decodes every cue. A cue that fails to decode is logged and left
// silent for the session; the others are unaffected.
func LoadAssets(p Paths, sr beep.SampleRate, log zerolog.Logger) Assets {
	load := func(name, path string) *Cue {
		if path == "" {
			return NewCue(name, nil)
		}
		c, err := LoadCue(name, path, sr)
		if err != nil {
			log.Warn().Err(err).Str("cue", name).Msg("cue unavailable, playing silence")
			return NewCue(name, nil)
		}
		log.Debug().Str("cue", name).Int("samples", c.Len()).Dur("length", sr.D(c.Len())).Msg("cue loaded")
		return c
	}
	return Assets{
		Tick:      load("tick", p.Tick),
		Alarm:     load("alarm", p.Alarm),
		AlarmLoop: load("alarm_loop", p.AlarmLoop),
	}
}
