package audio

import (
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/rs/zerolog"
)

// Output connects a Controller to the speaker through a volume stage.
type Output struct {
	vol     *effects.Volume
	enabled bool
}

// Open initialises the speaker and starts streaming c. If the device cannot
// be opened the Output is disabled and the Controller simply goes unheard.
func Open(c *Controller, sr beep.SampleRate, buffer time.Duration, volume float64, muted bool, log zerolog.Logger) *Output {
	o := &Output{vol: &effects.Volume{Streamer: c, Base: 2, Volume: volume, Silent: muted}}
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	if err := speaker.Init(sr, sr.N(buffer)); err != nil {
		log.Warn().Err(err).Msg("audio output unavailable, running silent")
		return o
	}
	speaker.Play(o.vol)
	o.enabled = true
	log.Info().Int("rate", int(sr)).Dur("buffer", buffer).Float64("volume", volume).Msg("audio output ready")
	return o
}

func (o *Output) Enabled() bool { return o != nil && o.enabled }

// SetVolume changes the gain in powers of two; 0 is unity.
func (o *Output) SetVolume(v float64) {
	o.locked(func() { o.vol.Volume = v })
}

func (o *Output) SetMuted(m bool) {
	o.locked(func() { o.vol.Silent = m })
}

func (o *Output) locked(f func()) {
	if !o.Enabled() {
		f()
		return
	}
	speaker.Lock()
	f()
	speaker.Unlock()
}

// Close detaches everything from the speaker.
func (o *Output) Close() {
	if o.Enabled() {
		speaker.Clear()
		o.enabled = false
	}
}
