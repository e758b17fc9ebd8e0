// Package indicator drives a short WS2812 strip whose colour follows the
// player mode: a dim glow while idle, amber through the alarm intro and a red
// pulse while the alarm loops.
package indicator

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/usagiclock/internal/sequence"
)

type Config struct {
	Enabled bool   `yaml:"enabled"`
	Bus     string `yaml:"bus"`
	Pixels  int    `yaml:"pixels"`
	SpeedHz int64  `yaml:"speed_hz"`
	// Brightness scales every colour, 0..1.
	Brightness float64 `yaml:"brightness"`
}

// Strip is the raw pixel output: 3 bytes (R, G, B) per pixel.
type Strip interface {
	Write(rgb []byte) (int, error)
	Halt() error
}

type RGB struct{ R, G, B uint8 }

var (
	IdleColor  = RGB{255, 170, 90}
	IntroColor = RGB{255, 120, 0}
	LoopColor  = RGB{255, 0, 0}
	TestColor  = RGB{255, 255, 255}
)

// pulsePeriod is the alarm-loop pulse length in frames.
const pulsePeriod = 16

// Sink maps frames to a solid strip colour. Unchanged colours are not
// rewritten.
type Sink struct {
	strip      Strip
	pixels     int
	brightness float64

	mu   sync.Mutex
	buf  []byte
	last RGB
	lit  bool
}

// Open initialises periph and connects the strip over SPI.
func Open(cfg Config, log zerolog.Logger) (*Sink, error) {
	if cfg.Pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", cfg.Pixels)
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", cfg.Bus, err)
	}
	o := nrzled.DefaultOpts
	o.NumPixels = cfg.Pixels
	o.Channels = 3
	if cfg.SpeedHz > 0 {
		o.Freq = physic.Frequency(cfg.SpeedHz) * physic.Hertz
	}
	dev, err := nrzled.NewSPI(port, &o)
	if err != nil {
		port.Close()
		return nil, err
	}
	log.Info().Str("component", "indicator").Int("pixels", cfg.Pixels).Str("bus", cfg.Bus).Msg("strip ready")
	return New(dev, cfg.Pixels, cfg.Brightness), nil
}

func New(s Strip, pixels int, brightness float64) *Sink {
	if brightness <= 0 || brightness > 1 {
		brightness = 1
	}
	return &Sink{strip: s, pixels: pixels, brightness: brightness, buf: make([]byte, pixels*3)}
}

// ColorFor is the strip colour for f before brightness scaling.
func ColorFor(f sequence.Frame) RGB {
	switch f.Mode {
	case sequence.Idle:
		return scale(IdleColor, 0.25)
	case sequence.AlarmIntro:
		return IntroColor
	case sequence.AlarmLoop:
		// Triangle wave over the loop position.
		p := float64(f.Index%pulsePeriod) / pulsePeriod
		return scale(LoopColor, 0.3+0.7*(1-math.Abs(2*p-1)))
	default:
		return TestColor
	}
}

func scale(c RGB, k float64) RGB {
	f := func(v uint8) uint8 { return uint8(math.Round(float64(v) * k)) }
	return RGB{f(c.R), f(c.G), f(c.B)}
}

func (s *Sink) Write(f sequence.Frame) error {
	c := scale(ColorFor(f), s.brightness)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lit && c == s.last {
		return nil
	}
	for i := 0; i < s.pixels; i++ {
		s.buf[i*3], s.buf[i*3+1], s.buf[i*3+2] = c.R, c.G, c.B
	}
	if _, err := s.strip.Write(s.buf); err != nil {
		return fmt.Errorf("strip write: %w", err)
	}
	s.last, s.lit = c, true
	return nil
}

// Halt turns every pixel off.
func (s *Sink) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lit = false
	return s.strip.Halt()
}
