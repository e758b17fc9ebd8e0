// Package display draws frames on a small attached panel through periph, or
// on the terminal when no panel is found.
package display

import (
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/screen1d"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/coreman2200/usagiclock/internal/frames"
	"github.com/coreman2200/usagiclock/internal/sequence"
)

// Config selects the panel.
type Config struct {
	// Kind is "i2c", "spi", "console" or "auto" (i2c, then spi, then console).
	Kind   string `yaml:"kind"`
	Bus    string `yaml:"bus"`
	DCPin  string `yaml:"dc_pin"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// ConsoleWidth is the number of cells of the terminal preview strip.
	ConsoleWidth int `yaml:"console_width"`
}

// Sink scales each frame image to the panel and draws it. Redraws of an
// unchanged frame id are skipped.
type Sink struct {
	drawer   display.Drawer
	resolver frames.Resolver
	kind     string
	log      zerolog.Logger

	mu     sync.Mutex
	last   frames.ID
	drawn  bool
	scaled map[frames.ID]*image.RGBA
}

// Open initialises periph and the configured panel, falling back to the
// terminal strip.
func Open(cfg Config, r frames.Resolver, log zerolog.Logger) (*Sink, error) {
	log = log.With().Str("component", "display").Logger()
	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed")
	}

	kind := cfg.Kind
	if kind == "" {
		kind = "auto"
	}
	var (
		d   display.Drawer
		err error
	)
	switch kind {
	case "i2c":
		d, err = openI2C(cfg)
	case "spi":
		d, err = openSPI(cfg)
	case "console":
	case "auto":
		if d, err = openI2C(cfg); err != nil {
			log.Debug().Err(err).Msg("no i2c panel")
			d, err = openSPI(cfg)
			if err != nil {
				log.Debug().Err(err).Msg("no spi panel")
			}
		}
		if err != nil {
			kind, d, err = "console", nil, nil
		}
	default:
		return nil, fmt.Errorf("unknown display kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	if d == nil {
		kind = "console"
		w := cfg.ConsoleWidth
		if w <= 0 {
			w = 100
		}
		d = screen1d.New(&screen1d.Opts{X: w})
		log.Info().Int("width", w).Msg("no panel found, printing at the console")
	} else {
		log.Info().Str("kind", kind).Stringer("panel", d).Msg("panel ready")
	}
	return New(d, r, kind, log), nil
}

// New wraps an already opened Drawer.
func New(d display.Drawer, r frames.Resolver, kind string, log zerolog.Logger) *Sink {
	return &Sink{drawer: d, resolver: r, kind: kind, log: log, scaled: map[frames.ID]*image.RGBA{}}
}

func (s *Sink) Kind() string { return s.kind }

func opts(cfg Config) *ssd1306.Opts {
	o := ssd1306.DefaultOpts
	if cfg.Width > 0 {
		o.W = cfg.Width
	}
	if cfg.Height > 0 {
		o.H = cfg.Height
	}
	return &o
}

func openI2C(cfg Config) (display.Drawer, error) {
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, err
	}
	d, err := ssd1306.NewI2C(bus, opts(cfg))
	if err != nil {
		bus.Close()
		return nil, err
	}
	return d, nil
}

func openSPI(cfg Config) (display.Drawer, error) {
	port, err := spireg.Open(cfg.Bus)
	if err != nil {
		return nil, err
	}
	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		port.Close()
		return nil, fmt.Errorf("dc pin %q not found", cfg.DCPin)
	}
	d, err := ssd1306.NewSPI(port, dc, opts(cfg))
	if err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

func (s *Sink) Write(f sequence.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawn && f.ID == s.last {
		return nil
	}
	img, err := s.scaledLocked(f.ID)
	if err != nil {
		return err
	}
	if err := s.drawer.Draw(s.drawer.Bounds(), img, image.Point{}); err != nil {
		return err
	}
	s.last, s.drawn = f.ID, true
	return nil
}

func (s *Sink) scaledLocked(id frames.ID) (*image.RGBA, error) {
	if img, ok := s.scaled[id]; ok {
		return img, nil
	}
	src, err := s.resolver.Resolve(id)
	if err != nil {
		return nil, err
	}
	b := s.drawer.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	s.scaled[id] = dst
	return dst, nil
}

// Halt blanks the panel.
func (s *Sink) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawn = false
	return s.drawer.Halt()
}
