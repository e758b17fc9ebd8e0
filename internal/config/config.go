package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/usagiclock/internal/audio"
	"github.com/coreman2200/usagiclock/internal/driver/display"
	"github.com/coreman2200/usagiclock/internal/driver/indicator"
	"github.com/coreman2200/usagiclock/internal/frames"
)

type AudioCfg struct {
	Enabled    bool          `yaml:"enabled"`
	Cues       audio.Paths   `yaml:"cues"`
	SampleRate int           `yaml:"sample_rate"`
	Buffer     time.Duration `yaml:"buffer"`
	// Volume is a power-of-two gain; 0 is unity, -1 halves.
	Volume float64 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`
	// Synthesize writes placeholder WAVs for missing cue files.
	Synthesize bool `yaml:"synthesize"`
}

type SettingsCfg struct {
	Backend     string `yaml:"backend"` // "file" | "redis" | "memory"
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type HTTPCfg struct {
	Addr string `yaml:"addr"`
	// Throttle limits repeated-frame broadcasts to viewers.
	Throttle time.Duration `yaml:"throttle"`
	QR       bool          `yaml:"qr"`
}

type Config struct {
	FrameRate float64        `yaml:"frame_rate"`
	Keyframes []frames.ID    `yaml:"keyframes"`
	Markers   frames.Markers `yaml:"markers"`

	AlarmDuration   time.Duration `yaml:"alarm_duration"`
	TickCueInterval time.Duration `yaml:"tick_cue_interval"`
	// RefreshRate is the host callback rate driving the pacer, in Hz.
	RefreshRate float64 `yaml:"refresh_rate"`

	FramesDir string `yaml:"frames_dir"`
	FrameExt  string `yaml:"frame_ext"`
	Preload   bool   `yaml:"preload"`

	Display   display.Config   `yaml:"display"`
	Indicator indicator.Config `yaml:"indicator"`
	Audio     AudioCfg         `yaml:"audio"`
	Settings  SettingsCfg      `yaml:"settings"`
	HTTP      HTTPCfg          `yaml:"http"`
	LogLevel  string           `yaml:"log_level"`
}

// DefaultKeyframes are the frames that ship with image content.
var DefaultKeyframes = []frames.ID{
	541, 545, 548, 552, 556, 560, 563, 567, 571, 575, 578, 582, 597, 601, 605,
	608, 646, 678, 688, 690, 691, 692, 693, 695, 696, 697, 698, 700, 701, 702,
	703, 705, 706, 707, 708, 710, 711, 712, 713, 715, 716, 717, 718, 720, 721,
	722, 723, 725, 726, 727, 728, 730, 731, 732, 733, 735, 736, 737, 738, 740,
	741, 742, 743, 745, 746, 747, 748, 750, 751, 752, 753, 755, 756, 757, 758,
	760, 761, 762, 763, 765, 766, 767, 768, 770, 771, 772, 773, 775, 776, 777,
	778, 780, 781, 782, 783, 785, 786, 787, 788,
}

func Default() *Config {
	kf := make([]frames.ID, len(DefaultKeyframes))
	copy(kf, DefaultKeyframes)
	return &Config{
		FrameRate: 29.97,
		Keyframes: kf,
		Markers: frames.Markers{
			TiktokLoop: frames.Range{L: 552, R: 582},
			AlarmFrame: 678,
			AlarmLoop:  frames.Range{L: 743, R: 788},
		},
		AlarmDuration:   60 * time.Second,
		TickCueInterval: 2 * time.Second,
		RefreshRate:     60,
		FramesDir:       "assets/frames",
		FrameExt:        ".png",
		Preload:         true,
		Display:         display.Config{Kind: "auto", Width: 128, Height: 64, ConsoleWidth: 100},
		Indicator:       indicator.Config{Bus: "SPI0.0", Pixels: 8, Brightness: 0.6},
		Audio: AudioCfg{
			Enabled: true,
			Cues: audio.Paths{
				Tick:      "assets/audio/tiktok.wav",
				Alarm:     "assets/audio/alarm.wav",
				AlarmLoop: "assets/audio/alarm_loop.wav",
			},
			SampleRate: int(audio.DefaultSampleRate),
			Buffer:     100 * time.Millisecond,
		},
		Settings: SettingsCfg{Backend: "file", Path: "state/settings.json", RedisAddr: "localhost:6379", RedisPrefix: "usagiclock"},
		HTTP:     HTTPCfg{Addr: ":8080", Throttle: 250 * time.Millisecond},
		LogLevel: "info",
	}
}

// Validate checks the values a running player depends on. Marker placement
// is checked later against the built frame table.
func (c *Config) Validate() error {
	var errs []error
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("frame_rate %v out of range (0,240]", c.FrameRate))
	}
	if c.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("refresh_rate %v must be positive", c.RefreshRate))
	}
	if c.AlarmDuration <= 0 {
		errs = append(errs, fmt.Errorf("alarm_duration %v must be positive", c.AlarmDuration))
	}
	if c.TickCueInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_cue_interval %v must be positive", c.TickCueInterval))
	}
	if len(c.Keyframes) == 0 {
		errs = append(errs, frames.ErrEmptyKeyframeSet)
	}
	switch c.Settings.Backend {
	case "file", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("settings.backend %q: want file, redis or memory", c.Settings.Backend))
	}
	return errors.Join(errs...)
}

// FrameInterval is the target time per logical frame.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// Load reads path over Default(), so a partial file only overrides the keys
// it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
