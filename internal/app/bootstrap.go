package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coreman2200/usagiclock/internal/audio"
	"github.com/coreman2200/usagiclock/internal/config"
	diag "github.com/coreman2200/usagiclock/internal/diagnostics"
	"github.com/coreman2200/usagiclock/internal/driver/display"
	"github.com/coreman2200/usagiclock/internal/driver/indicator"
	"github.com/coreman2200/usagiclock/internal/frames"
	"github.com/coreman2200/usagiclock/internal/metrics"
	"github.com/coreman2200/usagiclock/internal/pacing"
	"github.com/coreman2200/usagiclock/internal/render"
	"github.com/coreman2200/usagiclock/internal/schedule"
	"github.com/coreman2200/usagiclock/internal/sequence"
	"github.com/coreman2200/usagiclock/internal/settings"
	"github.com/coreman2200/usagiclock/internal/tests"
	"github.com/coreman2200/usagiclock/internal/ws"
)

// Options override what InitCore would otherwise build from the config.
type Options struct {
	Log   zerolog.Logger
	Clock schedule.Clock
	Store settings.Store
	// Sinks are attached to the render engine in addition to the defaults.
	Sinks     map[string]render.Sink
	NoSpeaker bool
	NoDisplay bool
}

// Core owns every long-lived component of the clock.
type Core struct {
	Cfg      *config.Config
	Table    *frames.Table
	Indices  frames.Indices
	Resolver *frames.DirResolver
	Player   *sequence.Player
	Engine   *render.Engine
	Audio    *audio.Controller
	Output   *audio.Output
	Cues     audio.Assets
	Store    settings.Store
	Clock    schedule.Clock
	Metrics  *metrics.Metrics
	Hub      *ws.State
	Display  *display.Sink

	log zerolog.Logger

	// mu serialises ticks and control commands; no two ever overlap.
	mu        sync.Mutex
	frame     *pacing.Pacer
	tickCue   *pacing.Pacer
	runner    *tests.Runner
	manual    bool
	cancelled bool
	ticks     uint64
	dropped   uint64

	settings atomic.Pointer[schedule.Settings]

	cancel   context.CancelFunc
	done     chan struct{}
	closers  []func()
	stopOnce sync.Once
}

// InitCore builds the frame table and every collaborator. Structural
// configuration errors (keyframes, markers, missing frame images) abort here.
func InitCore(ctx context.Context, cfg *config.Config, opt Options) (*Core, error) {
	log := opt.Log
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// 1) Frame table and markers
	tbl, err := frames.Build(cfg.Keyframes)
	if err != nil {
		return nil, err
	}
	ix, err := cfg.Markers.Resolve(tbl)
	if err != nil {
		return nil, err
	}
	log.Info().Int("positions", tbl.Len()).Int("keyframes", len(cfg.Keyframes)).
		Int("first", int(tbl.First())).Int("last", int(tbl.Last())).Msg("frame table built")

	// 2) Frame images
	res := frames.NewDirResolver(cfg.FramesDir, cfg.FrameExt)
	if cfg.Preload {
		start := time.Now()
		if err := frames.Preload(ctx, res, tbl.Keyframes(), 8); err != nil {
			return nil, fmt.Errorf("preload frames from %s: %w", cfg.FramesDir, err)
		}
		log.Info().Dur("took", time.Since(start)).Msg("frames preloaded")
	}

	c := &Core{
		Cfg:      cfg,
		Table:    tbl,
		Indices:  ix,
		Resolver: res,
		Clock:    opt.Clock,
		Metrics:  metrics.New(),
		log:      log,
		done:     make(chan struct{}),
	}
	if c.Clock == nil {
		c.Clock = schedule.RealClock{}
	}

	// 3) Pacers
	c.frame = pacing.FromRate(cfg.FrameRate)
	c.tickCue = &pacing.Pacer{Interval: cfg.TickCueInterval, Immediate: true}

	// 4) Render engine and sinks
	c.Engine = render.NewEngine(log)
	c.Engine.OnError = func(sink string, err error) {
		c.Metrics.SinkErrors.WithLabelValues(sink).Inc()
		c.Hub.PushDiag(diag.New(diag.Err, diag.CodeSinkError, "Render sink failed").With("sink", sink).With("error", err.Error()))
	}
	c.Hub = ws.NewState(c, res, cfg.HTTP.Throttle)
	if err := c.Engine.Attach("ws", c.Hub); err != nil {
		return nil, err
	}
	if !opt.NoDisplay && cfg.Display.Kind != "none" {
		d, err := display.Open(cfg.Display, res, log)
		if err != nil {
			log.Warn().Err(err).Msg("display unavailable")
		} else {
			c.Display = d
			_ = c.Engine.Attach("display", d)
			c.closers = append(c.closers, func() { _ = d.Halt() })
		}
	}
	if !opt.NoDisplay && cfg.Indicator.Enabled {
		ind, err := indicator.Open(cfg.Indicator, log)
		if err != nil {
			log.Warn().Err(err).Msg("indicator strip unavailable")
		} else {
			_ = c.Engine.Attach("indicator", ind)
			c.closers = append(c.closers, func() { _ = ind.Halt() })
		}
	}
	for name, s := range opt.Sinks {
		if err := c.Engine.Attach(name, s); err != nil {
			return nil, err
		}
	}

	// 5) Audio
	c.Audio = audio.NewController()
	c.Audio.Played = func(name string) { c.Metrics.CuePlays.WithLabelValues(name).Inc() }
	sr := beep.SampleRate(cfg.Audio.SampleRate)
	if sr <= 0 {
		sr = audio.DefaultSampleRate
	}
	if cfg.Audio.Enabled {
		if cfg.Audio.Synthesize {
			made, err := audio.EnsureWAV(cfg.Audio.Cues, int(sr))
			if err != nil {
				log.Warn().Err(err).Msg("placeholder cue generation failed")
			}
			for _, p := range made {
				log.Info().Str("path", p).Msg("wrote placeholder cue")
			}
		}
		c.Cues = audio.LoadAssets(cfg.Audio.Cues, sr, log)
		if !opt.NoSpeaker {
			c.Output = audio.Open(c.Audio, sr, cfg.Audio.Buffer, cfg.Audio.Volume, cfg.Audio.Muted, log)
		}
	} else {
		c.Cues = audio.Assets{Tick: audio.NewCue("tick", nil), Alarm: audio.NewCue("alarm", nil), AlarmLoop: audio.NewCue("alarm_loop", nil)}
	}

	for _, cue := range []*audio.Cue{c.Cues.Tick, c.Cues.Alarm, c.Cues.AlarmLoop} {
		if cue.Silent() && cfg.Audio.Enabled {
			c.Hub.PushDiag(diag.New(diag.Warn, diag.CodeCueMissing, "Audio cue unavailable").With("cue", cue.Name))
		}
	}
	if !c.Output.Enabled() {
		c.Hub.PushDiag(diag.New(diag.Info, diag.CodeAudioSilent, "Audio output disabled"))
	}

	// 6) Settings
	c.Store = opt.Store
	if c.Store == nil {
		st, closeStore, err := openStore(ctx, cfg.Settings, log)
		if err != nil {
			return nil, err
		}
		c.Store = st
		if closeStore != nil {
			c.closers = append(c.closers, closeStore)
		}
	}
	s := c.Store.Load(ctx)
	c.settings.Store(&s)
	log.Info().Interface("settings", s).Msg("alarm settings loaded")

	// 7) Player wired to render and audio through hooks
	m := sequence.NewMachine(ix, cfg.AlarmDuration)
	c.Player = sequence.NewPlayer(tbl, m, sequence.Hooks{
		OnFrame:      c.onFrame,
		OnTransition: c.onTransition,
	})
	return c, nil
}

// openStore builds the configured settings backend. An unreachable Redis
// degrades to the file store.
func openStore(ctx context.Context, cfg config.SettingsCfg, log zerolog.Logger) (settings.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return &settings.Memory{}, nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; using file settings")
			return settings.NewFile(cfg.Path, log), nil, nil
		}
		return settings.NewRedis(client, cfg.RedisPrefix, log), func() { _ = client.Close() }, nil
	case "file", "":
		return settings.NewFile(cfg.Path, log), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

// Start runs the tick loop at the configured refresh rate until ctx ends or
// Stop is called.
func (c *Core) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		tick := time.NewTicker(time.Duration(float64(time.Second) / c.Cfg.RefreshRate))
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ts := <-tick.C:
				c.Tick(ts)
			}
		}
	}()
}

// Stop halts ticking and releases audio and devices. It is safe to call on a
// Core that never started, and more than once.
func (c *Core) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
		if c.Audio != nil {
			c.Audio.StopAll()
		}
		if c.Output != nil {
			c.Output.Close()
		}
		for i := len(c.closers) - 1; i >= 0; i-- {
			c.closers[i]()
		}
	})
}

// Settings is the cached copy of the persisted alarm settings.
func (c *Core) Settings() schedule.Settings { return *c.settings.Load() }
