package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/usagiclock/internal/app"
	"github.com/coreman2200/usagiclock/internal/config"
	"github.com/coreman2200/usagiclock/internal/driver/fake"
	"github.com/coreman2200/usagiclock/internal/render"
	"github.com/coreman2200/usagiclock/internal/schedule"
	"github.com/coreman2200/usagiclock/internal/sequence"
	"github.com/coreman2200/usagiclock/internal/settings"
)

// seqsim runs the player against a simulated clock, as fast as the CPU
// allows, and prints every mode change.
func main() {
	var (
		configPath = flag.String("config", "", "optional config.yaml")
		startAt    = flag.String("start", "09:59:50", "simulated wall-clock start (HH:MM:SS)")
		run        = flag.Duration("for", 2*time.Minute, "simulated run length")
		refresh    = flag.Float64("refresh", 60, "host callback rate (Hz)")
		jitter     = flag.Duration("jitter", 2*time.Millisecond, "max callback jitter")
		stall      = flag.Duration("stall", 0, "inject one stall of this length at t=10s")
		period     = flag.String("period", "", "period alarm window HH:MM-HH:MM (empty: off)")
		noHour     = flag.Bool("no-whole-hour", false, "disable the whole-hour alarm")
		frames     = flag.Bool("frames", false, "print every frame")
		seed       = flag.Int64("seed", 1, "jitter seed")
	)
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("config")
		}
		cfg = c
	}
	cfg.Preload = false
	cfg.Audio.Enabled = false
	cfg.RefreshRate = *refresh

	t0, err := time.Parse("15:04:05", *startAt)
	if err != nil {
		log.Fatal().Err(err).Msg("start")
	}
	now := time.Now()
	t0 = time.Date(now.Year(), now.Month(), now.Day(), t0.Hour(), t0.Minute(), t0.Second(), 0, time.Local)

	s := schedule.DefaultSettings()
	s.WholeHourAlarmEnabled = !*noHour
	if *period != "" {
		var sh, sm, eh, em int
		if _, err := fmt.Sscanf(*period, "%d:%d-%d:%d", &sh, &sm, &eh, &em); err != nil {
			log.Fatal().Err(err).Msg("period")
		}
		s.PeriodAlarmEnabled = true
		s.StartHour, s.StartMinute, s.EndHour, s.EndMinute = sh, sm, eh, em
	}
	if err := s.Validate(); err != nil {
		log.Fatal().Err(err).Msg("period")
	}
	store := &settings.Memory{}
	_ = store.Save(context.Background(), s)

	clk := schedule.NewMockClock(t0)
	rec := &fake.Driver{}
	if *frames {
		rec.Out = os.Stdout
	}
	last := sequence.Mode("")
	modes := render.SinkFunc(func(f sequence.Frame) error {
		if f.Mode != last {
			fmt.Printf("%s  %-11s -> %-11s frame=%d index=%d\n",
				f.At.Format("15:04:05.000"), last, f.Mode, f.ID, f.Index)
			last = f.Mode
		}
		return nil
	})

	core, err := app.InitCore(context.Background(), cfg, app.Options{
		Log:       log.Logger,
		Clock:     clk,
		Store:     store,
		Sinks:     map[string]render.Sink{"record": rec, "modes": modes},
		NoSpeaker: true,
		NoDisplay: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer core.Stop()

	rng := rand.New(rand.NewSource(*seed))
	step := time.Duration(float64(time.Second) / *refresh)
	ts := time.Unix(0, 0)
	elapsed := time.Duration(0)
	stalled := false
	for elapsed < *run {
		d := step
		if *jitter > 0 {
			d += time.Duration(rng.Int63n(int64(2**jitter))) - *jitter
		}
		if *stall > 0 && !stalled && elapsed >= 10*time.Second {
			d += *stall
			stalled = true
		}
		elapsed += d
		ts = ts.Add(d)
		clk.Advance(d)
		core.Tick(ts)
	}

	st := core.Status()
	fmt.Printf("simulated %s: %d frames (%.2f fps), %d dropped, %d rendered\n",
		elapsed.Round(time.Millisecond), st.Frames, float64(st.Frames)/elapsed.Seconds(), st.Dropped, rec.Count())
}
