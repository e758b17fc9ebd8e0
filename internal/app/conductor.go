package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreman2200/usagiclock/internal/audio"
	diag "github.com/coreman2200/usagiclock/internal/diagnostics"
	"github.com/coreman2200/usagiclock/internal/schedule"
	"github.com/coreman2200/usagiclock/internal/sequence"
	"github.com/coreman2200/usagiclock/internal/tests"
	"github.com/coreman2200/usagiclock/internal/ws"
)

// Tick handles one host callback at ts. It reports whether a logical frame
// was processed.
func (c *Core) Tick(ts time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.frame.Dropped()
	if !c.frame.Step(ts) {
		return false
	}
	c.ticks++
	c.Metrics.Frames.Inc()
	if d := c.frame.Dropped() - before; d > 0 {
		c.dropped += d
		c.Metrics.Dropped.Add(float64(d))
		c.log.Debug().Uint64("frames", d).Msg("dropped frames to catch up")
		c.Hub.PushDiag(diag.New(diag.Warn, diag.CodeFramesDropped, "Dropped frames to catch up").With("frames", d))
	}

	now := c.Clock.Now()
	if c.runner != nil {
		c.stepRunner()
		return true
	}

	if c.reconcile(now) {
		// Show the entry frame of the new mode before advancing past it.
		c.Player.StepBy(0, now)
	} else {
		c.Player.Step(now)
	}

	if c.Player.Mode() == sequence.Idle && !c.Player.Paused() && c.tickCue.Step(ts) {
		c.Audio.PlayOneShot(audio.ClassTick, c.Cues.Tick, nil)
	}
	return true
}

// reconcile applies the schedule: start an alarm when the condition holds
// and the player is idle, cancel a scheduled alarm when it stops holding.
// Manually triggered alarms are left to finish on their own. It reports
// whether the mode changed.
func (c *Core) reconcile(now time.Time) bool {
	should := schedule.ShouldTrigger(c.Settings(), now)
	mode := c.Player.Mode()
	switch {
	case should && mode == sequence.Idle:
		c.manual = false
		return c.Player.Trigger(now)
	case !should && mode.Alarm() && !c.manual:
		c.cancelled = true
		defer func() { c.cancelled = false }()
		return c.Player.ForceIdle(now)
	}
	return false
}

func (c *Core) stepRunner() {
	f, ok := c.runner.Step()
	if !ok {
		c.log.Info().Str("test", string(c.runner.Kind())).Msg("test complete")
		c.Hub.PushDiag(diag.New(diag.Info, diag.CodeTestDone, "Test complete").With("test", c.runner.Kind()))
		c.runner = nil
		return
	}
	f.At = c.Clock.Now()
	c.onFrame(f)
}

func (c *Core) onFrame(f sequence.Frame) {
	// Sink failures are counted by the engine and never stop the loop.
	_ = c.Engine.RenderOnce(f)
}

func (c *Core) onTransition(t sequence.Transition, s sequence.State, at time.Time) {
	c.Metrics.Transition(t, c.cancelled)
	ev := c.log.Info().Str("from", string(t.From)).Str("to", string(t.To)).Int("index", s.Position)

	switch t.To {
	case sequence.AlarmIntro:
		ev.Bool("manual", c.manual).Msg("alarm started")
		c.Hub.PushDiag(diag.New(diag.Info, diag.CodeAlarmStart, "Alarm started").With("manual", c.manual))
		c.Audio.StopAll()
		loop := c.Cues.AlarmLoop
		c.Audio.PlayOneShot(audio.ClassAlarm, c.Cues.Alarm, func() {
			// Runs on the audio goroutine; it may only read the mode. The
			// mode is committed before the Idle StopAll, so checking it under
			// the controller lock cannot leave a loop running in Idle.
			c.Audio.PlayLoopIf(loop, func() bool { return c.Player.Mode().Alarm() })
		})
	case sequence.AlarmLoop:
		ev.Msg("alarm looping")
		c.Hub.PushDiag(diag.New(diag.Info, diag.CodeAlarmLoop, "Alarm looping"))
	case sequence.Idle:
		c.Audio.StopAll()
		c.tickCue.Reset()
		c.manual = false
		if c.cancelled {
			ev.Msg("alarm cancelled")
			c.Hub.PushDiag(diag.New(diag.Info, diag.CodeAlarmCancel, "Alarm cancelled"))
		} else {
			ev.Dur("looped", at.Sub(s.AlarmEnteredAt)).Msg("alarm finished")
			c.Hub.PushDiag(diag.New(diag.Info, diag.CodeAlarmDone, "Alarm finished"))
		}
	}
}

// Control applies a debug or remote command between ticks.
func (c *Core) Control(ctx context.Context, cmd ws.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Clock.Now()
	switch cmd.Cmd {
	case "trigger":
		prev := c.manual
		c.manual = true
		if !c.Player.Trigger(now) {
			c.manual = prev
			return fmt.Errorf("alarm already active (%s)", c.Player.Mode())
		}
		c.Player.StepBy(0, now)
	case "reset":
		c.runner = nil
		c.cancelled = true
		c.Player.Reset(now)
		c.cancelled = false
		c.Audio.StopAll()
		c.Player.StepBy(0, now)
	case "pause":
		c.Player.Pause()
		c.Audio.StopAll()
	case "resume":
		c.Player.Resume()
	case "toggle":
		if c.Player.Paused() {
			c.Player.Resume()
		} else {
			c.Player.Pause()
			c.Audio.StopAll()
		}
	case "step":
		delta := cmd.Delta
		if delta == 0 {
			delta = 1
		}
		c.Player.Pause()
		c.Player.StepBy(delta, now)
	case "test":
		r := tests.NewRunner(tests.Plan{Kind: tests.Kind(cmd.Test)}, c.Table, c.Indices)
		if r == nil {
			c.Hub.PushDiag(diag.New(diag.Warn, diag.CodeTestUnknown, "Unknown test name").With("name", cmd.Test))
			return fmt.Errorf("%w: test %q", ws.ErrUnknownCommand, cmd.Test)
		}
		c.runner = r
		c.Hub.PushDiag(diag.New(diag.Info, diag.CodeTestRunning, "Running test").With("test", cmd.Test).With("frames", r.Len()))
	case "mute", "unmute":
		if c.Output != nil {
			c.Output.SetMuted(cmd.Cmd == "mute")
		}
	default:
		return fmt.Errorf("%w: %q", ws.ErrUnknownCommand, cmd.Cmd)
	}
	c.log.Debug().Str("cmd", cmd.Cmd).Int("delta", cmd.Delta).Msg("control")
	return nil
}

// Status reports the current frame and counters.
func (c *Core) Status() ws.Status {
	c.mu.Lock()
	ticks, dropped, testing := c.ticks, c.dropped, c.runner != nil
	c.mu.Unlock()

	st := c.Player.State()
	out := ws.Status{
		Frame:    c.Player.Current(),
		Paused:   c.Player.Paused(),
		FPS:      c.Cfg.FrameRate,
		Frames:   ticks,
		Dropped:  dropped,
		Audio:    c.Output.Enabled(),
		Cues:     c.Audio.Active(),
		Sinks:    c.Engine.Sinks(),
		Settings: c.Settings(),
	}
	if !st.AlarmEnteredAt.IsZero() {
		t := st.AlarmEnteredAt
		out.Alarm = &t
	}
	if testing {
		out.Extra = map[string]float64{"testing": 1}
	}
	return out
}

func (c *Core) LoadSettings(context.Context) schedule.Settings { return c.Settings() }

// SaveSettings persists s immediately; the next tick reconciles against it.
func (c *Core) SaveSettings(ctx context.Context, s schedule.Settings) error {
	if err := c.Store.Save(ctx, s); err != nil {
		return err
	}
	c.settings.Store(&s)
	c.Metrics.Settings.Inc()
	c.log.Info().Interface("settings", s).Msg("alarm settings saved")
	return nil
}
