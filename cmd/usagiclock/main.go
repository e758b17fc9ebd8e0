package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/usagiclock/internal/app"
	"github.com/coreman2200/usagiclock/internal/config"
	"github.com/coreman2200/usagiclock/internal/ws"
)

func main() {
	// ---- Flags (config.yaml supplies the rest) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "HTTP listen address (overrides http.addr)")
		framesDir  = flag.String("frames", "", "frame image directory (overrides frames_dir)")
		display    = flag.String("display", "", "display: auto | i2c | spi | console | none")
		noAudio    = flag.Bool("no-audio", false, "disable sound output")
		settingsBE = flag.String("settings", "", "settings backend: file | redis | memory")
		logLevel   = flag.String("log-level", "", "debug | info | warn | error")
		console    = flag.Bool("console", false, "interactive debug console on stdin")
		qr         = flag.Bool("qr", false, "print a QR code for the web viewer")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *framesDir != "" {
		cfg.FramesDir = *framesDir
	}
	if *display != "" {
		cfg.Display.Kind = *display
	}
	if *noAudio {
		cfg.Audio.Enabled = false
	}
	if *settingsBE != "" {
		cfg.Settings.Backend = *settingsBE
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *qr {
		cfg.HTTP.QR = true
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level; using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.InitCore(ctx, cfg, app.Options{Log: log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	core.Hub.Routes(mux)
	mux.Handle("/metrics", core.Metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      ws.WithCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run tick loop & server ----
	core.Start(ctx)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Float64("fps", cfg.FrameRate).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()
	if cfg.HTTP.QR {
		url := ws.ViewerURL(cfg.HTTP.Addr)
		if err := ws.PrintQR(os.Stdout, url); err != nil {
			log.Warn().Err(err).Msg("qr render failed")
		}
		log.Info().Str("url", url).Msg("viewer")
	}
	if *console {
		go func() {
			runConsole(ctx, core)
			stop()
		}()
	}

	// ---- Graceful shutdown ----
	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	core.Stop()
}
