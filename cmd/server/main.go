package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/mediagate/internal/adapters/engine/memory"
	router "github.com/dkeye/mediagate/internal/adapters/http"
	"github.com/dkeye/mediagate/internal/adapters/rtc"
	"github.com/dkeye/mediagate/internal/app"
	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/config"
	"github.com/dkeye/mediagate/internal/core"
)

func newEngine(cfg config.EngineConfig) (core.Engine, error) {
	switch cfg.Kind {
	case "memory":
		return memory.New(), nil
	default:
		return rtc.New(rtc.Options{
			ListenIP:    cfg.ListenIP,
			AnnouncedIP: cfg.AnnouncedIP,
			MinPort:     cfg.RTCMinPort,
			MaxPort:     cfg.RTCMaxPort,
			TCPPort:     cfg.TCPPort,
		})
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	engine, err := newEngine(cfg.Engine)
	if err != nil {
		log.Fatal().Err(err).Str("kind", cfg.Engine.Kind).Msg("failed to start media engine")
	}

	listen := core.ListenConfig{
		ListenIP:    cfg.Engine.ListenIP,
		AnnouncedIP: cfg.Engine.AnnouncedIP,
		EnableUDP:   true,
		EnableTCP:   true,
		PreferUDP:   true,
	}
	reg := app.NewRegistry(engine, listen)
	o := &orch.Orchestrator{
		Registry: reg,
		Policy:   app.SimplePolicy{},
	}

	sup := &app.Supervisor{Engine: engine, Grace: cfg.Engine.FatalGrace}
	go sup.Watch(ctx)

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("engine", cfg.Engine.Kind).Msg("mediagate started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := reg.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("registry shutdown incomplete")
	}
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("media engine close failed")
	}
	log.Info().Msg("Server exited gracefully")
}
