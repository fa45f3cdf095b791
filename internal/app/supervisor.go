package app

import (
	"context"
	"os"
	"time"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/rs/zerolog/log"
)

// Supervisor turns an engine death into a process exit.
type Supervisor struct {
	Engine core.Engine
	Grace  time.Duration
	Exit   func(code int)
}

// Watch blocks until ctx ends or the engine stops. An engine that stops
// while ctx is still live is fatal: the process exits with status 1 after Grace.
func (s *Supervisor) Watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-s.Engine.Done():
	}
	if ctx.Err() != nil {
		return
	}
	log.Error().Str("module", "app.supervisor").Err(s.Engine.Err()).Dur("grace", s.Grace).Msg("media engine died, exiting")
	time.Sleep(s.Grace)
	exit := s.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}
