package rtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerFactory routes pion's internal logs into the global zerolog logger.
// pion is chatty: its info level is reported as debug.
type LoggerFactory struct{}

func (LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	l := log.With().Str("module", "pion").Str("scope", scope).Logger()
	return &leveled{l: l}
}

type leveled struct {
	l zerolog.Logger
}

func (p *leveled) Trace(msg string)                  { p.l.Trace().Msg(msg) }
func (p *leveled) Tracef(format string, args ...any) { p.l.Trace().Msgf(format, args...) }
func (p *leveled) Debug(msg string)                  { p.l.Trace().Msg(msg) }
func (p *leveled) Debugf(format string, args ...any) { p.l.Trace().Msgf(format, args...) }
func (p *leveled) Info(msg string)                   { p.l.Debug().Msg(msg) }
func (p *leveled) Infof(format string, args ...any)  { p.l.Debug().Msgf(format, args...) }
func (p *leveled) Warn(msg string)                   { p.l.Warn().Msg(msg) }
func (p *leveled) Warnf(format string, args ...any)  { p.l.Warn().Msgf(format, args...) }
func (p *leveled) Error(msg string)                  { p.l.Error().Msg(msg) }
func (p *leveled) Errorf(format string, args ...any) { p.l.Error().Msgf(format, args...) }
