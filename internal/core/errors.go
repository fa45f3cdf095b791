package core

import (
	"errors"
	"fmt"
)

var (
	ErrEngineUnavailable        = errors.New("engine unavailable")
	ErrTransportNotReady        = errors.New("transport not ready")
	ErrDuplicateConnection      = errors.New("duplicate connection")
	ErrSessionNotReady          = errors.New("session not ready")
	ErrIncompatibleCapabilities = errors.New("incompatible capabilities")
	ErrConsumerNotFound         = errors.New("consumer not found")
	ErrNotFound                 = errors.New("not found")
	ErrBadRequest               = errors.New("bad request")
)

// ErrorCode maps an error onto the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEngineUnavailable):
		return "EngineUnavailable"
	case errors.Is(err, ErrTransportNotReady):
		return "TransportNotReady"
	case errors.Is(err, ErrDuplicateConnection):
		return "DuplicateConnection"
	case errors.Is(err, ErrSessionNotReady):
		return "SessionNotReady"
	case errors.Is(err, ErrIncompatibleCapabilities):
		return "IncompatibleCapabilities"
	case errors.Is(err, ErrConsumerNotFound):
		return "ConsumerNotFound"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrBadRequest):
		return "BadRequest"
	}
	return "Internal"
}

// wrapEngine tags an engine failure as ErrEngineUnavailable unless the
// engine already said what went wrong.
func wrapEngine(op string, err error) error {
	for _, known := range []error{ErrEngineUnavailable, ErrIncompatibleCapabilities, ErrBadRequest, ErrNotFound, ErrConsumerNotFound} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, op, err)
}
