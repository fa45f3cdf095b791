// Package memory is an engine that routes nothing. It keeps the same object
// graph and state reports as a real engine, for dev mode and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("memory engine: object closed")

type Engine struct {
	mu      sync.Mutex
	done    chan struct{}
	err     error
	stopped bool
	routers map[string]*Router
	ssrc    atomic.Uint32
}

func New() *Engine {
	e := &Engine{
		done:    make(chan struct{}),
		routers: make(map[string]*Router),
	}
	e.ssrc.Store(1000)
	return e
}

func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) CreateRouter(ctx context.Context, codecs []domain.RtpCodecCapability) (core.EngineRouter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, fmt.Errorf("%w: memory engine stopped", core.ErrEngineUnavailable)
	}
	r := &Router{
		engine:     e,
		id:         uuid.NewString(),
		caps:       core.BuildCapabilities(codecs),
		transports: make(map[domain.TransportID]*Transport),
	}
	e.routers[r.id] = r
	log.Debug().Str("module", "engine.memory").Str("router", r.id).Msg("router created")
	return r, nil
}

// Kill stops the engine as if its process died with err.
func (e *Engine) Kill(err error) {
	e.stop(err)
}

func (e *Engine) Close() error {
	e.stop(nil)
	return nil
}

func (e *Engine) stop(err error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.err = err
	routers := make([]*Router, 0, len(e.routers))
	for _, r := range e.routers {
		routers = append(routers, r)
	}
	e.mu.Unlock()

	for _, r := range routers {
		_ = r.Close()
	}
	close(e.done)
}

// Routers returns how many routers are alive.
func (e *Engine) Routers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.routers)
}

func (e *Engine) dropRouter(id string) {
	e.mu.Lock()
	delete(e.routers, id)
	e.mu.Unlock()
}

func (e *Engine) alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.stopped
}

type Router struct {
	engine *Engine
	id     string
	caps   domain.RtpCapabilities

	mu         sync.Mutex
	closed     bool
	transports map[domain.TransportID]*Transport
}

func (r *Router) ID() string                              { return r.id }
func (r *Router) RtpCapabilities() domain.RtpCapabilities { return r.caps.Clone() }

func (r *Router) CreateWebRtcTransport(ctx context.Context, cfg core.ListenConfig) (core.EngineTransport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.engine.alive() {
		return nil, fmt.Errorf("%w: memory engine stopped", core.ErrEngineUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	t := newTransport(r, cfg)
	r.transports[t.id] = t
	return t, nil
}

// Transports returns the live transports of the router.
func (r *Router) Transports() []*Transport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Transport, 0, len(r.transports))
	for _, t := range r.transports {
		out = append(out, t)
	}
	return out
}

func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	transports := r.transports
	r.transports = nil
	r.mu.Unlock()

	// transports owned by a closed router report closed, as a real engine does
	for _, t := range transports {
		t.SetState(domain.TransportClosed)
		_ = t.Close()
	}
	r.engine.dropRouter(r.id)
	return nil
}

func (r *Router) dropTransport(id domain.TransportID) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
}
