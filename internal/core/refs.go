package core

import (
	"context"
	"sync"

	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

type closer interface{ Close() }

// lifecycle tracks what must close together with its owner.
// Children and hooks always run outside the lock.
type lifecycle struct {
	mu       sync.Mutex
	closed   bool
	children map[closer]struct{}
	hooks    []func()
}

// adopt binds c to the owner. It fails once the owner is closed.
func (l *lifecycle) adopt(c closer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	if l.children == nil {
		l.children = make(map[closer]struct{})
	}
	l.children[c] = struct{}{}
	return true
}

func (l *lifecycle) release(c closer) {
	l.mu.Lock()
	delete(l.children, c)
	l.mu.Unlock()
}

// onClose registers fn to run after the owner closed. It runs at once if already closed.
func (l *lifecycle) onClose(fn func()) {
	l.mu.Lock()
	if !l.closed {
		l.hooks = append(l.hooks, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	fn()
}

func (l *lifecycle) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// shutdown marks the owner closed and hands back what is left to close.
// ok is false when someone else already did it.
func (l *lifecycle) shutdown() (children []closer, hooks []func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, nil, false
	}
	l.closed = true
	for c := range l.children {
		children = append(children, c)
	}
	hooks = l.hooks
	l.children = nil
	l.hooks = nil
	return children, hooks, true
}

// TransportRef is one client transport. Closing it closes every producer
// and consumer bound to it.
type TransportRef struct {
	direction domain.Direction
	engine    EngineTransport
	lc        lifecycle

	stateMu sync.RWMutex
	state   domain.TransportState
}

func newTransportRef(dir domain.Direction, et EngineTransport) *TransportRef {
	t := &TransportRef{direction: dir, engine: et, state: domain.TransportNew}
	et.OnStateChange(t.observe)
	return t
}

func (t *TransportRef) ID() domain.TransportID      { return t.engine.ID() }
func (t *TransportRef) Direction() domain.Direction { return t.direction }
func (t *TransportRef) Closed() bool                { return t.lc.isClosed() }

func (t *TransportRef) State() domain.TransportState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.state
}

func (t *TransportRef) setState(s domain.TransportState) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = s
}

func (t *TransportRef) observe(s domain.TransportState) {
	t.setState(s)
	log.Debug().Str("module", "core.transport").Str("transport", string(t.ID())).Str("state", string(s)).Msg("state changed")
	if s == domain.TransportClosed {
		t.Close()
	}
}

func (t *TransportRef) Close() {
	children, hooks, ok := t.lc.shutdown()
	if !ok {
		return
	}
	for _, c := range children {
		c.Close()
	}
	if err := t.engine.Close(); err != nil {
		log.Warn().Str("module", "core.transport").Str("transport", string(t.ID())).Err(err).Msg("engine close failed")
	}
	t.setState(domain.TransportClosed)
	for _, fn := range hooks {
		fn()
	}
}

// ProducerRef is the single outgoing stream of a peer.
// Its consumers, in any peer of the room, close with it.
type ProducerRef struct {
	owner     domain.ConnectionID
	transport *TransportRef
	engine    EngineProducer
	lc        lifecycle
	seq       uint64
}

func (p *ProducerRef) ID() domain.ProducerID               { return p.engine.ID() }
func (p *ProducerRef) Kind() domain.MediaKind              { return p.engine.Kind() }
func (p *ProducerRef) RtpParameters() domain.RtpParameters { return p.engine.RtpParameters() }
func (p *ProducerRef) Owner() domain.ConnectionID          { return p.owner }
func (p *ProducerRef) Transport() *TransportRef            { return p.transport }
func (p *ProducerRef) Closed() bool                        { return p.lc.isClosed() }

func (p *ProducerRef) Close() {
	children, hooks, ok := p.lc.shutdown()
	if !ok {
		return
	}
	for _, c := range children {
		c.Close()
	}
	if err := p.engine.Close(); err != nil {
		log.Warn().Str("module", "core.producer").Str("producer", string(p.ID())).Err(err).Msg("engine close failed")
	}
	p.transport.lc.release(p)
	for _, fn := range hooks {
		fn()
	}
}

// ConsumerRef forwards one producer to one peer. It starts paused.
type ConsumerRef struct {
	owner     domain.ConnectionID
	source    *ProducerRef
	transport *TransportRef
	engine    EngineConsumer
	lc        lifecycle

	pauseMu sync.Mutex
	paused  bool
}

func (c *ConsumerRef) ID() domain.ConsumerID               { return c.engine.ID() }
func (c *ConsumerRef) Kind() domain.MediaKind              { return c.engine.Kind() }
func (c *ConsumerRef) RtpParameters() domain.RtpParameters { return c.engine.RtpParameters() }
func (c *ConsumerRef) Owner() domain.ConnectionID          { return c.owner }
func (c *ConsumerRef) Source() *ProducerRef                { return c.source }
func (c *ConsumerRef) Transport() *TransportRef            { return c.transport }
func (c *ConsumerRef) Closed() bool                        { return c.lc.isClosed() }

func (c *ConsumerRef) Paused() bool {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	return c.paused
}

// Resume starts media flow. Only a live paused consumer can be resumed.
func (c *ConsumerRef) Resume(ctx context.Context) error {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if !c.paused || c.Closed() {
		return ErrConsumerNotFound
	}
	if err := c.engine.Resume(ctx); err != nil {
		return wrapEngine("resume consumer", err)
	}
	c.paused = false
	return nil
}

func (c *ConsumerRef) Close() {
	_, hooks, ok := c.lc.shutdown()
	if !ok {
		return
	}
	if err := c.engine.Close(); err != nil {
		log.Warn().Str("module", "core.consumer").Str("consumer", string(c.ID())).Err(err).Msg("engine close failed")
	}
	c.source.lc.release(c)
	c.transport.lc.release(c)
	for _, fn := range hooks {
		fn()
	}
}
