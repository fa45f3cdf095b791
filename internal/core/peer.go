package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

var errPeerClosed = fmt.Errorf("%w: peer session closed", ErrNotFound)

// PeerSession is the negotiation state of one client connection.
// Engine calls are never made under mu; every step re-checks closed after
// the engine returns and tears down what it just created if the peer went away.
type PeerSession struct {
	id      domain.ConnectionID
	routing *RoutingContext
	listen  ListenConfig

	mu           sync.Mutex
	closed       bool
	state        domain.NegotiationState
	transports   map[domain.Direction]*TransportRef
	producer     *ProducerRef
	consumers    map[domain.ProducerID]*ConsumerRef
	lastConsumer *ConsumerRef

	onConsumerClosed func(*ConsumerRef)
}

func NewPeerSession(id domain.ConnectionID, routing *RoutingContext, listen ListenConfig) *PeerSession {
	return &PeerSession{
		id:         id,
		routing:    routing,
		listen:     listen,
		state:      domain.StateConnected,
		transports: make(map[domain.Direction]*TransportRef),
		consumers:  make(map[domain.ProducerID]*ConsumerRef),
	}
}

func (p *PeerSession) ID() domain.ConnectionID  { return p.id }
func (p *PeerSession) RoomID() domain.RoomID    { return p.routing.RoomID() }
func (p *PeerSession) Routing() *RoutingContext { return p.routing }

// OnConsumerClosed is called when a consumer of this peer died because its
// source producer went away.
func (p *PeerSession) OnConsumerClosed(fn func(*ConsumerRef)) {
	p.mu.Lock()
	p.onConsumerClosed = fn
	p.mu.Unlock()
}

func (p *PeerSession) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *PeerSession) State() domain.NegotiationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.producer != nil:
		return domain.StateProducing
	case len(p.consumers) > 0:
		return domain.StateConsuming
	}
	return p.state
}

func (p *PeerSession) Producing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.producer != nil
}

func (p *PeerSession) Consuming() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.consumers) > 0
}

func (p *PeerSession) Transport(dir domain.Direction) *TransportRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transports[dir]
}

func (p *PeerSession) Producer() *ProducerRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.producer
}

func (p *PeerSession) Consumer(id domain.ConsumerID) (*ConsumerRef, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consumerLocked(id)
}

func (p *PeerSession) consumerLocked(id domain.ConsumerID) (*ConsumerRef, bool) {
	if id == "" {
		if p.lastConsumer == nil || p.lastConsumer.Closed() {
			return nil, false
		}
		return p.lastConsumer, true
	}
	for _, c := range p.consumers {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

func (p *PeerSession) advance(s domain.NegotiationState) {
	if s > p.state {
		p.state = s
	}
}

// GetCapabilities returns the room's capability set.
func (p *PeerSession) GetCapabilities() (domain.RtpCapabilities, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.RtpCapabilities{}, errPeerClosed
	}
	p.advance(domain.StateCapabilitiesExchanged)
	return p.routing.Capabilities(), nil
}

// CreateTransport creates the transport for one direction, replacing and
// closing any previous transport of that direction.
func (p *PeerSession) CreateTransport(ctx context.Context, dir domain.Direction) (domain.TransportParams, error) {
	if !dir.Valid() {
		return domain.TransportParams{}, fmt.Errorf("%w: direction %q", ErrBadRequest, dir)
	}
	if p.Closed() {
		return domain.TransportParams{}, errPeerClosed
	}
	et, err := p.routing.Router().CreateWebRtcTransport(ctx, p.listen)
	if err != nil {
		return domain.TransportParams{}, wrapEngine("create transport", err)
	}
	ref := newTransportRef(dir, et)
	ref.lc.onClose(func() { p.dropTransport(ref) })

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		ref.Close()
		return domain.TransportParams{}, errPeerClosed
	}
	prev := p.transports[dir]
	p.transports[dir] = ref
	p.advance(domain.StateTransportsPending)
	p.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	log.Info().Str("module", "core.peer").Str("conn", string(p.id)).Str("room", string(p.RoomID())).
		Str("transport", string(ref.ID())).Str("direction", string(dir)).Msg("transport created")
	return et.Params(), nil
}

func (p *PeerSession) dropTransport(ref *TransportRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transports[ref.Direction()] == ref {
		delete(p.transports, ref.Direction())
	}
}

// ConnectTransport hands the client's DTLS (and optionally ICE) parameters to the transport.
func (p *PeerSession) ConnectTransport(ctx context.Context, dir domain.Direction, params domain.ConnectParams) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPeerClosed
	}
	t := p.transports[dir]
	p.mu.Unlock()
	if t == nil || t.Closed() {
		return fmt.Errorf("%w: no %s transport", ErrTransportNotReady, dir)
	}
	if params.TransportID != "" && params.TransportID != t.ID() {
		return fmt.Errorf("%w: transport %s", ErrNotFound, params.TransportID)
	}
	if err := t.engine.Connect(ctx, params); err != nil {
		return wrapEngine("connect transport", err)
	}
	log.Info().Str("module", "core.peer").Str("conn", string(p.id)).Str("transport", string(t.ID())).Msg("transport connected")
	return nil
}

// Produce creates the peer's producer on its producing transport.
// A previous producer is closed, together with everything consuming it.
func (p *PeerSession) Produce(ctx context.Context, kind domain.MediaKind, rtp domain.RtpParameters) (*ProducerRef, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrBadRequest, kind)
	}
	media := rtp.MediaCodecs()
	if len(media) == 0 {
		return nil, fmt.Errorf("%w: no media codec", ErrBadRequest)
	}
	if domain.KindOfMime(media[0].MimeType) != kind {
		return nil, fmt.Errorf("%w: codec %s does not match kind %s", ErrBadRequest, media[0].MimeType, kind)
	}
	if !CanConsume(rtp, p.routing.caps) {
		return nil, fmt.Errorf("%w: codec %s not supported by room", ErrIncompatibleCapabilities, media[0].MimeType)
	}

	t := p.Transport(domain.DirectionProducing)
	if p.Closed() {
		return nil, errPeerClosed
	}
	if t == nil || t.Closed() {
		return nil, fmt.Errorf("%w: no producing transport", ErrTransportNotReady)
	}
	ep, err := t.engine.Produce(ctx, kind, rtp)
	if err != nil {
		return nil, wrapEngine("produce", err)
	}
	ref := &ProducerRef{owner: p.id, transport: t, engine: ep}
	ref.lc.onClose(func() {
		p.routing.removeProducer(ref)
		p.dropProducer(ref)
	})
	if !t.lc.adopt(ref) {
		ref.Close()
		return nil, fmt.Errorf("%w: producing transport closed", ErrTransportNotReady)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		ref.Close()
		return nil, errPeerClosed
	}
	prev := p.producer
	p.producer = ref
	p.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if !p.routing.addProducer(ref) {
		ref.Close()
		return nil, fmt.Errorf("%w: room %s closed", ErrNotFound, p.RoomID())
	}
	log.Info().Str("module", "core.peer").Str("conn", string(p.id)).Str("room", string(p.RoomID())).
		Str("producer", string(ref.ID())).Str("kind", string(kind)).Msg("producer created")
	return ref, nil
}

func (p *PeerSession) dropProducer(ref *ProducerRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.producer == ref {
		p.producer = nil
	}
}

// Consume creates a paused consumer of producerID on the consuming transport.
// Consuming the same producer again replaces the previous consumer.
func (p *PeerSession) Consume(ctx context.Context, producerID domain.ProducerID, caps domain.RtpCapabilities) (*ConsumerRef, error) {
	t := p.Transport(domain.DirectionConsuming)
	if p.Closed() {
		return nil, errPeerClosed
	}
	if t == nil || t.Closed() {
		return nil, fmt.Errorf("%w: no consuming transport", ErrTransportNotReady)
	}
	if err := p.routing.CanConsume(producerID, caps); err != nil {
		return nil, err
	}
	src, ok := p.routing.Producer(producerID)
	if !ok {
		return nil, fmt.Errorf("%w: producer %s", ErrNotFound, producerID)
	}
	ec, err := t.engine.Consume(ctx, src.engine, caps, true)
	if err != nil {
		return nil, wrapEngine("consume", err)
	}
	ref := &ConsumerRef{owner: p.id, source: src, transport: t, engine: ec, paused: true}
	ref.lc.onClose(func() { p.dropConsumer(ref) })
	if !src.lc.adopt(ref) {
		ref.Close()
		return nil, fmt.Errorf("%w: producer %s closed", ErrNotFound, producerID)
	}
	if !t.lc.adopt(ref) {
		ref.Close()
		return nil, fmt.Errorf("%w: consuming transport closed", ErrTransportNotReady)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		ref.Close()
		return nil, errPeerClosed
	}
	prev := p.consumers[producerID]
	p.consumers[producerID] = ref
	p.lastConsumer = ref
	p.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	log.Info().Str("module", "core.peer").Str("conn", string(p.id)).Str("room", string(p.RoomID())).
		Str("consumer", string(ref.ID())).Str("producer", string(producerID)).Msg("consumer created")
	return ref, nil
}

func (p *PeerSession) dropConsumer(ref *ConsumerRef) {
	p.mu.Lock()
	pid := ref.Source().ID()
	if p.consumers[pid] != ref {
		p.mu.Unlock()
		return
	}
	delete(p.consumers, pid)
	if p.lastConsumer == ref {
		p.lastConsumer = nil
	}
	notify := p.onConsumerClosed
	if p.closed || !ref.Source().Closed() {
		notify = nil
	}
	p.mu.Unlock()
	if notify != nil {
		notify(ref)
	}
}

// ResumeConsumer resumes a paused consumer. An empty id means the most
// recently created consumer.
func (p *PeerSession) ResumeConsumer(ctx context.Context, id domain.ConsumerID) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errPeerClosed
	}
	c, ok := p.consumerLocked(id)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConsumerNotFound, id)
	}
	if err := c.Resume(ctx); err != nil {
		return err
	}
	log.Debug().Str("module", "core.peer").Str("conn", string(p.id)).Str("consumer", string(c.ID())).Msg("consumer resumed")
	return nil
}

// Close tears everything down. Safe to call more than once.
func (p *PeerSession) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	consumers := make([]*ConsumerRef, 0, len(p.consumers))
	for _, c := range p.consumers {
		consumers = append(consumers, c)
	}
	producer := p.producer
	transports := make([]*TransportRef, 0, len(p.transports))
	for _, t := range p.transports {
		transports = append(transports, t)
	}
	p.mu.Unlock()

	for _, c := range consumers {
		c.Close()
	}
	if producer != nil {
		producer.Close()
	}
	for _, t := range transports {
		t.Close()
	}
	log.Info().Str("module", "core.peer").Str("conn", string(p.id)).Str("room", string(p.RoomID())).Msg("peer closed")
}

type TransportInfo struct {
	ID        domain.TransportID    `json:"id"`
	Direction domain.Direction      `json:"direction"`
	State     domain.TransportState `json:"state"`
}

type ProducerInfo struct {
	ID           domain.ProducerID   `json:"producerId"`
	Kind         domain.MediaKind    `json:"kind"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type ConsumerInfo struct {
	ID         domain.ConsumerID `json:"id"`
	ProducerID domain.ProducerID `json:"producerId"`
	Kind       domain.MediaKind  `json:"kind"`
	Paused     bool              `json:"paused"`
}

// PeerSnapshot is a read-only view for APIs.
type PeerSnapshot struct {
	ID         domain.ConnectionID `json:"id"`
	Room       domain.RoomID       `json:"room"`
	State      string              `json:"state"`
	Transports []TransportInfo     `json:"transports"`
	Producer   *ProducerInfo       `json:"producer,omitempty"`
	Consumers  []ConsumerInfo      `json:"consumers"`
}

func (p *PeerSession) Snapshot() PeerSnapshot {
	state := p.State()
	p.mu.Lock()
	defer p.mu.Unlock()
	s := PeerSnapshot{
		ID:         p.id,
		Room:       p.routing.RoomID(),
		State:      state.String(),
		Transports: make([]TransportInfo, 0, len(p.transports)),
		Consumers:  make([]ConsumerInfo, 0, len(p.consumers)),
	}
	for _, dir := range []domain.Direction{domain.DirectionProducing, domain.DirectionConsuming} {
		if t, ok := p.transports[dir]; ok {
			s.Transports = append(s.Transports, TransportInfo{ID: t.ID(), Direction: dir, State: t.State()})
		}
	}
	if p.producer != nil {
		s.Producer = &ProducerInfo{ID: p.producer.ID(), Kind: p.producer.Kind(), ConnectionID: p.id}
	}
	for _, c := range p.consumers {
		s.Consumers = append(s.Consumers, ConsumerInfo{ID: c.ID(), ProducerID: c.Source().ID(), Kind: c.Kind(), Paused: c.Paused()})
	}
	return s
}
