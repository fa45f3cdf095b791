package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errAlreadyConnected = errors.New("rtc: transport already connected")

type Transport struct {
	router   *Router
	id       domain.TransportID
	params   domain.TransportParams
	api      *webrtc.API
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	logger   zerolog.Logger
	mid      atomic.Uint32

	// ready is closed once DTLS is up and SRTP can be read.
	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.Mutex
	state      domain.TransportState
	connecting bool
	closed     bool
	listeners  []func(domain.TransportState)
	producers  map[domain.ProducerID]*Producer
	consumers  map[domain.ConsumerID]*Consumer
}

func newTransport(ctx context.Context, r *Router, cfg core.ListenConfig) (*Transport, error) {
	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(r.media),
		webrtc.WithSettingEngine(r.engine.settingsFor(cfg)),
	)
	gatherer, err := api.NewICEGatherer(webrtc.ICEGatherOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: ice gatherer: %v", core.ErrEngineUnavailable, err)
	}

	gathered := make(chan struct{})
	var once sync.Once
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			once.Do(func() { close(gathered) })
		}
	})
	if err := gatherer.Gather(); err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("%w: gather: %v", core.ErrEngineUnavailable, err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		_ = gatherer.Close()
		return nil, ctx.Err()
	}

	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("%w: ice parameters: %v", core.ErrEngineUnavailable, err)
	}
	candidates, err := gatherer.GetLocalCandidates()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("%w: ice candidates: %v", core.ErrEngineUnavailable, err)
	}
	ice := api.NewICETransport(gatherer)
	dtls, err := api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("%w: dtls transport: %v", core.ErrEngineUnavailable, err)
	}
	dtlsParams, err := dtls.GetLocalParameters()
	if err != nil {
		_ = dtls.Stop()
		_ = gatherer.Close()
		return nil, fmt.Errorf("%w: dtls parameters: %v", core.ErrEngineUnavailable, err)
	}

	id := domain.TransportID(uuid.NewString())
	t := &Transport{
		router:   r,
		id:       id,
		api:      api,
		gatherer: gatherer,
		ice:      ice,
		dtls:     dtls,
		logger: log.With().
			Str("module", "engine.rtc").
			Str("transport", string(id)).
			Logger(),
		ready:     make(chan struct{}),
		state:     domain.TransportNew,
		producers: make(map[domain.ProducerID]*Producer),
		consumers: make(map[domain.ConsumerID]*Consumer),
		params: domain.TransportParams{
			ID: id,
			IceParameters: domain.IceParameters{
				UsernameFragment: iceParams.UsernameFragment,
				Password:         iceParams.Password,
				IceLite:          true,
			},
			IceCandidates:  toCandidates(candidates),
			DtlsParameters: toDtls(dtlsParams),
		},
	}
	dtls.OnStateChange(t.onDTLSState)
	ice.OnConnectionStateChange(t.onICEState)
	t.logger.Debug().Int("candidates", len(candidates)).Msg("transport created")
	return t, nil
}

func toCandidates(in []webrtc.ICECandidate) []domain.IceCandidate {
	out := make([]domain.IceCandidate, 0, len(in))
	for _, c := range in {
		out = append(out, domain.IceCandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			IP:         c.Address,
			Address:    c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
			TCPType:    c.TCPType,
		})
	}
	return out
}

func toDtls(p webrtc.DTLSParameters) domain.DtlsParameters {
	out := domain.DtlsParameters{Role: domain.DtlsRoleAuto}
	for _, fp := range p.Fingerprints {
		out.Fingerprints = append(out.Fingerprints, domain.DtlsFingerprint{Algorithm: fp.Algorithm, Value: fp.Value})
	}
	return out
}

func fromDtls(p domain.DtlsParameters) webrtc.DTLSParameters {
	out := webrtc.DTLSParameters{Role: webrtc.DTLSRoleAuto}
	switch p.Role {
	case domain.DtlsRoleClient:
		out.Role = webrtc.DTLSRoleClient
	case domain.DtlsRoleServer:
		out.Role = webrtc.DTLSRoleServer
	}
	for _, fp := range p.Fingerprints {
		out.Fingerprints = append(out.Fingerprints, webrtc.DTLSFingerprint{Algorithm: fp.Algorithm, Value: fp.Value})
	}
	return out
}

func (t *Transport) ID() domain.TransportID         { return t.id }
func (t *Transport) Params() domain.TransportParams { return t.params }

func (t *Transport) State() domain.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) OnStateChange(fn func(domain.TransportState)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Transport) setState(s domain.TransportState) {
	t.mu.Lock()
	if t.state == s || t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = s
	listeners := append([]func(domain.TransportState){}, t.listeners...)
	t.mu.Unlock()

	t.logger.Debug().Str("state", string(s)).Msg("transport state")
	for _, fn := range listeners {
		fn(s)
	}
}

func (t *Transport) onDTLSState(s webrtc.DTLSTransportState) {
	switch s {
	case webrtc.DTLSTransportStateConnecting:
		t.setState(domain.TransportConnecting)
	case webrtc.DTLSTransportStateConnected:
		t.readyOnce.Do(func() { close(t.ready) })
		t.setState(domain.TransportConnected)
	case webrtc.DTLSTransportStateFailed:
		t.setState(domain.TransportFailed)
	case webrtc.DTLSTransportStateClosed:
		t.setState(domain.TransportClosed)
	}
}

func (t *Transport) onICEState(s webrtc.ICETransportState) {
	switch s {
	case webrtc.ICETransportStateFailed:
		t.setState(domain.TransportFailed)
	case webrtc.ICETransportStateDisconnected:
		t.logger.Warn().Msg("ice disconnected")
	}
}

// Connect starts ICE in the controlled role and then DTLS. Both handshakes
// complete in the background; progress is reported through OnStateChange.
func (t *Transport) Connect(ctx context.Context, params domain.ConnectParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(params.Dtls.Fingerprints) == 0 {
		return fmt.Errorf("%w: missing dtls fingerprints", core.ErrBadRequest)
	}
	if params.Ice == nil || params.Ice.UsernameFragment == "" {
		return fmt.Errorf("%w: pion engine needs the remote iceParameters", core.ErrBadRequest)
	}

	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return fmt.Errorf("%w: transport %s closed", core.ErrNotFound, t.id)
	case t.connecting:
		t.mu.Unlock()
		return errAlreadyConnected
	}
	t.connecting = true
	t.mu.Unlock()

	remoteICE := webrtc.ICEParameters{
		UsernameFragment: params.Ice.UsernameFragment,
		Password:         params.Ice.Password,
	}
	remoteDTLS := fromDtls(params.Dtls)
	t.setState(domain.TransportConnecting)
	go t.handshake(remoteICE, remoteDTLS)
	return nil
}

func (t *Transport) handshake(remoteICE webrtc.ICEParameters, remoteDTLS webrtc.DTLSParameters) {
	role := webrtc.ICERoleControlled
	if err := t.ice.Start(nil, remoteICE, &role); err != nil {
		t.fail("ice start", err)
		return
	}
	if err := t.dtls.Start(remoteDTLS); err != nil {
		t.fail("dtls start", err)
	}
}

func (t *Transport) fail(stage string, err error) {
	if t.isClosed() {
		return
	}
	t.logger.Error().Err(err).Str("stage", stage).Msg("transport handshake failed")
	t.setState(domain.TransportFailed)
}

// whenReady runs fn once SRTP is up, or never if the transport closes first.
func (t *Transport) whenReady(fn func()) {
	go func() {
		select {
		case <-t.ready:
			if !t.isClosed() {
				fn()
			}
		case <-t.router.engine.done:
		}
	}()
}

func (t *Transport) Produce(ctx context.Context, kind domain.MediaKind, rtp domain.RtpParameters) (core.EngineProducer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, fmt.Errorf("%w: transport %s closed", core.ErrNotFound, t.id)
	}
	p, err := newProducer(t, kind, rtp)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = p.Close()
		return nil, fmt.Errorf("%w: transport %s closed", core.ErrNotFound, t.id)
	}
	t.producers[p.id] = p
	t.mu.Unlock()

	t.whenReady(p.start)
	return p, nil
}

func (t *Transport) Consume(ctx context.Context, producer core.EngineProducer, caps domain.RtpCapabilities, paused bool) (core.EngineConsumer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, fmt.Errorf("%w: transport %s closed", core.ErrNotFound, t.id)
	}
	src, ok := producer.(*Producer)
	if !ok || src.transport.router != t.router {
		return nil, fmt.Errorf("%w: producer %s is not on this router", core.ErrNotFound, producer.ID())
	}
	c, err := newConsumer(t, src, caps, paused)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = c.Close()
		return nil, fmt.Errorf("%w: transport %s closed", core.ErrNotFound, t.id)
	}
	t.consumers[c.id] = c
	t.mu.Unlock()
	return c, nil
}

func (t *Transport) dropProducer(id domain.ProducerID) {
	t.mu.Lock()
	delete(t.producers, id)
	t.mu.Unlock()
}

func (t *Transport) dropConsumer(id domain.ConsumerID) {
	t.mu.Lock()
	delete(t.consumers, id)
	t.mu.Unlock()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops everything the transport carries, then the DTLS and ICE
// layers. The closed state is reported to the listeners.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	producers := make([]*Producer, 0, len(t.producers))
	for _, p := range t.producers {
		producers = append(producers, p)
	}
	consumers := make([]*Consumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.mu.Unlock()

	for _, c := range consumers {
		_ = c.Close()
	}
	for _, p := range producers {
		_ = p.Close()
	}
	var errs []error
	if err := t.dtls.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("dtls stop: %w", err))
	}
	if err := t.ice.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("ice stop: %w", err))
	}
	if err := t.gatherer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("gatherer close: %w", err))
	}
	t.router.dropTransport(t.id)
	t.setState(domain.TransportClosed)
	t.logger.Debug().Msg("transport closed")
	return errors.Join(errs...)
}
