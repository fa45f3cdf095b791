package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/google/uuid"
)

const fakePort = 40000

type Transport struct {
	router *Router
	id     domain.TransportID
	params domain.TransportParams

	mu        sync.Mutex
	state     domain.TransportState
	connected bool
	closed    bool
	listeners []func(domain.TransportState)
	remote    domain.ConnectParams
}

func newTransport(r *Router, cfg core.ListenConfig) *Transport {
	id := domain.TransportID(uuid.NewString())
	ip := cfg.AnnouncedIP
	if ip == "" {
		ip = cfg.ListenIP
	}
	var candidates []domain.IceCandidate
	if cfg.EnableUDP {
		candidates = append(candidates, candidate(ip, "udp", 1076302079))
	}
	if cfg.EnableTCP {
		c := candidate(ip, "tcp", 1076276479)
		c.TCPType = "passive"
		candidates = append(candidates, c)
	}
	if !cfg.PreferUDP && len(candidates) == 2 {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	return &Transport{
		router: r,
		id:     id,
		state:  domain.TransportNew,
		params: domain.TransportParams{
			ID: id,
			IceParameters: domain.IceParameters{
				UsernameFragment: strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
				Password:         strings.ReplaceAll(uuid.NewString(), "-", ""),
				IceLite:          true,
			},
			IceCandidates: candidates,
			DtlsParameters: domain.DtlsParameters{
				Role: domain.DtlsRoleAuto,
				Fingerprints: []domain.DtlsFingerprint{{
					Algorithm: "sha-256",
					Value:     fingerprint(string(id)),
				}},
			},
		},
	}
}

func candidate(ip, proto string, prio uint32) domain.IceCandidate {
	return domain.IceCandidate{
		Foundation: proto + "candidate",
		Priority:   prio,
		IP:         ip,
		Address:    ip,
		Protocol:   proto,
		Port:       fakePort,
		Type:       "host",
	}
}

func fingerprint(seed string) string {
	hex := strings.ToUpper(strings.ReplaceAll(seed, "-", ""))
	for len(hex) < 64 {
		hex += hex
	}
	parts := make([]string, 0, 32)
	for i := 0; i < 64; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return strings.Join(parts, ":")
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

// SetState reports a state transition to the listeners, as the engine would.
func (t *Transport) SetState(s domain.TransportState) {
	t.mu.Lock()
	if t.state == s || t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = s
	listeners := append([]func(domain.TransportState){}, t.listeners...)
	t.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// Remote returns the parameters the client connected with.
func (t *Transport) Remote() domain.ConnectParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remote
}

func (t *Transport) Connect(ctx context.Context, params domain.ConnectParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(params.Dtls.Fingerprints) == 0 {
		return fmt.Errorf("%w: missing dtls fingerprints", core.ErrBadRequest)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.connected {
		t.mu.Unlock()
		return fmt.Errorf("memory engine: transport %s already connected", t.id)
	}
	t.connected = true
	t.remote = params
	t.mu.Unlock()

	t.SetState(domain.TransportConnecting)
	t.SetState(domain.TransportConnected)
	return nil
}

func (t *Transport) Produce(ctx context.Context, kind domain.MediaKind, rtp domain.RtpParameters) (core.EngineProducer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, ErrClosed
	}
	return &Producer{
		id:     domain.ProducerID(uuid.NewString()),
		router: t.router,
		kind:   kind,
		rtp:    rtp.Clone(),
	}, nil
}

func (t *Transport) Consume(ctx context.Context, producer core.EngineProducer, caps domain.RtpCapabilities, paused bool) (core.EngineConsumer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, ErrClosed
	}
	src, ok := producer.(*Producer)
	if !ok || src.router != t.router {
		return nil, fmt.Errorf("%w: producer %s is not on this router", core.ErrNotFound, producer.ID())
	}
	if src.isClosed() {
		return nil, fmt.Errorf("%w: producer %s closed", core.ErrNotFound, src.id)
	}
	rtp, err := core.ConsumerRtpParameters(src.rtp, caps)
	if err != nil {
		return nil, err
	}
	rtp.Encodings[0].Ssrc = t.router.engine.ssrc.Add(1)
	rtp.Mid = fmt.Sprint(rtp.Encodings[0].Ssrc)
	return &Consumer{
		id:     domain.ConsumerID(uuid.NewString()),
		kind:   src.kind,
		rtp:    rtp,
		paused: paused,
	}, nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	t.router.dropTransport(t.id)
	return nil
}
