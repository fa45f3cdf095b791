package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/mediagate/internal/adapters/engine/memory"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
)

var listen = core.ListenConfig{ListenIP: "0.0.0.0", AnnouncedIP: "198.51.100.4", EnableUDP: true, EnableTCP: true, PreferUDP: true}

func opus() domain.RtpParameters {
	return domain.RtpParameters{
		Codecs:    []domain.RtpCodecParameters{{MimeType: "audio/opus", PayloadType: 100, ClockRate: 48000, Channels: 2}},
		Encodings: []domain.RtpEncodingParameters{{Ssrc: 42}},
	}
}

func router(t *testing.T, e *memory.Engine) core.EngineRouter {
	t.Helper()
	r, err := e.CreateRouter(context.Background(), core.DefaultCodecs())
	if err != nil {
		t.Fatalf("CreateRouter() error = %v", err)
	}
	return r
}

func TestTransport_Params(t *testing.T) {
	r := router(t, memory.New())
	tr, err := r.CreateWebRtcTransport(context.Background(), listen)
	if err != nil {
		t.Fatalf("CreateWebRtcTransport() error = %v", err)
	}
	p := tr.Params()
	if len(p.IceCandidates) != 2 {
		t.Fatalf("candidates = %+v, want udp and tcp", p.IceCandidates)
	}
	if p.IceCandidates[0].Protocol != "udp" || p.IceCandidates[0].IP != "198.51.100.4" {
		t.Errorf("first candidate = %+v, want udp on the announced ip", p.IceCandidates[0])
	}
	if p.IceCandidates[1].TCPType != "passive" {
		t.Errorf("tcp candidate = %+v", p.IceCandidates[1])
	}
	if !p.IceParameters.IceLite || p.IceParameters.UsernameFragment == "" {
		t.Errorf("ice = %+v", p.IceParameters)
	}
	if fp := p.DtlsParameters.Fingerprints; len(fp) != 1 || len(fp[0].Value) != 95 {
		t.Errorf("fingerprints = %+v", fp)
	}
}

func TestTransport_Connect(t *testing.T) {
	r := router(t, memory.New())
	et, _ := r.CreateWebRtcTransport(context.Background(), listen)
	tr := et.(*memory.Transport)

	var states []domain.TransportState
	tr.OnStateChange(func(s domain.TransportState) { states = append(states, s) })

	if err := tr.Connect(context.Background(), domain.ConnectParams{}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("Connect() without fingerprints error = %v, want ErrBadRequest", err)
	}
	params := domain.ConnectParams{Dtls: domain.DtlsParameters{Fingerprints: []domain.DtlsFingerprint{{Algorithm: "sha-256", Value: "AA"}}}}
	if err := tr.Connect(context.Background(), params); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := tr.Connect(context.Background(), params); err == nil {
		t.Error("second Connect() succeeded")
	}
	if len(states) != 2 || states[0] != domain.TransportConnecting || states[1] != domain.TransportConnected {
		t.Errorf("states = %v, want [connecting connected]", states)
	}
	if got := tr.Remote().Dtls.Fingerprints[0].Value; got != "AA" {
		t.Errorf("Remote() fingerprint = %q", got)
	}
}

func TestTransport_ConsumeAcrossRouters(t *testing.T) {
	e := memory.New()
	r1, r2 := router(t, e), router(t, e)
	ctx := context.Background()
	send, _ := r1.CreateWebRtcTransport(ctx, listen)
	recv, _ := r2.CreateWebRtcTransport(ctx, listen)
	same, _ := r1.CreateWebRtcTransport(ctx, listen)

	prod, err := send.Produce(ctx, domain.KindAudio, opus())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	caps := r1.RtpCapabilities()
	if _, err := recv.Consume(ctx, prod, caps, true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Consume() across routers error = %v, want ErrNotFound", err)
	}

	c, err := same.Consume(ctx, prod, caps, true)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	cons := c.(*memory.Consumer)
	if !cons.Paused() {
		t.Error("consumer not paused")
	}
	if err := cons.Resume(ctx); err != nil || cons.Paused() {
		t.Errorf("Resume() = %v, paused = %v", err, cons.Paused())
	}
	if ssrc := c.RtpParameters().Encodings[0].Ssrc; ssrc == 0 || ssrc == 42 {
		t.Errorf("consumer ssrc = %d, want a fresh one", ssrc)
	}

	_ = prod.Close()
	if _, err := same.Consume(ctx, prod, caps, true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Consume() of closed producer error = %v, want ErrNotFound", err)
	}
}

func TestEngine_KillClosesEverything(t *testing.T) {
	e := memory.New()
	r := router(t, e)
	et, _ := r.CreateWebRtcTransport(context.Background(), listen)
	tr := et.(*memory.Transport)

	cause := errors.New("worker exited")
	e.Kill(cause)

	select {
	case <-e.Done():
	default:
		t.Fatal("Done() not closed")
	}
	if !errors.Is(e.Err(), cause) {
		t.Errorf("Err() = %v, want %v", e.Err(), cause)
	}
	if tr.State() != domain.TransportClosed {
		t.Errorf("transport state = %s, want closed", tr.State())
	}
	if e.Routers() != 0 {
		t.Errorf("Routers() = %d, want 0", e.Routers())
	}
	if _, err := e.CreateRouter(context.Background(), core.DefaultCodecs()); !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("CreateRouter() error = %v, want ErrEngineUnavailable", err)
	}
	// Close after Kill keeps the first cause.
	_ = e.Close()
	if !errors.Is(e.Err(), cause) {
		t.Errorf("Err() after Close = %v", e.Err())
	}
}
