package orch_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/mediagate/internal/adapters/engine/memory"
	"github.com/dkeye/mediagate/internal/app"
	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
)

var errFull = errors.New("queue full")

type recorder struct {
	mu     sync.Mutex
	frames []core.Envelope
	full   bool
	closed bool
}

func (r *recorder) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return errFull
	}
	var env core.Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		return err
	}
	r.frames = append(r.frames, env)
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Event)
	}
	return out
}

func (r *recorder) last(event string) json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Event == event {
			return r.frames[i].Data
		}
	}
	return nil
}

type fixture struct {
	o       *orch.Orchestrator
	reg     *app.Registry
	signals map[domain.ConnectionID]*recorder
	cancels map[domain.ConnectionID]bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := memory.New()
	t.Cleanup(func() { _ = e.Close() })
	reg := app.NewRegistry(e, core.ListenConfig{AnnouncedIP: "127.0.0.1", EnableUDP: true, PreferUDP: true})
	return &fixture{
		o:       &orch.Orchestrator{Registry: reg, Policy: app.SimplePolicy{}},
		reg:     reg,
		signals: make(map[domain.ConnectionID]*recorder),
		cancels: make(map[domain.ConnectionID]bool),
	}
}

func (f *fixture) connect(t *testing.T, id domain.ConnectionID, room domain.RoomID) *core.PeerSession {
	t.Helper()
	rec := &recorder{}
	f.signals[id] = rec
	f.reg.BindSignal(id, rec, func() { f.cancels[id] = true })
	peer, err := f.o.Join(context.Background(), id, room)
	if err != nil {
		t.Fatalf("Join(%s) error = %v", id, err)
	}
	return peer
}

func contains(events []string, want string) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

func TestJoin_BroadcastsToRoomOnly(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", "lobby")
	f.connect(t, "c", "other")
	f.connect(t, "b", "lobby")

	if !contains(f.signals["a"].events(), orch.EventPeerJoined) {
		t.Errorf("a events = %v, want peer-joined", f.signals["a"].events())
	}
	if contains(f.signals["c"].events(), orch.EventPeerJoined) {
		t.Errorf("c got an event from another room: %v", f.signals["c"].events())
	}
	if contains(f.signals["b"].events(), orch.EventPeerJoined) {
		t.Error("joiner was told about itself")
	}

	var ev orch.PeerEvent
	if err := json.Unmarshal(f.signals["a"].last(orch.EventPeerJoined), &ev); err != nil || ev.ConnectionID != "b" {
		t.Errorf("peer-joined = %+v, %v; want b", ev, err)
	}
}

func TestJoin_SameRoomIsNoop(t *testing.T) {
	f := newFixture(t)
	peer := f.connect(t, "a", "lobby")
	again, err := f.o.Join(context.Background(), "a", "lobby")
	if err != nil || again != peer {
		t.Errorf("Join() again = %v, %v; want same peer", again, err)
	}
}

func TestJoin_SwitchRoomLeavesPrevious(t *testing.T) {
	f := newFixture(t)
	first := f.connect(t, "a", "lobby")
	f.connect(t, "b", "lobby")

	if _, err := f.o.Join(context.Background(), "a", "other"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if !first.Closed() {
		t.Error("previous peer not closed")
	}
	if !contains(f.signals["b"].events(), orch.EventPeerLeft) {
		t.Errorf("b events = %v, want peer-left", f.signals["b"].events())
	}
	if room, _ := f.reg.RoomOf("a"); room != "other" {
		t.Errorf("RoomOf(a) = %q, want other", room)
	}
}

func TestProducerClosed_NotifiesConsumer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.connect(t, "a", "lobby")
	b := f.connect(t, "b", "lobby")

	dtls := domain.ConnectParams{Dtls: domain.DtlsParameters{Fingerprints: []domain.DtlsFingerprint{{Algorithm: "sha-256", Value: "AA"}}}}
	if _, err := a.CreateTransport(ctx, domain.DirectionProducing); err != nil {
		t.Fatal(err)
	}
	if err := a.ConnectTransport(ctx, domain.DirectionProducing, dtls); err != nil {
		t.Fatal(err)
	}
	prod, err := a.Produce(ctx, domain.KindAudio, domain.RtpParameters{
		Codecs:    []domain.RtpCodecParameters{{MimeType: "audio/opus", PayloadType: 100, ClockRate: 48000, Channels: 2}},
		Encodings: []domain.RtpEncodingParameters{{Ssrc: 1}},
	})
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	f.o.OnProduced("a", prod)
	if !contains(f.signals["b"].events(), orch.EventNewProducer) {
		t.Errorf("b events = %v, want new-producer", f.signals["b"].events())
	}
	if got := f.o.Producers("b"); len(got) != 1 || got[0].ID != prod.ID() {
		t.Errorf("Producers(b) = %+v", got)
	}
	if got := f.o.Producers("a"); len(got) != 0 {
		t.Errorf("Producers(a) = %+v, want own producer excluded", got)
	}

	if _, err := b.CreateTransport(ctx, domain.DirectionConsuming); err != nil {
		t.Fatal(err)
	}
	caps, _ := b.GetCapabilities()
	cons, err := b.Consume(ctx, prod.ID(), caps)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	f.o.Leave("a")

	var ev orch.ProducerClosedEvent
	if err := json.Unmarshal(f.signals["b"].last(orch.EventProducerClosed), &ev); err != nil {
		t.Fatalf("producer-closed missing: %v (events %v)", err, f.signals["b"].events())
	}
	if ev.RemoteProducerID != prod.ID() || ev.ConsumerID != cons.ID() {
		t.Errorf("producer-closed = %+v", ev)
	}
	if !contains(f.signals["b"].events(), orch.EventPeerLeft) {
		t.Error("peer-left not sent")
	}
}

func TestBackpressure_KicksSlowPeer(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", "lobby")
	f.signals["a"].full = true

	f.connect(t, "b", "lobby")
	if !f.cancels["a"] {
		t.Error("slow peer was not kicked")
	}
}

func TestKick_WithoutSignal(t *testing.T) {
	f := newFixture(t)
	if _, err := f.reg.RegisterPeer(context.Background(), "x", "lobby"); err != nil {
		t.Fatal(err)
	}
	if !f.o.Kick("x") {
		t.Error("Kick() = false, want true")
	}
	if _, err := f.reg.LookupPeer("x"); err == nil {
		t.Error("kicked peer still registered")
	}
	if f.o.Kick("x") {
		t.Error("second Kick() = true")
	}
}

func TestEvictRoom_CancelsConnections(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", "lobby")
	f.connect(t, "b", "other")

	if !f.o.EvictRoom("lobby") {
		t.Fatal("EvictRoom() = false")
	}
	if !f.cancels["a"] || f.cancels["b"] {
		t.Errorf("cancels = %v, want only a", f.cancels)
	}
	if f.o.EvictRoom("lobby") {
		t.Error("second EvictRoom() = true")
	}
}

func TestDisconnect_Unbinds(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", "lobby")
	f.o.Disconnect("a")
	if _, ok := f.reg.Signal("a"); ok {
		t.Error("signal still bound")
	}
	if f.o.SendTo("a", "pong", nil) {
		t.Error("SendTo() after Disconnect = true")
	}
}
