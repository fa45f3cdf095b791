package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/mediagate/internal/adapters/engine/memory"
	"github.com/dkeye/mediagate/internal/adapters/signal"
	"github.com/dkeye/mediagate/internal/app"
	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newServer(t *testing.T, opts signal.Options, mw ...gin.HandlerFunc) (*httptest.Server, *app.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := memory.New()
	reg := app.NewRegistry(e, core.ListenConfig{AnnouncedIP: "127.0.0.1", EnableUDP: true, PreferUDP: true})
	o := &orch.Orchestrator{Registry: reg, Policy: app.SimplePolicy{}}

	ctx, cancel := context.WithCancel(context.Background())
	ctl := signal.NewSignalWSController(o, opts)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(mw...)
	r.GET("/mediasoup", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = e.Close()
	})
	return srv, reg
}

type client struct {
	t      *testing.T
	ws     *websocket.Conn
	id     domain.ConnectionID
	seq    int
	events []core.Envelope
}

func dial(t *testing.T, srv *httptest.Server, query string) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/mediasoup" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	c := &client{t: t, ws: ws}
	var hello struct {
		ConnectionID domain.ConnectionID `json:"connectionId"`
	}
	c.decode(c.waitEvent("connection-success"), &hello)
	c.id = hello.ConnectionID
	return c
}

func (c *client) read() core.Envelope {
	c.t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.t.Fatalf("read error = %v", err)
	}
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.t.Fatalf("bad frame %s: %v", data, err)
	}
	return env
}

func (c *client) decode(raw json.RawMessage, v any) {
	c.t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		c.t.Fatalf("decode %s: %v", raw, err)
	}
}

// request sends a callback message and returns the ack payload. Events read
// on the way are kept for waitEvent.
func (c *client) request(event string, data any) json.RawMessage {
	c.t.Helper()
	c.seq++
	id, _ := json.Marshal(c.seq)
	raw, _ := json.Marshal(data)
	if err := c.ws.WriteJSON(core.Envelope{Event: event, ID: id, Data: raw}); err != nil {
		c.t.Fatalf("write error = %v", err)
	}
	for {
		env := c.read()
		if env.Event != "" {
			c.events = append(c.events, env)
			continue
		}
		if string(env.Ack) == string(id) {
			return env.Data
		}
	}
}

// send writes a fire-and-forget message.
func (c *client) send(event string) {
	c.t.Helper()
	if err := c.ws.WriteJSON(core.Envelope{Event: event}); err != nil {
		c.t.Fatalf("write error = %v", err)
	}
}

func (c *client) waitEvent(name string) json.RawMessage {
	c.t.Helper()
	for i, env := range c.events {
		if env.Event == name {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return env.Data
		}
	}
	for {
		env := c.read()
		if env.Event == name {
			return env.Data
		}
		if env.Event != "" {
			c.events = append(c.events, env)
		}
	}
}

var dtlsPayload = map[string]any{
	"dtlsParameters": map[string]any{
		"role":         "client",
		"fingerprints": []map[string]string{{"algorithm": "sha-256", "value": "AA:BB"}},
	},
}

type errorReply struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestSignal_ABScenario(t *testing.T) {
	srv, reg := newServer(t, signal.Options{DefaultRoom: "lobby"})
	a := dial(t, srv, "?room=stage")
	b := dial(t, srv, "?room=stage")

	var joined struct {
		ConnectionID domain.ConnectionID `json:"connectionId"`
	}
	a.decode(a.waitEvent(orch.EventPeerJoined), &joined)
	if joined.ConnectionID != b.id {
		t.Errorf("peer-joined = %s, want %s", joined.ConnectionID, b.id)
	}

	var caps struct {
		Capabilities domain.RtpCapabilities `json:"capabilities"`
	}
	a.decode(a.request("getRtpCapabilities", nil), &caps)
	if len(caps.Capabilities.Codecs) != 2 {
		t.Fatalf("capabilities = %+v", caps.Capabilities)
	}
	a.waitEvent("sendRtpCapabilities")

	var created struct {
		Params domain.TransportParams `json:"params"`
	}
	a.decode(a.request("createWebRtcTransport", map[string]bool{"sender": true}), &created)
	if created.Params.ID == "" || len(created.Params.IceCandidates) == 0 {
		t.Fatalf("transport params = %+v", created.Params)
	}
	if got := string(a.request("transport-connect", dtlsPayload)); got != "{}" {
		t.Fatalf("transport-connect ack = %s", got)
	}

	var produced struct {
		ID domain.ProducerID `json:"id"`
	}
	a.decode(a.request("transport-produce", map[string]any{
		"kind": "audio",
		"rtpParameters": domain.RtpParameters{
			Codecs:    []domain.RtpCodecParameters{{MimeType: "audio/opus", PayloadType: 100, ClockRate: 48000, Channels: 2}},
			Encodings: []domain.RtpEncodingParameters{{Ssrc: 1111}},
			Rtcp:      domain.RtcpParameters{Cname: "a"},
		},
	}), &produced)
	if produced.ID == "" {
		t.Fatal("no producer id")
	}

	var announced core.ProducerInfo
	b.decode(b.waitEvent(orch.EventNewProducer), &announced)
	if announced.ID != produced.ID || announced.ConnectionID != a.id {
		t.Errorf("new-producer = %+v", announced)
	}

	b.decode(b.request("getRtpCapabilities", nil), &caps)
	b.decode(b.request("createWebRtcTransport", map[string]bool{"sender": false}), &created)
	if got := string(b.request("transport-recv-connect", dtlsPayload)); got != "{}" {
		t.Fatalf("transport-recv-connect ack = %s", got)
	}

	var consumed struct {
		Params struct {
			ID            domain.ConsumerID    `json:"id"`
			ProducerID    domain.ProducerID    `json:"producerId"`
			Kind          domain.MediaKind     `json:"kind"`
			RtpParameters domain.RtpParameters `json:"rtpParameters"`
		} `json:"params"`
	}
	b.decode(b.request("consume", map[string]any{"rtpCapabilities": caps.Capabilities}), &consumed)
	if consumed.Params.ProducerID != produced.ID || consumed.Params.Kind != domain.KindAudio {
		t.Fatalf("consume params = %+v", consumed.Params)
	}
	if pt := consumed.Params.RtpParameters.Codecs[0].PayloadType; pt != 100 {
		t.Errorf("consumer payload type = %d, want 100", pt)
	}
	if got := string(b.request("consumer-resume", nil)); got != "{}" {
		t.Errorf("consumer-resume ack = %s", got)
	}

	peerB, err := reg.LookupPeer(b.id)
	if err != nil {
		t.Fatal(err)
	}
	cons, ok := peerB.Consumer(consumed.Params.ID)
	if !ok || cons.Paused() {
		t.Errorf("consumer = %v, paused = %v; want resumed", ok, ok && cons.Paused())
	}

	// A goes away: B hears about the producer and the peer.
	_ = a.ws.Close()
	var closed orch.ProducerClosedEvent
	b.decode(b.waitEvent(orch.EventProducerClosed), &closed)
	if closed.RemoteProducerID != produced.ID || closed.ConsumerID != consumed.Params.ID {
		t.Errorf("producer-closed = %+v", closed)
	}
	b.waitEvent(orch.EventPeerLeft)
}

func TestSignal_Errors(t *testing.T) {
	srv, _ := newServer(t, signal.Options{DefaultRoom: "lobby"})
	c := dial(t, srv, "")

	var e errorReply
	c.decode(c.request("transport-produce", map[string]any{
		"kind":          "audio",
		"rtpParameters": domain.RtpParameters{Codecs: []domain.RtpCodecParameters{{MimeType: "audio/opus", ClockRate: 48000, Channels: 2}}},
	}), &e)
	if e.Code != "TransportNotReady" {
		t.Errorf("produce without transport code = %q, want TransportNotReady", e.Code)
	}

	var params struct {
		Params errorReply `json:"params"`
	}
	c.decode(c.request("consume", map[string]any{"rtpCapabilities": domain.RtpCapabilities{}}), &params)
	if params.Params.Code == "" {
		t.Error("consume without transport returned no error")
	}

	c.decode(c.request("consumer-resume", map[string]string{"consumerId": "nope"}), &e)
	if e.Code != "ConsumerNotFound" {
		t.Errorf("resume unknown code = %q, want ConsumerNotFound", e.Code)
	}

	c.decode(c.request("no-such-event", nil), &e)
	if e.Code != "BadRequest" {
		t.Errorf("unknown event code = %q, want BadRequest", e.Code)
	}

	c.decode(c.request("joinRoom", map[string]string{"roomName": ""}), &e)
	if e.Code != "BadRequest" {
		t.Errorf("empty room code = %q, want BadRequest", e.Code)
	}
}

func TestSignal_JoinRoomAndProducers(t *testing.T) {
	srv, reg := newServer(t, signal.Options{DefaultRoom: "lobby"})
	c := dial(t, srv, "")

	if room, _ := reg.RoomOf(c.id); room != "lobby" {
		t.Errorf("auto joined %q, want lobby", room)
	}
	var joined struct {
		RtpCapabilities domain.RtpCapabilities `json:"rtpCapabilities"`
	}
	c.decode(c.request("joinRoom", map[string]string{"roomName": "side"}), &joined)
	if len(joined.RtpCapabilities.Codecs) == 0 {
		t.Error("joinRoom returned no capabilities")
	}
	if room, _ := reg.RoomOf(c.id); room != "side" {
		t.Errorf("RoomOf() = %q, want side", room)
	}

	var list struct {
		Producers []core.ProducerInfo `json:"producers"`
	}
	c.decode(c.request("getProducers", nil), &list)
	if list.Producers == nil || len(list.Producers) != 0 {
		t.Errorf("producers = %+v, want empty list", list.Producers)
	}

	c.send("ping")
	c.waitEvent("pong")
}

func TestSignal_RateLimited(t *testing.T) {
	srv, _ := newServer(t, signal.Options{DefaultRoom: "lobby", RateLimit: 1, RateInterval: time.Minute})
	c := dial(t, srv, "")

	c.request("getProducers", nil)
	var e errorReply
	c.decode(c.request("getProducers", nil), &e)
	if e.Code != "RateLimited" {
		t.Errorf("code = %q, want RateLimited", e.Code)
	}
}

func TestSignal_DisconnectCleansUp(t *testing.T) {
	srv, reg := newServer(t, signal.Options{DefaultRoom: "lobby"})
	c := dial(t, srv, "")

	seq, _ := json.Marshal(99)
	_ = c.ws.WriteJSON(core.Envelope{Event: "disconnect", ID: seq})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := reg.Signal(c.id); !ok {
			if _, err := reg.LookupPeer(c.id); err == nil {
				t.Fatal("peer survived disconnect")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("connection not cleaned up")
}

func TestSignal_SessionNotReadyBeforeJoin(t *testing.T) {
	srv, reg := newServer(t, signal.Options{DefaultRoom: ""})
	c := dial(t, srv, "")

	var params struct {
		Params errorReply `json:"params"`
	}
	c.decode(c.request("createWebRtcTransport", map[string]bool{"sender": true}), &params)
	if params.Params.Code != "SessionNotReady" {
		t.Errorf("createWebRtcTransport code = %q, want SessionNotReady", params.Params.Code)
	}

	var e errorReply
	c.decode(c.request("getRtpCapabilities", nil), &e)
	if e.Code != "SessionNotReady" {
		t.Errorf("getRtpCapabilities code = %q, want SessionNotReady", e.Code)
	}
	if _, err := reg.LookupPeer(c.id); err == nil {
		t.Error("peer registered without a room")
	}

	// the connection stays usable and can still join
	var joined struct {
		RtpCapabilities domain.RtpCapabilities `json:"rtpCapabilities"`
	}
	c.decode(c.request("joinRoom", map[string]string{"roomName": "late"}), &joined)
	if len(joined.RtpCapabilities.Codecs) == 0 {
		t.Fatal("joinRoom returned no capabilities")
	}
	var created struct {
		Params struct {
			ID   domain.TransportID `json:"id"`
			Code string             `json:"code"`
		} `json:"params"`
	}
	c.decode(c.request("createWebRtcTransport", map[string]bool{"sender": true}), &created)
	if created.Params.Code != "" || created.Params.ID == "" {
		t.Errorf("createWebRtcTransport after join = %+v, want transport params", created.Params)
	}
}
