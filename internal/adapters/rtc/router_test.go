package rtc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/pion/webrtc/v4"
)

func TestFmtpLine(t *testing.T) {
	tests := []struct {
		params map[string]any
		want   string
	}{
		{nil, ""},
		{map[string]any{"x-google-start-bitrate": 1000}, "x-google-start-bitrate=1000"},
		{map[string]any{"useinbandfec": 1, "minptime": 10}, "minptime=10;useinbandfec=1"},
	}
	for _, tt := range tests {
		if got := fmtpLine(tt.params); got != tt.want {
			t.Errorf("fmtpLine(%v) = %q, want %q", tt.params, got, tt.want)
		}
	}
}

func TestCodecCapability(t *testing.T) {
	caps := core.BuildCapabilities(core.DefaultCodecs())
	got := codecCapability(caps.Codecs[1])
	if got.MimeType != "video/VP8" || got.ClockRate != 90000 {
		t.Errorf("codec = %+v, want VP8/90000", got)
	}
	if len(got.RTCPFeedback) != 4 {
		t.Errorf("feedback = %+v, want 4 entries", got.RTCPFeedback)
	}
	if got.SDPFmtpLine != "x-google-start-bitrate=1000" {
		t.Errorf("fmtp = %q", got.SDPFmtpLine)
	}
}

func TestDtlsConversion(t *testing.T) {
	in := domain.DtlsParameters{
		Role:         domain.DtlsRoleClient,
		Fingerprints: []domain.DtlsFingerprint{{Algorithm: "sha-256", Value: "AB:CD"}},
	}
	got := fromDtls(in)
	if got.Role != webrtc.DTLSRoleClient {
		t.Errorf("role = %v, want client", got.Role)
	}
	if len(got.Fingerprints) != 1 || got.Fingerprints[0].Value != "AB:CD" {
		t.Errorf("fingerprints = %+v", got.Fingerprints)
	}

	back := toDtls(got)
	if back.Role != domain.DtlsRoleAuto {
		t.Errorf("local role = %q, want auto", back.Role)
	}
	if back.Fingerprints[0].Algorithm != "sha-256" {
		t.Errorf("algorithm = %q", back.Fingerprints[0].Algorithm)
	}
}

func TestEngine_RouterLifecycle(t *testing.T) {
	e, err := New(Options{ListenIP: "127.0.0.1", AnnouncedIP: "203.0.113.7", MinPort: 41000, MaxPort: 41010})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r, err := e.CreateRouter(context.Background(), core.DefaultCodecs())
	if err != nil {
		t.Fatalf("CreateRouter() error = %v", err)
	}
	caps := r.RtpCapabilities()
	if len(caps.Codecs) != 2 || caps.Codecs[0].PreferredPayloadType != 100 {
		t.Errorf("caps = %+v", caps.Codecs)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-e.Done():
	default:
		t.Fatal("Done() not closed after Close")
	}
	if e.Err() != nil {
		t.Errorf("Err() = %v, want nil", e.Err())
	}
	_, err = e.CreateRouter(context.Background(), core.DefaultCodecs())
	if !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("CreateRouter() after Close error = %v, want ErrEngineUnavailable", err)
	}
	if _, err := r.CreateWebRtcTransport(context.Background(), core.ListenConfig{EnableUDP: true}); !errors.Is(err, core.ErrEngineUnavailable) {
		t.Errorf("CreateWebRtcTransport() after Close error = %v, want ErrEngineUnavailable", err)
	}
}

func TestEngine_SettingsForNetworks(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()
	// without a TCP listener only UDP can be offered; settingsFor must not panic
	// for any combination.
	for _, cfg := range []core.ListenConfig{
		{EnableUDP: true, EnableTCP: true, PreferUDP: true},
		{EnableTCP: true},
		{},
	} {
		_ = e.settingsFor(cfg)
	}
}

func TestTransport_ConnectValidation(t *testing.T) {
	e, err := New(Options{ListenIP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()
	r, err := e.CreateRouter(context.Background(), core.DefaultCodecs())
	if err != nil {
		t.Fatalf("CreateRouter() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := r.CreateWebRtcTransport(ctx, core.ListenConfig{ListenIP: "127.0.0.1", EnableUDP: true, PreferUDP: true})
	if err != nil {
		t.Skipf("no usable network for ICE gathering: %v", err)
	}
	params := tr.Params()
	if params.ID == "" || params.IceParameters.UsernameFragment == "" || !params.IceParameters.IceLite {
		t.Errorf("params = %+v", params)
	}
	if len(params.DtlsParameters.Fingerprints) == 0 {
		t.Error("no local fingerprints")
	}

	dtls := domain.DtlsParameters{Role: domain.DtlsRoleClient, Fingerprints: []domain.DtlsFingerprint{{Algorithm: "sha-256", Value: "00"}}}
	if err := tr.Connect(context.Background(), domain.ConnectParams{Dtls: dtls}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("Connect() without ice error = %v, want ErrBadRequest", err)
	}
	if err := tr.Connect(context.Background(), domain.ConnectParams{Ice: &domain.IceParameters{UsernameFragment: "u", Password: "p"}}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("Connect() without fingerprints error = %v, want ErrBadRequest", err)
	}

	var (
		mu     sync.Mutex
		states []domain.TransportState
	)
	tr.OnStateChange(func(s domain.TransportState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	if err := tr.Close(); err != nil {
		t.Logf("Close() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != domain.TransportClosed {
		t.Errorf("states = %v, want trailing closed", states)
	}
	if _, err := tr.Produce(context.Background(), domain.KindAudio, domain.RtpParameters{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Produce() after Close error = %v, want ErrNotFound", err)
	}
}
