package rtc

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Router owns one MediaEngine: the payload types it registers are the ones
// advertised in the room capabilities and written by every consumer.
type Router struct {
	engine *Engine
	id     string
	caps   domain.RtpCapabilities
	media  *webrtc.MediaEngine

	mu         sync.Mutex
	closed     bool
	transports map[domain.TransportID]*Transport
}

func newRouter(e *Engine, id string, codecs []domain.RtpCodecCapability) (*Router, error) {
	caps := core.BuildCapabilities(codecs)
	media, err := mediaEngineFor(caps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEngineUnavailable, err)
	}
	return &Router{
		engine:     e,
		id:         id,
		caps:       caps,
		media:      media,
		transports: make(map[domain.TransportID]*Transport),
	}, nil
}

func mediaEngineFor(caps domain.RtpCapabilities) (*webrtc.MediaEngine, error) {
	m := &webrtc.MediaEngine{}
	for _, c := range caps.Codecs {
		typ, ok := codecType(c.Kind)
		if !ok {
			continue
		}
		if err := m.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: codecCapability(c),
			PayloadType:        webrtc.PayloadType(c.PreferredPayloadType),
		}, typ); err != nil {
			return nil, fmt.Errorf("register %s: %w", c.MimeType, err)
		}
	}
	for _, h := range caps.HeaderExtensions {
		typ, ok := codecType(h.Kind)
		if !ok {
			continue
		}
		if err := m.RegisterHeaderExtension(webrtc.RTPHeaderExtensionCapability{URI: h.URI}, typ); err != nil {
			return nil, fmt.Errorf("register %s: %w", h.URI, err)
		}
	}
	return m, nil
}

func codecType(kind domain.MediaKind) (webrtc.RTPCodecType, bool) {
	switch kind {
	case domain.KindAudio:
		return webrtc.RTPCodecTypeAudio, true
	case domain.KindVideo:
		return webrtc.RTPCodecTypeVideo, true
	}
	return 0, false
}

func codecCapability(c domain.RtpCodecCapability) webrtc.RTPCodecCapability {
	fb := make([]webrtc.RTCPFeedback, 0, len(c.RtcpFeedback))
	for _, f := range c.RtcpFeedback {
		fb = append(fb, webrtc.RTCPFeedback{Type: f.Type, Parameter: f.Parameter})
	}
	return webrtc.RTPCodecCapability{
		MimeType:     c.MimeType,
		ClockRate:    uint32(c.ClockRate),
		Channels:     uint16(c.Channels),
		SDPFmtpLine:  fmtpLine(c.Parameters),
		RTCPFeedback: fb,
	}
}

// fmtpLine renders codec parameters the way SDP carries them, keys sorted.
func fmtpLine(params map[string]any) string {
	keys := slices.Sorted(maps.Keys(params))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, ";")
}

func (r *Router) ID() string                              { return r.id }
func (r *Router) RtpCapabilities() domain.RtpCapabilities { return r.caps.Clone() }

func (r *Router) CreateWebRtcTransport(ctx context.Context, cfg core.ListenConfig) (core.EngineTransport, error) {
	if !r.engine.alive() {
		return nil, fmt.Errorf("%w: pion engine stopped", core.ErrEngineUnavailable)
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: router %s closed", core.ErrNotFound, r.id)
	}

	t, err := newTransport(ctx, r, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = t.Close()
		return nil, fmt.Errorf("%w: router %s closed", core.ErrNotFound, r.id)
	}
	r.transports[t.id] = t
	r.mu.Unlock()
	return t, nil
}

func (r *Router) dropTransport(id domain.TransportID) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
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

	for _, t := range transports {
		_ = t.Close()
	}
	r.engine.dropRouter(r.id)
	return nil
}
