package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

// DefaultCodecs is the capability set every room router is created with.
func DefaultCodecs() []domain.RtpCodecCapability {
	return []domain.RtpCodecCapability{
		{
			Kind:      domain.KindAudio,
			MimeType:  "audio/opus",
			ClockRate: 48000,
			Channels:  2,
		},
		{
			Kind:      domain.KindVideo,
			MimeType:  "video/VP8",
			ClockRate: 90000,
			Parameters: map[string]any{
				"x-google-start-bitrate": 1000,
			},
		},
	}
}

// RoutingContext is the media routing scope of one room.
// Its capability set never changes after creation.
type RoutingContext struct {
	room   domain.RoomID
	router EngineRouter
	caps   domain.RtpCapabilities

	mu        sync.RWMutex
	closed    bool
	seq       uint64
	producers map[domain.ProducerID]*ProducerRef
}

func NewRoutingContext(room domain.RoomID, router EngineRouter) *RoutingContext {
	return &RoutingContext{
		room:      room,
		router:    router,
		caps:      router.RtpCapabilities().Clone(),
		producers: make(map[domain.ProducerID]*ProducerRef),
	}
}

func (r *RoutingContext) RoomID() domain.RoomID { return r.room }
func (r *RoutingContext) Router() EngineRouter  { return r.router }

// Capabilities returns a copy the caller may keep.
func (r *RoutingContext) Capabilities() domain.RtpCapabilities { return r.caps.Clone() }

func (r *RoutingContext) addProducer(p *ProducerRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || p.Closed() {
		return false
	}
	r.seq++
	p.seq = r.seq
	r.producers[p.ID()] = p
	return true
}

func (r *RoutingContext) removeProducer(p *ProducerRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.producers[p.ID()] == p {
		delete(r.producers, p.ID())
	}
}

func (r *RoutingContext) Producer(id domain.ProducerID) (*ProducerRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[id]
	return p, ok
}

// LatestProducer returns the most recently created producer not owned by exclude.
func (r *RoutingContext) LatestProducer(exclude domain.ConnectionID) (*ProducerRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *ProducerRef
	for _, p := range r.producers {
		if p.owner == exclude {
			continue
		}
		if latest == nil || p.seq > latest.seq {
			latest = p
		}
	}
	return latest, latest != nil
}

// Producers lists live producers in creation order.
func (r *RoutingContext) Producers() []*ProducerRef {
	r.mu.RLock()
	out := make([]*ProducerRef, 0, len(r.producers))
	for _, p := range r.producers {
		out = append(out, p)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *ProducerRef) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// CanConsume checks that producer id lives in this room and that caps can receive it.
func (r *RoutingContext) CanConsume(id domain.ProducerID, caps domain.RtpCapabilities) error {
	p, ok := r.Producer(id)
	if !ok {
		return fmt.Errorf("%w: producer %s", ErrNotFound, id)
	}
	if !CanConsume(p.RtpParameters(), caps) {
		return fmt.Errorf("%w: producer %s", ErrIncompatibleCapabilities, id)
	}
	return nil
}

func (r *RoutingContext) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close releases the engine router. Producers are expected to be closed by their peers.
func (r *RoutingContext) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	clear(r.producers)
	r.mu.Unlock()
	if err := r.router.Close(); err != nil {
		log.Warn().Str("module", "core.routing").Str("room", string(r.room)).Err(err).Msg("router close failed")
	}
}

// BuildCapabilities turns a router codec list into the capability set sent to
// clients: payload types from 100 upward, feedback and header extensions per kind.
func BuildCapabilities(codecs []domain.RtpCodecCapability) domain.RtpCapabilities {
	caps := domain.RtpCapabilities{
		HeaderExtensions: []domain.RtpHeaderExtension{
			{Kind: domain.KindAudio, URI: "urn:ietf:params:rtp-hdrext:sdes:mid", PreferredID: 1},
			{Kind: domain.KindVideo, URI: "urn:ietf:params:rtp-hdrext:sdes:mid", PreferredID: 1},
			{Kind: domain.KindAudio, URI: "http://www.webrtc.org/experiments/rtp-hdrext/abs-send-time", PreferredID: 4},
			{Kind: domain.KindVideo, URI: "http://www.webrtc.org/experiments/rtp-hdrext/abs-send-time", PreferredID: 4},
			{Kind: domain.KindAudio, URI: "urn:ietf:params:rtp-hdrext:ssrc-audio-level", PreferredID: 10},
		},
	}
	pt := uint8(100)
	for _, c := range codecs {
		c.Parameters = maps.Clone(c.Parameters)
		if c.Kind == "" {
			c.Kind = domain.KindOfMime(c.MimeType)
		}
		if c.PreferredPayloadType == 0 {
			c.PreferredPayloadType = pt
			pt++
		}
		switch c.Kind {
		case domain.KindAudio:
			c.RtcpFeedback = []domain.RtcpFeedback{{Type: "transport-cc"}}
		case domain.KindVideo:
			c.RtcpFeedback = []domain.RtcpFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
			}
		}
		caps.Codecs = append(caps.Codecs, c)
	}
	return caps
}
