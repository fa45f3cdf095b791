package rtc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Producer receives one client stream and feeds its relay.
type Producer struct {
	transport *Transport
	id        domain.ProducerID
	kind      domain.MediaKind
	rtp       domain.RtpParameters
	codec     domain.RtpCodecParameters
	receiver  *webrtc.RTPReceiver
	relay     *Relay
	logger    zerolog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

func newProducer(t *Transport, kind domain.MediaKind, params domain.RtpParameters) (*Producer, error) {
	typ, ok := codecType(kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", core.ErrBadRequest, kind)
	}
	codecs := params.MediaCodecs()
	if len(codecs) == 0 {
		return nil, fmt.Errorf("%w: no media codec", core.ErrBadRequest)
	}
	if len(params.Encodings) == 0 {
		return nil, fmt.Errorf("%w: no encodings", core.ErrBadRequest)
	}
	for _, e := range params.Encodings {
		if e.Ssrc == 0 {
			return nil, fmt.Errorf("%w: pion engine needs an ssrc per encoding", core.ErrBadRequest)
		}
	}
	receiver, err := t.api.NewRTPReceiver(typ, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("%w: rtp receiver: %v", core.ErrEngineUnavailable, err)
	}
	id := domain.ProducerID(uuid.NewString())
	logger := t.logger.With().Str("producer", string(id)).Str("kind", string(kind)).Logger()
	return &Producer{
		transport: t,
		id:        id,
		kind:      kind,
		rtp:       params.Clone(),
		codec:     codecs[0],
		receiver:  receiver,
		relay:     NewRelay(logger),
		logger:    logger,
	}, nil
}

func (p *Producer) ID() domain.ProducerID               { return p.id }
func (p *Producer) Kind() domain.MediaKind              { return p.kind }
func (p *Producer) RtpParameters() domain.RtpParameters { return p.rtp.Clone() }

func (p *Producer) ssrc() uint32 { return p.rtp.Encodings[0].Ssrc }

// start binds the receiver to the producer's SSRCs and runs the relay.
// Called once the transport can decrypt SRTP.
func (p *Producer) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.started {
		return
	}
	p.started = true

	encodings := make([]webrtc.RTPDecodingParameters, 0, len(p.rtp.Encodings))
	for _, e := range p.rtp.Encodings {
		encodings = append(encodings, webrtc.RTPDecodingParameters{
			RTPCodingParameters: webrtc.RTPCodingParameters{
				SSRC:        webrtc.SSRC(e.Ssrc),
				PayloadType: webrtc.PayloadType(p.codec.PayloadType),
			},
		})
	}
	if err := p.receiver.Receive(webrtc.RTPReceiveParameters{Encodings: encodings}); err != nil {
		p.logger.Error().Err(err).Msg("receive failed")
		p.relay.Stop()
		return
	}
	track := p.receiver.Track()
	p.logger.Info().Uint32("ssrc", uint32(track.SSRC())).Msg("producer receiving")

	go p.relay.Run(func() (*rtp.Packet, error) { return readPacket(track) })
	go p.drainRTCP()
}

// readPacket reads one packet off the track. The client may send with its
// own payload type numbers; the consumer track rewrites them.
func readPacket(track *webrtc.TrackRemote) (*rtp.Packet, error) {
	buf := make([]byte, 1500)
	n, _, err := track.Read(buf)
	if err != nil && !errors.Is(err, webrtc.ErrCodecNotFound) {
		return nil, err
	}
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(buf[:n]); err != nil {
		return nil, err
	}
	return pkt, nil
}

func (p *Producer) drainRTCP() {
	for {
		if _, _, err := p.receiver.ReadRTCP(); err != nil {
			return
		}
	}
}

// requestKeyFrame asks the client for a new key frame of a video stream.
func (p *Producer) requestKeyFrame() {
	if p.kind != domain.KindVideo || p.isClosed() {
		return
	}
	pli := &rtcp.PictureLossIndication{MediaSSRC: p.ssrc()}
	if _, err := p.transport.dtls.WriteRTCP([]rtcp.Packet{pli}); err != nil {
		p.logger.Debug().Err(err).Msg("pli not sent")
	}
}

func (p *Producer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.relay.Stop()
	err := p.receiver.Stop()
	p.transport.dropProducer(p.id)
	p.logger.Debug().Msg("producer closed")
	return err
}

// Consumer sends a producer's stream to a client. It starts muted when
// created paused.
type Consumer struct {
	transport *Transport
	source    *Producer
	id        domain.ConsumerID
	kind      domain.MediaKind
	rtp       domain.RtpParameters
	sender    *webrtc.RTPSender
	out       *OutTrack
	logger    zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newConsumer(t *Transport, src *Producer, caps domain.RtpCapabilities, paused bool) (*Consumer, error) {
	if src.isClosed() {
		return nil, fmt.Errorf("%w: producer %s closed", core.ErrNotFound, src.id)
	}
	params, err := core.ConsumerRtpParameters(src.rtp, caps)
	if err != nil {
		return nil, err
	}
	routerCodec, ok := t.router.caps.Find(src.codec)
	if !ok {
		return nil, fmt.Errorf("%w: %s not routed", core.ErrIncompatibleCapabilities, src.codec.MimeType)
	}

	id := domain.ConsumerID(uuid.NewString())
	ssrc := rand.Uint32()
	params.Encodings[0].Ssrc = ssrc
	params.Mid = fmt.Sprint(t.mid.Add(1) - 1)

	track, err := webrtc.NewTrackLocalStaticRTP(codecCapability(routerCodec), string(id), string(src.id))
	if err != nil {
		return nil, fmt.Errorf("%w: local track: %v", core.ErrEngineUnavailable, err)
	}
	sender, err := t.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("%w: rtp sender: %v", core.ErrEngineUnavailable, err)
	}
	if err := sender.Send(webrtc.RTPSendParameters{
		Encodings: []webrtc.RTPEncodingParameters{{
			RTPCodingParameters: webrtc.RTPCodingParameters{
				SSRC:        webrtc.SSRC(ssrc),
				PayloadType: webrtc.PayloadType(routerCodec.PreferredPayloadType),
			},
		}},
	}); err != nil {
		_ = sender.Stop()
		return nil, fmt.Errorf("%w: send: %v", core.ErrEngineUnavailable, err)
	}

	c := &Consumer{
		transport: t,
		source:    src,
		id:        id,
		kind:      src.kind,
		rtp:       params,
		sender:    sender,
		out:       NewOutTrack(id, track),
		logger:    t.logger.With().Str("consumer", string(id)).Str("producer", string(src.id)).Logger(),
	}
	if paused {
		c.out.MarkMuted()
	}
	src.relay.AddOutTrack(c.out)
	go c.readRTCP()
	return c, nil
}

func (c *Consumer) ID() domain.ConsumerID               { return c.id }
func (c *Consumer) Kind() domain.MediaKind              { return c.kind }
func (c *Consumer) RtpParameters() domain.RtpParameters { return c.rtp.Clone() }

func (c *Consumer) Paused() bool { return c.out.GetState() == TrackStateMuted }

// readRTCP relays key frame requests of the receiving client to the producer.
func (c *Consumer) readRTCP() {
	for {
		pkts, _, err := c.sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				c.source.requestKeyFrame()
			}
		}
	}
}

func (c *Consumer) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.out.GetState() == TrackStateDelete {
		return fmt.Errorf("%w: consumer %s closed", core.ErrConsumerNotFound, c.id)
	}
	c.out.MarkOk()
	c.source.requestKeyFrame()
	c.logger.Debug().Msg("consumer resumed")
	return nil
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.out.MarkDelete()
	err := c.sender.Stop()
	c.transport.dropConsumer(c.id)
	c.logger.Debug().Msg("consumer closed")
	return err
}
