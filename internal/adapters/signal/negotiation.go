package signal

import (
	"fmt"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

// peer resolves the connection's PeerSession. A connection that never
// joined a room is not ready for negotiation.
func (ctl *SignalWSController) peer(req *request) (*core.PeerSession, error) {
	p, err := ctl.Orch.Registry.LookupPeer(req.conn)
	if err != nil {
		return nil, fmt.Errorf("%w: join a room first", core.ErrSessionNotReady)
	}
	return p, nil
}

// logOrReply reports a fire-and-forget failure, acking it only when asked to.
func (ctl *SignalWSController) logOrReply(req *request, err error) {
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(req.conn)).Str("event", req.env.Event).Msg("request failed")
		ctl.replyError(req, err)
		return
	}
	ctl.reply(req, struct{}{})
}

type paramsReply struct {
	Params any `json:"params"`
}

func (ctl *SignalWSController) handleGetRtpCapabilities(req *request) {
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.logOrReply(req, err)
		return
	}
	caps, err := peer.GetCapabilities()
	if err != nil {
		ctl.logOrReply(req, err)
		return
	}
	resp := struct {
		Capabilities domain.RtpCapabilities `json:"capabilities"`
	}{caps}
	ctl.sendEvent(req.c, "sendRtpCapabilities", resp)
	ctl.reply(req, resp)
}

func (ctl *SignalWSController) handleCreateTransport(req *request) {
	var p struct {
		Sender bool `json:"sender"`
	}
	if err := req.decode(&p); err != nil {
		ctl.reply(req, paramsReply{newErrorPayload(fmt.Errorf("%w: %v", core.ErrBadRequest, err))})
		return
	}
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.reply(req, paramsReply{newErrorPayload(err)})
		return
	}
	params, err := peer.CreateTransport(req.ctx, domain.DirectionFor(p.Sender))
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(req.conn)).Bool("sender", p.Sender).Msg("create transport")
		ctl.reply(req, paramsReply{newErrorPayload(err)})
		return
	}
	ctl.reply(req, paramsReply{params})
}

type connectPayload struct {
	TransportID    domain.TransportID    `json:"transportId,omitempty"`
	DtlsParameters domain.DtlsParameters `json:"dtlsParameters"`
	IceParameters  *domain.IceParameters `json:"iceParameters,omitempty"`
}

func (ctl *SignalWSController) handleConnect(req *request, dir domain.Direction) {
	var p connectPayload
	if err := req.decode(&p); err != nil {
		ctl.logOrReply(req, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.logOrReply(req, err)
		return
	}
	err = peer.ConnectTransport(req.ctx, dir, domain.ConnectParams{
		TransportID: p.TransportID,
		Dtls:        p.DtlsParameters,
		Ice:         p.IceParameters,
	})
	ctl.logOrReply(req, err)
}

func (ctl *SignalWSController) handleProduce(req *request) {
	var p struct {
		Kind          domain.MediaKind     `json:"kind"`
		RtpParameters domain.RtpParameters `json:"rtpParameters"`
	}
	if err := req.decode(&p); err != nil {
		ctl.replyError(req, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.replyError(req, err)
		return
	}
	producer, err := peer.Produce(req.ctx, p.Kind, p.RtpParameters)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(req.conn)).Msg("produce")
		ctl.replyError(req, err)
		return
	}
	ctl.reply(req, struct {
		ID domain.ProducerID `json:"id"`
	}{producer.ID()})
	ctl.Orch.OnProduced(req.conn, producer)
}

type consumeParams struct {
	ID            domain.ConsumerID    `json:"id"`
	ProducerID    domain.ProducerID    `json:"producerId"`
	Kind          domain.MediaKind     `json:"kind"`
	RtpParameters domain.RtpParameters `json:"rtpParameters"`
}

func (ctl *SignalWSController) handleConsume(req *request) {
	var p struct {
		RtpCapabilities domain.RtpCapabilities `json:"rtpCapabilities"`
		ProducerID      domain.ProducerID      `json:"producerId,omitempty"`
	}
	if err := req.decode(&p); err != nil {
		ctl.reply(req, paramsReply{newErrorPayload(fmt.Errorf("%w: %v", core.ErrBadRequest, err))})
		return
	}
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.reply(req, paramsReply{newErrorPayload(err)})
		return
	}
	if p.ProducerID == "" {
		latest, ok := peer.Routing().LatestProducer(req.conn)
		if !ok {
			ctl.reply(req, paramsReply{newErrorPayload(fmt.Errorf("%w: no producer to consume", core.ErrNotFound))})
			return
		}
		p.ProducerID = latest.ID()
	}
	consumer, err := peer.Consume(req.ctx, p.ProducerID, p.RtpCapabilities)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(req.conn)).Str("producer", string(p.ProducerID)).Msg("consume")
		ctl.reply(req, paramsReply{newErrorPayload(err)})
		return
	}
	ctl.reply(req, paramsReply{consumeParams{
		ID:            consumer.ID(),
		ProducerID:    p.ProducerID,
		Kind:          consumer.Kind(),
		RtpParameters: consumer.RtpParameters(),
	}})
}

func (ctl *SignalWSController) handleResume(req *request) {
	var p struct {
		ConsumerID domain.ConsumerID `json:"consumerId,omitempty"`
	}
	if err := req.decode(&p); err != nil {
		ctl.logOrReply(req, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	peer, err := ctl.peer(req)
	if err != nil {
		ctl.logOrReply(req, err)
		return
	}
	ctl.logOrReply(req, peer.ResumeConsumer(req.ctx, p.ConsumerID))
}
