package signal

import (
	"context"
	"fmt"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) join(ctx context.Context, connID domain.ConnectionID, room domain.RoomID) (*core.PeerSession, error) {
	if room == "" {
		return nil, fmt.Errorf("%w: no room", core.ErrBadRequest)
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("room", string(room)).Msg("join")
	return ctl.Orch.Join(ctx, connID, room)
}

func (ctl *SignalWSController) handleJoinRoom(req *request) {
	var p struct {
		RoomName string `json:"roomName"`
	}
	if err := req.decode(&p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.replyError(req, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	room, err := domain.NewRoomID(p.RoomName)
	if err != nil {
		ctl.replyError(req, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	peer, err := ctl.join(req.ctx, req.conn, room)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(req.conn)).Msg("join failed")
		ctl.replyError(req, err)
		return
	}
	caps, err := peer.GetCapabilities()
	if err != nil {
		ctl.replyError(req, err)
		return
	}
	ctl.reply(req, struct {
		RtpCapabilities domain.RtpCapabilities `json:"rtpCapabilities"`
	}{caps})
}

func (ctl *SignalWSController) handleGetProducers(req *request) {
	if _, err := ctl.peer(req); err != nil {
		ctl.replyError(req, err)
		return
	}
	producers := ctl.Orch.Producers(req.conn)
	if producers == nil {
		producers = []core.ProducerInfo{}
	}
	ctl.reply(req, struct {
		Producers []core.ProducerInfo `json:"producers"`
	}{producers})
}

// handleDisconnect ends the connection; readPump does the cleanup.
func (ctl *SignalWSController) handleDisconnect(req *request) {
	log.Info().Str("module", "signal").Str("conn", string(req.conn)).Msg("client disconnect")
	ctl.Orch.Leave(req.conn)
	ctl.Orch.Registry.Cancel(req.conn)
}
