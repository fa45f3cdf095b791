package orch

import (
	"context"

	"github.com/dkeye/mediagate/internal/app"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	EventPeerJoined     = "peer-joined"
	EventPeerLeft       = "peer-left"
	EventNewProducer    = "new-producer"
	EventProducerClosed = "producer-closed"
)

type PeerEvent struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type ProducerClosedEvent struct {
	RemoteProducerID domain.ProducerID `json:"remoteProducerId"`
	ConsumerID       domain.ConsumerID `json:"consumerId"`
}

// Orchestrator ties peers to rooms and tells rooms what happened.
type Orchestrator struct {
	Registry *app.Registry
	Policy   app.Policy
}

// Join registers conn in room, leaving its previous room first.
func (o *Orchestrator) Join(ctx context.Context, conn domain.ConnectionID, room domain.RoomID) (*core.PeerSession, error) {
	if prev, ok := o.Registry.RoomOf(conn); ok {
		if prev == room {
			return o.Registry.LookupPeer(conn)
		}
		o.Leave(conn)
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("from_room", string(prev)).Msg("left previous room")
	}
	peer, err := o.Registry.RegisterPeer(ctx, conn, room)
	if err != nil {
		return nil, err
	}
	peer.OnConsumerClosed(func(c *core.ConsumerRef) {
		o.SendTo(conn, EventProducerClosed, ProducerClosedEvent{RemoteProducerID: c.Source().ID(), ConsumerID: c.ID()})
	})
	o.broadcast(room, conn, EventPeerJoined, PeerEvent{ConnectionID: conn})
	log.Info().Str("module", "orch").Str("conn", string(conn)).Str("room", string(room)).Msg("added to room")
	return peer, nil
}

// Leave closes conn's peer and tells the room.
func (o *Orchestrator) Leave(conn domain.ConnectionID) {
	room, ok := o.Registry.RoomOf(conn)
	if !o.Registry.RemovePeer(conn) || !ok {
		return
	}
	o.broadcast(room, conn, EventPeerLeft, PeerEvent{ConnectionID: conn})
}

// Disconnect is the full cleanup of a connection that went away.
func (o *Orchestrator) Disconnect(conn domain.ConnectionID) {
	o.Leave(conn)
	o.Registry.Unbind(conn)
}

// Kick drops a connection. Its signaling loop is canceled and cleans up after itself.
func (o *Orchestrator) Kick(conn domain.ConnectionID) bool {
	if o.Registry.Cancel(conn) {
		return true
	}
	if _, err := o.Registry.LookupPeer(conn); err != nil {
		return false
	}
	o.Leave(conn)
	return true
}

func (o *Orchestrator) EvictRoom(room domain.RoomID) bool {
	conns, ok := o.Registry.EvictRoom(room)
	for _, id := range conns {
		o.Registry.Cancel(id)
	}
	return ok
}

// OnProduced announces a new producer to the rest of its room.
func (o *Orchestrator) OnProduced(conn domain.ConnectionID, p *core.ProducerRef) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	o.broadcast(room, conn, EventNewProducer, core.ProducerInfo{ID: p.ID(), Kind: p.Kind(), ConnectionID: conn})
}

// Producers lists the producers of conn's room owned by other peers.
func (o *Orchestrator) Producers(conn domain.ConnectionID) []core.ProducerInfo {
	peer, err := o.Registry.LookupPeer(conn)
	if err != nil {
		return nil
	}
	var out []core.ProducerInfo
	for _, p := range peer.Routing().Producers() {
		if p.Owner() == conn {
			continue
		}
		out = append(out, core.ProducerInfo{ID: p.ID(), Kind: p.Kind(), ConnectionID: p.Owner()})
	}
	return out
}

func (o *Orchestrator) SendTo(conn domain.ConnectionID, event string, data any) bool {
	sig, ok := o.Registry.Signal(conn)
	if !ok {
		return false
	}
	frame, err := core.EncodeEvent(event, data)
	if err != nil {
		log.Error().Str("module", "orch").Str("event", event).Err(err).Msg("encode event")
		return false
	}
	if err := sig.TrySend(frame); err != nil {
		room, _ := o.Registry.RoomOf(conn)
		o.onBackpressure(room, conn)
		return false
	}
	return true
}

func (o *Orchestrator) broadcast(room domain.RoomID, from domain.ConnectionID, event string, data any) {
	frame, err := core.EncodeEvent(event, data)
	if err != nil {
		log.Error().Str("module", "orch").Str("event", event).Err(err).Msg("encode event")
		return
	}
	sent := 0
	var slow []domain.ConnectionID
	for _, m := range o.Registry.MembersOfRoom(room) {
		if m.ID == from || m.Signal == nil {
			continue
		}
		if err := m.Signal.TrySend(frame); err != nil {
			slow = append(slow, m.ID)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "orch").Str("room", string(room)).Str("event", event).Int("sent_to", sent).Int("dropped", len(slow)).Msg("broadcast result")
	for _, id := range slow {
		o.onBackpressure(room, id)
	}
}

func (o *Orchestrator) onBackpressure(room domain.RoomID, conn domain.ConnectionID) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(room, conn) {
	case app.KickPeer:
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("kicking slow peer")
		o.Kick(conn)
	case app.DropEvent, app.NoAction:
	}
}
