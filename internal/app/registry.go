package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"
)

type connEntry struct {
	Room   domain.RoomID
	Peer   *core.PeerSession
	Signal core.SignalConnection
	Cancel context.CancelFunc
}

// Registry owns rooms, peers and the signaling binding of every connection.
// Its tables are guarded by short critical sections that never span an
// engine call; lifecycle changes of one connection are serialized per id.
type Registry struct {
	engine core.Engine
	listen core.ListenConfig

	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connEntry
	rooms map[domain.RoomID]*core.RoutingContext

	creating singleflight.Group
	locks    keyLock
}

func NewRegistry(engine core.Engine, listen core.ListenConfig) *Registry {
	return &Registry{
		engine: engine,
		listen: listen,
		conns:  make(map[domain.ConnectionID]*connEntry),
		rooms:  make(map[domain.RoomID]*core.RoutingContext),
	}
}

func (r *Registry) engineReady() bool {
	select {
	case <-r.engine.Done():
		return false
	default:
		return true
	}
}

func (r *Registry) Room(id domain.RoomID) (*core.RoutingContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.rooms[id]
	return rc, ok
}

// CreateRoom returns the room's routing context, creating its router on first use.
// Concurrent first calls share one router.
func (r *Registry) CreateRoom(ctx context.Context, id domain.RoomID) (*core.RoutingContext, error) {
	if rc, ok := r.Room(id); ok {
		return rc, nil
	}
	if !r.engineReady() {
		return nil, fmt.Errorf("%w: engine stopped", core.ErrEngineUnavailable)
	}
	// The router is shared by every waiter, so no single caller may cancel it.
	shared := context.WithoutCancel(ctx)
	ch := r.creating.DoChan(string(id), func() (any, error) {
		if rc, ok := r.Room(id); ok {
			return rc, nil
		}
		router, err := r.engine.CreateRouter(shared, core.DefaultCodecs())
		if err != nil {
			return nil, fmt.Errorf("%w: create router: %v", core.ErrEngineUnavailable, err)
		}
		rc := core.NewRoutingContext(id, router)
		r.mu.Lock()
		r.rooms[id] = rc
		r.mu.Unlock()
		log.Info().Str("module", "app.registry").Str("room", string(id)).Str("router", router.ID()).Msg("room created")
		return rc, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.RoutingContext), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RegisterPeer creates the PeerSession of a connection in a room.
func (r *Registry) RegisterPeer(ctx context.Context, conn domain.ConnectionID, room domain.RoomID) (*core.PeerSession, error) {
	unlock := r.locks.lock(string(conn))
	defer unlock()

	r.mu.RLock()
	e, ok := r.conns[conn]
	dup := ok && e.Peer != nil
	r.mu.RUnlock()
	if dup {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateConnection, conn)
	}

	rc, err := r.CreateRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	peer := core.NewPeerSession(conn, rc, r.listen)

	r.mu.Lock()
	if r.rooms[room] != rc {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s closed", core.ErrNotFound, room)
	}
	e, ok = r.conns[conn]
	if !ok {
		e = &connEntry{}
		r.conns[conn] = e
	}
	e.Peer = peer
	e.Room = room
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Msg("peer registered")
	return peer, nil
}

func (r *Registry) LookupPeer(conn domain.ConnectionID) (*core.PeerSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	if !ok || e.Peer == nil {
		return nil, fmt.Errorf("%w: peer %s", core.ErrNotFound, conn)
	}
	return e.Peer, nil
}

// RemovePeer closes the connection's PeerSession and forgets it.
// It reports whether there was one.
func (r *Registry) RemovePeer(conn domain.ConnectionID) bool {
	unlock := r.locks.lock(string(conn))
	defer unlock()

	r.mu.Lock()
	e, ok := r.conns[conn]
	if !ok || e.Peer == nil {
		r.mu.Unlock()
		return false
	}
	peer, room := e.Peer, e.Room
	r.mu.Unlock()

	peer.Close()

	r.mu.Lock()
	if e.Peer == peer {
		e.Peer = nil
		e.Room = ""
	}
	if e.Signal == nil {
		delete(r.conns, conn)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Msg("peer removed")
	return true
}

func (r *Registry) BindSignal(conn domain.ConnectionID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok {
		e = &connEntry{}
		r.conns[conn] = e
	}
	e.Signal = sig
	e.Cancel = cancel
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("bound signal")
}

// Unbind forgets the signaling side of a connection. The peer, if any, must be removed first.
func (r *Registry) Unbind(conn domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok {
		return
	}
	e.Signal = nil
	e.Cancel = nil
	if e.Peer == nil {
		delete(r.conns, conn)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("unbind signal")
}

func (r *Registry) Signal(conn domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	if !ok || e.Signal == nil {
		return nil, false
	}
	return e.Signal, true
}

func (r *Registry) RoomOf(conn domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	if !ok || e.Peer == nil {
		return "", false
	}
	return e.Room, true
}

// Member is a snapshot of one connection in a room.
type Member struct {
	ID     domain.ConnectionID
	Peer   *core.PeerSession
	Signal core.SignalConnection
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, 0, len(r.conns))
	for id, e := range r.conns {
		if e.Peer != nil && e.Room == room {
			out = append(out, Member{ID: id, Peer: e.Peer, Signal: e.Signal})
		}
	}
	return out
}

// RoomMates returns the other members of conn's room.
func (r *Registry) RoomMates(conn domain.ConnectionID) []Member {
	room, ok := r.RoomOf(conn)
	if !ok {
		return nil
	}
	members := r.MembersOfRoom(room)
	out := members[:0]
	for _, m := range members {
		if m.ID != conn {
			out = append(out, m)
		}
	}
	return out
}

type RoomInfo struct {
	Name  domain.RoomID `json:"name"`
	Peers int           `json:"peer_count"`
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := make(map[domain.RoomID]int, len(r.rooms))
	for _, e := range r.conns {
		if e.Peer != nil {
			count[e.Room]++
		}
	}
	out := make([]RoomInfo, 0, len(r.rooms))
	for id := range r.rooms {
		out = append(out, RoomInfo{Name: id, Peers: count[id]})
	}
	return out
}

// Cancel stops the connection's signaling loop.
func (r *Registry) Cancel(conn domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.conns[conn]
	var cancel context.CancelFunc
	if ok {
		cancel = e.Cancel
	}
	r.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("canceled connection")
	return true
}

// EvictRoom closes every peer of a room and the room itself.
// It returns the connections that lost their peer.
func (r *Registry) EvictRoom(room domain.RoomID) ([]domain.ConnectionID, bool) {
	r.mu.Lock()
	rc, ok := r.rooms[room]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.rooms, room)
	var ids []domain.ConnectionID
	var peers []*core.PeerSession
	for id, e := range r.conns {
		if e.Peer != nil && e.Room == room {
			ids = append(ids, id)
			peers = append(peers, e.Peer)
			e.Peer = nil
			e.Room = ""
		}
	}
	r.mu.Unlock()

	closeAll(peers)
	rc.Close()
	log.Info().Str("module", "app.registry").Str("room", string(room)).Int("peers", len(ids)).Msg("room evicted")
	return ids, true
}

// Shutdown closes every peer, then every room.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	var peers []*core.PeerSession
	for id, e := range r.conns {
		if e.Peer != nil {
			peers = append(peers, e.Peer)
		}
		delete(r.conns, id)
	}
	rooms := make([]*core.RoutingContext, 0, len(r.rooms))
	for id, rc := range r.rooms {
		rooms = append(rooms, rc)
		delete(r.rooms, id)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		closeAll(peers)
		for _, rc := range rooms {
			rc.Close()
		}
		close(done)
	}()
	select {
	case <-done:
		log.Info().Str("module", "app.registry").Int("peers", len(peers)).Int("rooms", len(rooms)).Msg("registry shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeAll(peers []*core.PeerSession) {
	var wg conc.WaitGroup
	for _, p := range peers {
		wg.Go(p.Close)
	}
	wg.Wait()
}
