package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dkeye/mediagate/internal/app"
	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type adminHandlers struct {
	orch *orch.Orchestrator
}

func (h *adminHandlers) listRooms(c *gin.Context) {
	rooms := h.orch.Registry.Rooms()
	slices.SortFunc(rooms, func(a, b app.RoomInfo) int { return strings.Compare(string(a.Name), string(b.Name)) })
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *adminHandlers) listPeers(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))
	if _, ok := h.orch.Registry.Room(room); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	members := h.orch.Registry.MembersOfRoom(room)
	peers := make([]core.PeerSnapshot, 0, len(members))
	for _, m := range members {
		peers = append(peers, m.Peer.Snapshot())
	}
	slices.SortFunc(peers, func(a, b core.PeerSnapshot) int { return strings.Compare(string(a.ID), string(b.ID)) })
	c.JSON(http.StatusOK, gin.H{"room": room, "peers": peers})
}

func (h *adminHandlers) evictRoom(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))
	if !h.orch.EvictRoom(room) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(room)).Msg("room evicted by admin")
	c.Status(http.StatusNoContent)
}

func (h *adminHandlers) kickPeer(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))
	id := domain.ConnectionID(c.Param("id"))
	if current, ok := h.orch.Registry.RoomOf(id); !ok || current != room {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}
	h.orch.Kick(id)
	log.Info().Str("module", "adapters.http").Str("room", string(room)).Str("conn", string(id)).Msg("peer kicked by admin")
	c.Status(http.StatusNoContent)
}
