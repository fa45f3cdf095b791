package app

import "github.com/dkeye/mediagate/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	KickPeer
)

// Policy decides what happens to a peer whose outbound queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, conn domain.ConnectionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomID, conn domain.ConnectionID) BackpressureAction {
	return KickPeer
}
