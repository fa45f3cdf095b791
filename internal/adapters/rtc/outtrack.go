package rtc

import (
	"sync/atomic"

	"github.com/dkeye/mediagate/internal/domain"
	"github.com/pion/rtp"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

func (s TrackState) String() string {
	switch s {
	case TrackStateOk:
		return "ok"
	case TrackStateMuted:
		return "muted"
	case TrackStateDelete:
		return "delete"
	}
	return "unknown"
}

type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
}

// OutTrack is the write side of one consumer. A paused consumer is muted.
type OutTrack struct {
	consumer domain.ConsumerID
	w        rtpWriter
	state    atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(consumer domain.ConsumerID, w rtpWriter) *OutTrack {
	return &OutTrack{consumer: consumer, w: w}
}

func (ot *OutTrack) Consumer() domain.ConsumerID { return ot.consumer }

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.CompareAndSwap(int32(TrackStateMuted), int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.CompareAndSwap(int32(TrackStateOk), int32(TrackStateMuted))
}

// MarkDelete is final: a deleted track never comes back.
func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}
