package rtc

import (
	"maps"
	"sync"

	"github.com/dkeye/mediagate/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Relay fans the packets of one producer out to its consumers.
type Relay struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	outTracks map[domain.ConsumerID]*OutTrack

	done     chan struct{}
	stopOnce sync.Once
}

func NewRelay(logger zerolog.Logger) *Relay {
	return &Relay{
		logger:    logger,
		outTracks: make(map[domain.ConsumerID]*OutTrack),
		done:      make(chan struct{}),
	}
}

// Run reads packets until read fails or the relay is stopped.
func (r *Relay) Run(read func() (*rtp.Packet, error)) {
	for {
		select {
		case <-r.done:
			r.markAllDelete()
			return
		default:
		}
		pkt, err := read()
		if err != nil {
			if !r.Stopped() {
				r.logger.Error().Err(err).Msg("relay read RTP error, stopping")
			}
			r.markAllDelete()
			return
		}
		r.forward(pkt)
	}
}

func (r *Relay) forward(pkt *rtp.Packet) {
	r.mu.RLock()
	snapshot := make(map[domain.ConsumerID]*OutTrack, len(r.outTracks))
	maps.Copy(snapshot, r.outTracks)
	r.mu.RUnlock()

	dirty := make([]domain.ConsumerID, 0, len(snapshot))
	for dst, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, dst)
		case TrackStateMuted:
		case TrackStateOk:
			if err := ot.w.WriteRTP(pkt); err != nil {
				r.logger.Error().
					Err(err).
					Str("consumer", string(dst)).
					Msg("relay write RTP error, marking outtrack as delete")
				ot.MarkDelete()
				dirty = append(dirty, dst)
			}
		}
	}

	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []domain.ConsumerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range dirty {
		delete(r.outTracks, id)
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.MarkDelete()
	}
}

func (r *Relay) AddOutTrack(ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Stopped() {
		ot.MarkDelete()
		return
	}
	r.outTracks[ot.consumer] = ot
}

// OutTracks returns how many consumers are still attached.
func (r *Relay) OutTracks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outTracks)
}

func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.markAllDelete()
}

func (r *Relay) Stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
