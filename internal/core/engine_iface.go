package core

import (
	"context"

	"github.com/dkeye/mediagate/internal/domain"
)

//go:generate mockgen -source=engine_iface.go -destination=mock/engine_mock.go -package=mock

// ListenConfig is how a transport exposes itself to clients.
type ListenConfig struct {
	ListenIP    string
	AnnouncedIP string
	EnableUDP   bool
	EnableTCP   bool
	PreferUDP   bool
}

// Engine is the process-wide media routing engine.
// Done is closed when the engine stops; Err then tells why.
type Engine interface {
	CreateRouter(ctx context.Context, codecs []domain.RtpCodecCapability) (EngineRouter, error)
	Done() <-chan struct{}
	Err() error
	Close() error
}

// EngineRouter routes media between the transports of one room.
type EngineRouter interface {
	ID() string
	RtpCapabilities() domain.RtpCapabilities
	CreateWebRtcTransport(ctx context.Context, cfg ListenConfig) (EngineTransport, error)
	Close() error
}

type EngineTransport interface {
	ID() domain.TransportID
	Params() domain.TransportParams
	Connect(ctx context.Context, params domain.ConnectParams) error
	Produce(ctx context.Context, kind domain.MediaKind, rtp domain.RtpParameters) (EngineProducer, error)
	// Consume creates a consumer of a producer living on the same router.
	// It may return ErrIncompatibleCapabilities.
	Consume(ctx context.Context, producer EngineProducer, caps domain.RtpCapabilities, paused bool) (EngineConsumer, error)
	// OnStateChange registers the callback for ICE/DTLS state reports.
	OnStateChange(fn func(domain.TransportState))
	Close() error
}

type EngineProducer interface {
	ID() domain.ProducerID
	Kind() domain.MediaKind
	RtpParameters() domain.RtpParameters
	Close() error
}

type EngineConsumer interface {
	ID() domain.ConsumerID
	Kind() domain.MediaKind
	RtpParameters() domain.RtpParameters
	Resume(ctx context.Context) error
	Close() error
}
