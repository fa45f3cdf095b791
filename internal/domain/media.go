package domain

import "strings"

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool { return k == KindAudio || k == KindVideo }

// KindOfMime returns the media kind encoded in a mime type such as "audio/opus".
func KindOfMime(mime string) MediaKind {
	kind, _, _ := strings.Cut(strings.ToLower(mime), "/")
	return MediaKind(kind)
}

// Direction tells whether a transport carries media from the client or to it.
type Direction string

const (
	DirectionProducing Direction = "producing"
	DirectionConsuming Direction = "consuming"
)

func (d Direction) Valid() bool { return d == DirectionProducing || d == DirectionConsuming }

// DirectionFor maps the client's "sender" flag onto a direction.
func DirectionFor(sender bool) Direction {
	if sender {
		return DirectionProducing
	}
	return DirectionConsuming
}

type TransportState string

const (
	TransportNew        TransportState = "new"
	TransportConnecting TransportState = "connecting"
	TransportConnected  TransportState = "connected"
	TransportClosed     TransportState = "closed"
	TransportFailed     TransportState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TransportState) Terminal() bool {
	return s == TransportClosed || s == TransportFailed
}

type NegotiationState int

const (
	StateConnected NegotiationState = iota
	StateCapabilitiesExchanged
	StateTransportsPending
	StateProducing
	StateConsuming
)

func (s NegotiationState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateCapabilitiesExchanged:
		return "capabilities_exchanged"
	case StateTransportsPending:
		return "transports_pending"
	case StateProducing:
		return "producing"
	case StateConsuming:
		return "consuming"
	}
	return "unknown"
}
