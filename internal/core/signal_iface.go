package core

import "encoding/json"

// Frame is a raw encoded signaling message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Envelope is the wire shape of every signaling message.
// Requests carry Event and optionally ID; replies carry Ack.
type Envelope struct {
	Event string          `json:"event,omitempty"`
	ID    json.RawMessage `json:"id,omitempty"`
	Ack   json.RawMessage `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func EncodeEvent(name string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: raw})
}

func EncodeAck(id json.RawMessage, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Ack: id, Data: raw})
}
