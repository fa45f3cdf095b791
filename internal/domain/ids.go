// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

type (
	ConnectionID string
	TransportID  string
	ProducerID   string
	ConsumerID   string
)

// NewConnectionID returns a fresh identity for a signaling connection.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
