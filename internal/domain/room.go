package domain

import "errors"

const MaxRoomIDLen = 36

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

type RoomID string

// NewRoomID validates a client supplied room name.
func NewRoomID(name string) (RoomID, error) {
	if len(name) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(name) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(name), nil
}
