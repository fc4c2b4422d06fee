package chatango

import "fmt"

// RoomError is the base for room-scoped failures surfaced to callers.
type RoomError struct {
	RoomName string
	Reason   string
}

func (e *RoomError) Error() string {
	return fmt.Sprintf("room %q: %s", e.RoomName, e.Reason)
}

// InvalidRoomNameError reports a room name that fails validation. Raised
// synchronously at construction; nothing else surfaces it.
type InvalidRoomNameError struct{ RoomError }

// NewInvalidRoomNameError returns an InvalidRoomNameError for name.
func NewInvalidRoomNameError(name string) *InvalidRoomNameError {
	return &InvalidRoomNameError{RoomError{RoomName: name, Reason: "invalid room name"}}
}

// AlreadyConnectedError reports a connect on a room that is already
// connected.
type AlreadyConnectedError struct{ RoomError }

// NewAlreadyConnectedError returns an AlreadyConnectedError for name.
func NewAlreadyConnectedError(name string) *AlreadyConnectedError {
	return &AlreadyConnectedError{RoomError{RoomName: name, Reason: "already connected"}}
}

// NotConnectedError reports an operation that requires a live connection.
// Outbound sends treat this as a quiet no-op; the type exists for callers
// that need to distinguish it.
type NotConnectedError struct{ RoomError }

// NewNotConnectedError returns a NotConnectedError for name.
func NewNotConnectedError(name string) *NotConnectedError {
	return &NotConnectedError{RoomError{RoomName: name, Reason: "not connected"}}
}
