package carechat

// ConnectionState represents the current state of the WebSocket connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is establishing a connection.
	StateConnecting

	// StateConnected means the client is connected and ready.
	StateConnected

	// StateReconnecting means the client is attempting to reconnect after a disconnect.
	StateReconnecting

	// StateError means the client encountered a terminal error.
	StateError

	// StateClosed means the client has been explicitly closed by the user.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a connection state change.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // optional error that caused the change
}

// RoomState represents membership in one conversation.
type RoomState int

const (
	// RoomNotJoined means no acknowledged membership exists.
	RoomNotJoined RoomState = iota

	// RoomJoining means a join request is awaiting acknowledgement.
	RoomJoining

	// RoomJoined means the gateway acknowledged the join.
	RoomJoined

	// RoomLeaving means a leave request was sent; it always ends not-joined.
	RoomLeaving
)

// String returns the string representation of a RoomState.
func (s RoomState) String() string {
	switch s {
	case RoomNotJoined:
		return "not-joined"
	case RoomJoining:
		return "joining"
	case RoomJoined:
		return "joined"
	case RoomLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}
