package carechat

import "encoding/json"

const (
	ProtocolVersion = 1

	inboundHello   = "hello"
	inboundJoin    = "join_room"
	inboundLeave   = "leave_room"
	inboundTyping  = "typing"
	inboundSendMsg = "send_message"

	outboundAck   = "ack"
	outboundEvent = "event"
	outboundError = "error"

	eventNewMessage   = "new_message"
	eventTypingStatus = "typing_status"
	eventMessageRead  = "message_read"
)

// Inbound is the envelope client -> server. ID is set on requests that
// expect an acknowledgement and echoed back by the server.
type Inbound struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Outbound is the envelope server -> client. Acks carry the request ID they
// answer; events carry an Event name and payload.
type Outbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// HelloPayload opens the session. The gateway validates Token before any
// other request is accepted.
type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	Token    string `json:"token,omitempty"`
	User     string `json:"user,omitempty"`
}

// RoomPayload subscribes to or unsubscribes from a conversation.
type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// TypingPayload reports local typing activity to the room.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// SendPayload publishes a message to a conversation. ClientTag is a
// client-issued idempotency token echoed back in the new_message broadcast.
type SendPayload struct {
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Kind           MessageKind `json:"kind"`
	ClientTag      string      `json:"client_tag,omitempty"`
}

// Error describes a protocol error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
