package carechat

import (
	"fmt"
	"time"
)

// MessageKind classifies the message body.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// MessageID identifies a message as either an optimistic local entry or a
// server-confirmed one. Exactly one of the two variants is set.
type MessageID struct {
	local  uint64
	remote string
}

// LocalID builds the identifier of an optimistic, not yet confirmed message.
func LocalID(n uint64) MessageID { return MessageID{local: n} }

// RemoteID builds the identifier of a server-confirmed message.
func RemoteID(id string) MessageID { return MessageID{remote: id} }

// IsLocal reports whether the message is still optimistic.
func (id MessageID) IsLocal() bool { return id.remote == "" }

// Remote returns the server-issued id, or "" for optimistic entries.
func (id MessageID) Remote() string { return id.remote }

// Local returns the local counter value, valid only when IsLocal.
func (id MessageID) Local() uint64 { return id.local }

func (id MessageID) String() string {
	if id.IsLocal() {
		return fmt.Sprintf("local-%d", id.local)
	}
	return id.remote
}

// Message is one entry of a conversation as the session sees it.
type Message struct {
	ID             MessageID
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	Kind           MessageKind
	CreatedAt      time.Time
	Read           bool
	AttachmentURL  string

	// ClientTag is the idempotency token assigned when the message was sent
	// optimistically; the gateway echoes it so the confirmed copy can be
	// matched against the optimistic one.
	ClientTag string

	// Failed marks a message whose realtime send and REST fallback both
	// failed. It stays visible so the user can retry.
	Failed bool
}

// MessageEvent is the new_message broadcast payload.
type MessageEvent struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	SenderName     string      `json:"sender_name,omitempty"`
	Content        string      `json:"content"`
	Kind           MessageKind `json:"kind"`
	CreatedAt      time.Time   `json:"created_at"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	ClientTag      string      `json:"client_tag,omitempty"`
}

// Message converts the wire event into a store entry.
func (ev MessageEvent) Message() Message {
	kind := ev.Kind
	if kind == "" {
		kind = KindText
	}
	return Message{
		ID:             RemoteID(ev.ID),
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		SenderName:     ev.SenderName,
		Content:        ev.Content,
		Kind:           kind,
		CreatedAt:      ev.CreatedAt,
		AttachmentURL:  ev.AttachmentURL,
		ClientTag:      ev.ClientTag,
	}
}

// TypingEvent is the typing_status broadcast payload.
type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name,omitempty"`
	IsTyping       bool   `json:"is_typing"`
}

// ReadEvent is the message_read broadcast payload.
type ReadEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	ReaderID       string `json:"reader_id"`
}
