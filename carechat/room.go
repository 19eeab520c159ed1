package carechat

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// transport is the slice of Client the room tracker and session depend on.
// Tests substitute a fake.
type transport interface {
	Emit(ctx context.Context, typ string, data any) error
	EmitWithAck(ctx context.Context, typ string, data any, timeout time.Duration) (json.RawMessage, error)
}

// RoomTracker owns membership state for conversations on one connection.
// Membership never survives a disconnect: the owning session must call Join
// again after every reconnect.
type RoomTracker struct {
	tr      transport
	timeout time.Duration

	mu    sync.Mutex
	rooms map[string]RoomState
}

// NewRoomTracker builds a tracker bound to the given transport. timeout
// bounds the join acknowledgement wait.
func NewRoomTracker(tr transport, timeout time.Duration) *RoomTracker {
	return &RoomTracker{
		tr:      tr,
		timeout: timeout,
		rooms:   make(map[string]RoomState),
	}
}

// State returns the membership state for a conversation.
func (r *RoomTracker) State(conversationID string) RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[conversationID]
}

// Join requests membership and waits for the acknowledgement. Failures and
// timeouts revert to not-joined and are returned to the caller; they are
// never retried automatically.
func (r *RoomTracker) Join(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	if r.rooms[conversationID] == RoomJoined {
		r.mu.Unlock()
		return nil
	}
	r.rooms[conversationID] = RoomJoining
	r.mu.Unlock()

	_, err := r.tr.EmitWithAck(ctx, inboundJoin, RoomPayload{ConversationID: conversationID}, r.timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rooms[conversationID] = RoomNotJoined
		return WrapError(ErrorJoinFailed, "could not join conversation "+conversationID, err)
	}
	// A disconnect may have raced the ack; Reset already cleared the entry.
	if r.rooms[conversationID] == RoomJoining {
		r.rooms[conversationID] = RoomJoined
	}
	return nil
}

// Leave is best-effort: the leave request is sent without waiting for an
// acknowledgement and the state always ends not-joined.
func (r *RoomTracker) Leave(ctx context.Context, conversationID string) {
	r.mu.Lock()
	r.rooms[conversationID] = RoomLeaving
	r.mu.Unlock()

	_ = r.tr.Emit(ctx, inboundLeave, RoomPayload{ConversationID: conversationID})

	r.mu.Lock()
	r.rooms[conversationID] = RoomNotJoined
	r.mu.Unlock()
}

// Reset drops every membership. Called on transport disconnect.
func (r *RoomTracker) Reset() {
	r.mu.Lock()
	r.rooms = make(map[string]RoomState)
	r.mu.Unlock()
}
