package carechat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteMsg(id, sender, content string) Message {
	return Message{
		ID:             RemoteID(id),
		ConversationID: "conv-1",
		SenderID:       sender,
		Content:        content,
		Kind:           KindText,
		CreatedAt:      time.Now(),
	}
}

func TestApplyIncomingIdempotent(t *testing.T) {
	s := NewStore("self")

	require.True(t, s.ApplyIncoming(remoteMsg("srv-1", "U2", "hello")))
	require.False(t, s.ApplyIncoming(remoteMsg("srv-1", "U2", "hello")))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "srv-1", snap[0].ID.Remote())
}

func TestOptimisticReconciliationByContent(t *testing.T) {
	s := NewStore("U1")

	s.ApplyIncoming(remoteMsg("srv-0", "U2", "before"))
	localID := s.ApplyOptimistic(Message{SenderID: "U1", Content: "hi", Kind: KindText})
	s.ApplyIncoming(remoteMsg("srv-9", "U2", "after"))

	require.True(t, s.ApplyIncoming(remoteMsg("srv-1", "U1", "hi")))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	// The confirmed copy takes the optimistic entry's position.
	assert.Equal(t, "srv-1", snap[1].ID.Remote())
	assert.False(t, snap[1].ID.IsLocal())

	for _, m := range snap {
		assert.NotEqual(t, localID, m.ID, "optimistic entry must be replaced, not duplicated")
	}
}

func TestOptimisticReconciliationPrefersClientTag(t *testing.T) {
	s := NewStore("U1")

	// Two optimistic messages with identical text sent in quick succession.
	s.ApplyOptimistic(Message{SenderID: "U1", Content: "ok", ClientTag: "tag-a"})
	s.ApplyOptimistic(Message{SenderID: "U1", Content: "ok", ClientTag: "tag-b"})

	echo := remoteMsg("srv-2", "U1", "ok")
	echo.ClientTag = "tag-b"
	require.True(t, s.ApplyIncoming(echo))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap[0].ID.IsLocal(), "tag-a entry stays optimistic")
	assert.Equal(t, "srv-2", snap[1].ID.Remote(), "tag-b entry is the one confirmed")
}

func TestOrderPreservation(t *testing.T) {
	s := NewStore("self")

	s.Seed([]Message{
		remoteMsg("m1", "U2", "one"),
		remoteMsg("m2", "U2", "two"),
		remoteMsg("m3", "U2", "three"),
	})
	s.ApplyIncoming(remoteMsg("m4", "U2", "four"))

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		assert.Equal(t, want, snap[i].ID.Remote())
	}
}

func TestSeedKeepsMessagesThatRacedTheFetch(t *testing.T) {
	s := NewStore("self")

	// new_message events can arrive before the history fetch resolves.
	s.ApplyIncoming(remoteMsg("m3", "U2", "latest"))
	s.ApplyIncoming(remoteMsg("m4", "U2", "even newer"))

	s.Seed([]Message{
		remoteMsg("m1", "U2", "old"),
		remoteMsg("m2", "U2", "older"),
		remoteMsg("m3", "U2", "latest"), // also present in history
	})

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		assert.Equal(t, want, snap[i].ID.Remote())
	}
}

func TestMarkRead(t *testing.T) {
	s := NewStore("self")
	s.ApplyIncoming(remoteMsg("srv-1", "U2", "hello"))

	s.MarkRead("srv-1")
	s.MarkRead("srv-unknown") // outside the loaded window, ignored

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Read)
}

func TestMarkFailedKeepsEntryVisible(t *testing.T) {
	s := NewStore("U1")
	id := s.ApplyOptimistic(Message{SenderID: "U1", Content: "lost"})

	s.MarkFailed(id)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Failed)
	assert.Equal(t, "lost", snap[0].Content)
}

func TestReadStateSurvivesReconciliation(t *testing.T) {
	s := NewStore("U1")
	s.ApplyOptimistic(Message{SenderID: "U1", Content: "hi", ClientTag: "t1"})

	echo := remoteMsg("srv-1", "U1", "hi")
	echo.ClientTag = "t1"
	s.ApplyIncoming(echo)
	s.MarkRead("srv-1")

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Read)
}
