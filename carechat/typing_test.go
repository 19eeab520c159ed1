package carechat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typingRecorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *typingRecorder) record(isTyping bool) {
	r.mu.Lock()
	r.events = append(r.events, isTyping)
	r.mu.Unlock()
}

func (r *typingRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.events))
	copy(out, r.events)
	return out
}

func TestDebounceBurstEmitsOnce(t *testing.T) {
	rec := &typingRecorder{}
	d := NewTypingDebouncer("conv-1", 80*time.Millisecond, time.Second, rec.record)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Keystroke()
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, []bool{true}, rec.snapshot(), "burst must emit exactly one typing:true")

	require.Eventually(t, func() bool {
		ev := rec.snapshot()
		return len(ev) == 2 && !ev[1]
	}, time.Second, 10*time.Millisecond, "idle window must emit exactly one typing:false")

	// No further emissions after the idle expiry.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestFlushEmitsStopImmediately(t *testing.T) {
	rec := &typingRecorder{}
	d := NewTypingDebouncer("conv-1", time.Minute, time.Second, rec.record)
	defer d.Stop()

	d.Keystroke()
	d.Flush()

	assert.Equal(t, []bool{true, false}, rec.snapshot())

	// Flush with no outstanding typing:true is a no-op.
	d.Flush()
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestRemoteTypingSet(t *testing.T) {
	d := NewTypingDebouncer("conv-1", time.Second, time.Minute, nil)
	defer d.Stop()

	d.Observe(TypingEvent{ConversationID: "conv-1", UserID: "u2", UserName: "Dr. Lee", IsTyping: true})
	d.Observe(TypingEvent{ConversationID: "conv-1", UserID: "u3", UserName: "Alex", IsTyping: true})
	d.Observe(TypingEvent{ConversationID: "other", UserID: "u9", UserName: "Ghost", IsTyping: true})

	assert.Equal(t, []string{"Alex", "Dr. Lee"}, d.Typists())

	d.Observe(TypingEvent{ConversationID: "conv-1", UserID: "u3", UserName: "Alex", IsTyping: false})
	assert.Equal(t, []string{"Dr. Lee"}, d.Typists())
}

func TestRemoteTypingSafetyExpiry(t *testing.T) {
	d := NewTypingDebouncer("conv-1", time.Second, 50*time.Millisecond, nil)
	defer d.Stop()

	// typing:false lost; the safety expiry must still clear the entry.
	d.Observe(TypingEvent{ConversationID: "conv-1", UserID: "u2", UserName: "Dr. Lee", IsTyping: true})
	require.Len(t, d.Typists(), 1)

	require.Eventually(t, func() bool {
		return len(d.Typists()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStopSilencesEmissions(t *testing.T) {
	rec := &typingRecorder{}
	d := NewTypingDebouncer("conv-1", 30*time.Millisecond, time.Second, rec.record)

	d.Keystroke()
	d.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []bool{true}, rec.snapshot(), "no typing:false after Stop")
	assert.Empty(t, d.Typists())
}
