package carechat

import (
	"sort"
	"sync"
	"time"
)

// TypingDebouncer converts raw local keystrokes into rate-limited typing
// events and aggregates the remote typing set for one conversation.
//
// Local side: the first keystroke after an idle period emits typing:true
// once; further keystrokes only reset the idle timer; the timer expiring
// emits typing:false once. Flush (called when a message is sent) cancels the
// timer and emits typing:false immediately if a typing:true is outstanding.
//
// Remote side: a set of display names. typing:false removes an entry, but a
// safety expiry also evicts entries in case that event is lost, so an
// indicator can never stick forever.
type TypingDebouncer struct {
	conversationID string
	idle           time.Duration
	expiry         time.Duration
	emit           func(isTyping bool)

	mu      sync.Mutex
	active  bool
	timer   *time.Timer
	remote  map[string]time.Time
	stopped bool
}

// NewTypingDebouncer builds a debouncer for one conversation. emit is called
// with the typing flag to publish; it must not block.
func NewTypingDebouncer(conversationID string, idle, expiry time.Duration, emit func(bool)) *TypingDebouncer {
	if emit == nil {
		emit = func(bool) {}
	}
	return &TypingDebouncer{
		conversationID: conversationID,
		idle:           idle,
		expiry:         expiry,
		emit:           emit,
		remote:         make(map[string]time.Time),
	}
}

// Keystroke registers local typing activity.
func (t *TypingDebouncer) Keystroke() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	first := !t.active
	t.active = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.idleExpired)
	t.mu.Unlock()

	if first {
		t.emit(true)
	}
}

func (t *TypingDebouncer) idleExpired() {
	t.mu.Lock()
	if t.stopped || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	t.emit(false)
}

// Flush forces an immediate typing:false, used when a message is sent.
func (t *TypingDebouncer) Flush() {
	t.mu.Lock()
	if t.stopped || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	t.emit(false)
}

// Observe applies a remote typing_status event. Events for a different
// conversation are ignored.
func (t *TypingDebouncer) Observe(ev TypingEvent) {
	if ev.ConversationID != t.conversationID {
		return
	}
	name := ev.UserName
	if name == "" {
		name = ev.UserID
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if ev.IsTyping {
		t.remote[name] = time.Now()
	} else {
		delete(t.remote, name)
	}
}

// Typists returns the display names currently typing, expired entries
// excluded, sorted for stable rendering.
func (t *TypingDebouncer) Typists() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.expiry)
	names := make([]string, 0, len(t.remote))
	for name, at := range t.remote {
		if t.expiry > 0 && at.Before(cutoff) {
			delete(t.remote, name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop cancels the idle timer and disables further emissions. No typing
// event fires after Stop returns.
func (t *TypingDebouncer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.active = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.remote = make(map[string]time.Time)
	t.mu.Unlock()
}
