package carechat

import "sync"

// Store holds the ordered messages of one conversation and reconciles
// optimistic local entries with gateway-confirmed copies. Display order is
// insertion order: seeded history first, then arrival order. The store never
// re-sorts by timestamp.
type Store struct {
	mu        sync.Mutex
	selfID    string
	messages  []Message
	byRemote  map[string]int
	nextLocal uint64
	seeded    bool
}

// NewStore builds an empty store. selfID identifies the local session's user
// for self-echo reconciliation.
func NewStore(selfID string) *Store {
	return &Store{
		selfID:   selfID,
		byRemote: make(map[string]int),
	}
}

// Seed installs server history (oldest-first) as the prefix of the store.
// Messages that arrived over the transport while the history fetch was in
// flight are preserved after the seeded prefix, deduplicated by remote id.
// Seeding twice replaces the previous seed.
func (s *Store) Seed(history []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var appended []Message
	if s.seeded {
		appended = nil // a re-seed replaces everything
	} else {
		appended = s.messages
	}

	seen := make(map[string]bool, len(history))
	merged := make([]Message, 0, len(history)+len(appended))
	for _, m := range history {
		if r := m.ID.Remote(); r != "" {
			if seen[r] {
				continue
			}
			seen[r] = true
		}
		merged = append(merged, m)
	}
	for _, m := range appended {
		if r := m.ID.Remote(); r != "" && seen[r] {
			continue
		}
		merged = append(merged, m)
	}

	s.messages = merged
	s.seeded = true
	s.reindex()
}

// ApplyOptimistic appends a local entry immediately and returns its id. The
// UI shows the message before any network round trip completes.
func (s *Store) ApplyOptimistic(m Message) MessageID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLocal++
	m.ID = LocalID(s.nextLocal)
	s.messages = append(s.messages, m)
	return m.ID
}

// ApplyIncoming reconciles a confirmed message into the store:
//  1. a message with the same remote id already exists: drop the duplicate;
//  2. a self-sent echo matching an optimistic entry (by client tag, or by
//     content when the tag is absent): replace that entry in place;
//  3. otherwise: append.
//
// The returned flag is false only in the duplicate case.
func (s *Store) ApplyIncoming(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote := m.ID.Remote()
	if remote != "" {
		if _, dup := s.byRemote[remote]; dup {
			return false
		}
	}

	if m.SenderID == s.selfID {
		if i := s.matchOptimistic(m); i >= 0 {
			m.Read = s.messages[i].Read
			s.messages[i] = m
			if remote != "" {
				s.byRemote[remote] = i
			}
			return true
		}
	}

	s.messages = append(s.messages, m)
	if remote != "" {
		s.byRemote[remote] = len(s.messages) - 1
	}
	return true
}

// matchOptimistic finds the oldest unconfirmed self entry matching the echo.
// The client tag is authoritative; content equality is the fallback for
// gateways that do not echo tags. Caller holds the lock.
func (s *Store) matchOptimistic(m Message) int {
	for i, cur := range s.messages {
		if !cur.ID.IsLocal() || cur.SenderID != s.selfID {
			continue
		}
		if m.ClientTag != "" && cur.ClientTag != "" {
			if m.ClientTag == cur.ClientTag {
				return i
			}
			continue
		}
		if cur.Content == m.Content {
			return i
		}
	}
	return -1
}

// MarkRead flips the read flag of a confirmed message. Unknown ids are
// ignored; the echo may describe a message outside the loaded window.
func (s *Store) MarkRead(remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byRemote[remoteID]; ok {
		s.messages[i].Read = true
	}
}

// MarkFailed flags an optimistic entry whose delivery gave up entirely. The
// entry stays visible so the user can retry.
func (s *Store) MarkFailed(id MessageID) {
	if !id.IsLocal() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Failed = true
			return
		}
	}
}

// Snapshot returns a copy of the ordered messages.
func (s *Store) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) reindex() {
	s.byRemote = make(map[string]int, len(s.messages))
	for i, m := range s.messages {
		if r := m.ID.Remote(); r != "" {
			s.byRemote[r] = i
		}
	}
}
