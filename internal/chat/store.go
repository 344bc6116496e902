package chat

import "sync"

// Store is the shared normalized message store, keyed by message id. It may
// hold history for multiple channels at once, unlike a View which is scoped
// to the channel currently open.
//
// All state is in-memory and lives for the process only.
type Store struct {
	mu       sync.RWMutex
	messages map[string]StoreMessage
}

func NewStore() *Store {
	return &Store{messages: make(map[string]StoreMessage)}
}

// Upsert inserts or replaces the message with the same id. Last writer wins
// per message; no field-level merging.
func (s *Store) Upsert(m StoreMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ID] = m
}

// Get returns the message with the given id, if present.
func (s *Store) Get(id string) (StoreMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Len returns the number of stored messages across all channels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// ByChannel returns all stored messages for a channel, in no particular
// order. Ordering is the View's concern.
func (s *Store) ByChannel(channelID string) []StoreMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StoreMessage
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}
