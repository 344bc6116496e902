package chat

import (
	"sync"
	"time"
)

// View is the flat ordered message list backing the open channel's rendering.
// Order is append order, which equals delivery order from the connection.
type View struct {
	mu       sync.Mutex
	messages []UIMessage
}

func NewView() *View {
	return &View{}
}

// Set replaces the list via a function of the previous list, mirroring a
// functional state setter. The previous slice passed to fn must not be
// retained by the caller.
func (v *View) Set(fn func(prev []UIMessage) []UIMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = fn(v.messages)
}

// Append adds a message to the end of the list.
func (v *View) Append(m UIMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
}

// ReplaceByID replaces the entry whose id matches, preserving its position.
// Entries with unknown ids are ignored. Returns whether a replacement
// happened.
func (v *View) ReplaceByID(m UIMessage) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.messages {
		if v.messages[i].ID == m.ID {
			v.messages[i] = m
			return true
		}
	}
	return false
}

// MarkDeleted sets the matching entry's deletion timestamp to now. The entry
// stays in the list; rendering of deleted messages is the UI's concern.
func (v *View) MarkDeleted(id string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.messages {
		if v.messages[i].ID == id {
			ms := now.UnixMilli()
			v.messages[i].DeletedAt = &ms
			return true
		}
	}
	return false
}

// Len returns the current list length.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.messages)
}

// Snapshot returns a copy of the current list.
func (v *View) Snapshot() []UIMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]UIMessage, len(v.messages))
	copy(out, v.messages)
	return out
}
