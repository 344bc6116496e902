package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edugather/gatherd/internal/chat"
	"github.com/edugather/gatherd/internal/metrics"
)

// Bridge keeps the shared store and the open channel's view eventually
// consistent with the server-pushed event stream. Translation is one-way:
// inbound events mutate local state, nothing flows back.
//
// Events for channels other than the open one are silently dropped on the
// create path; there is no buffering for channels the user is not viewing.
// Update and pin events apply regardless of channel, since the store may
// hold history for several channels.
type Bridge struct {
	sub   Subscriber
	store *chat.Store
	view  *chat.View
	log   zerolog.Logger

	mu        sync.RWMutex
	channelID string
}

// NewBridge wires a bridge to a connection. A nil Subscriber yields an inert
// bridge: Attach and Detach become no-ops and no state is ever touched.
func NewBridge(sub Subscriber, channelID string, store *chat.Store, view *chat.View, log zerolog.Logger) *Bridge {
	return &Bridge{
		sub:       sub,
		store:     store,
		view:      view,
		log:       log,
		channelID: channelID,
	}
}

// Attach registers all inbound message handlers. Each event name gets exactly
// one handler for the lifetime of the attachment; call Detach before
// attaching to a different connection or channel.
func (b *Bridge) Attach() {
	if b.sub == nil {
		return
	}
	b.sub.On(EventMessage, b.handleCreated)
	b.sub.On(EventMessageAttachment, b.handleCreated)
	b.sub.On(EventMessageForwarded, b.handleCreated)
	b.sub.On(EventMessageUpdated, b.handleUpdated)
	b.sub.On(EventMessagePinned, b.handlePinned(true))
	b.sub.On(EventMessageUnpinned, b.handlePinned(false))
	b.sub.On(EventMessageDeleted, b.handleDeleted)
}

// Detach deregisters every handler registered by Attach. After Detach no
// stale handler can fire.
func (b *Bridge) Detach() {
	if b.sub == nil {
		return
	}
	for _, name := range []string{
		EventMessage,
		EventMessageAttachment,
		EventMessageForwarded,
		EventMessageUpdated,
		EventMessagePinned,
		EventMessageUnpinned,
		EventMessageDeleted,
	} {
		b.sub.Off(name)
	}
}

// SetChannel retargets the bridge to a newly opened channel. Create events
// for the previous channel are dropped from then on.
func (b *Bridge) SetChannel(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channelID = channelID
}

func (b *Bridge) openChannel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channelID
}

// handleCreated covers message, message_with_attachment and
// message_forwarded: a forwarded message is a new entity that happens to
// carry a forward ref.
func (b *Bridge) handleCreated(payload json.RawMessage) {
	w, ok := b.decode(payload)
	if !ok {
		return
	}
	if w.ChannelID != b.openChannel() {
		metrics.EventsDropped.WithLabelValues("other_channel").Inc()
		return
	}
	b.store.Upsert(chat.ProjectStore(w))
	b.view.Append(chat.ProjectUI(w))
	metrics.MessagesAppended.Inc()
}

// handleUpdated applies regardless of the open channel. List order and
// position are preserved; an id the view never saw is ignored.
func (b *Bridge) handleUpdated(payload json.RawMessage) {
	w, ok := b.decode(payload)
	if !ok {
		return
	}
	b.store.Upsert(chat.ProjectStore(w))
	b.view.ReplaceByID(chat.ProjectUI(w))
}

// handlePinned forces the pin flag from the event name. The event name is
// authoritative; whatever the payload says is overridden.
func (b *Bridge) handlePinned(pinned bool) Handler {
	return func(payload json.RawMessage) {
		w, ok := b.decode(payload)
		if !ok {
			return
		}
		w.Pinned = pinned
		if !pinned {
			w.PinnedBy = nil
		}
		b.store.Upsert(chat.ProjectStore(w))
		b.view.ReplaceByID(chat.ProjectUI(w))
	}
}

// handleDeleted marks the view entry deleted at the current time. The store
// is deliberately left untouched: the source system only ever updated the
// rendered list on delete, and downstream consumers rely on store history
// staying intact.
//
// TODO: decide whether deletes should also reach the store; a message marked
// deleted in the view still reads as live from Store.Get.
func (b *Bridge) handleDeleted(payload json.RawMessage) {
	var p MessageDeletedPayload
	if err := json.Unmarshal(payload, &p); err != nil || validate.Struct(p) != nil {
		metrics.EventsDropped.WithLabelValues("invalid_payload").Inc()
		b.log.Warn().Msg("malformed message_deleted payload, dropping")
		return
	}
	b.view.MarkDeleted(p.MessageID, time.Now())
}

func (b *Bridge) decode(payload json.RawMessage) (chat.WireMessage, bool) {
	var p MessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		metrics.EventsDropped.WithLabelValues("invalid_payload").Inc()
		b.log.Warn().Err(err).Msg("malformed message payload, dropping")
		return chat.WireMessage{}, false
	}
	return p.WireMessage, true
}
