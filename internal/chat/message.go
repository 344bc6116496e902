package chat

import (
	"strings"
	"time"
)

// PlaceholderSenderName is shown when an event arrives without sender info.
// The server normally joins sender details into every message payload, but a
// partial payload must not block the update (see ProjectUI).
const PlaceholderSenderName = "Unknown User"

// Sender is the embedded author object as it appears on the wire.
type Sender struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// ReplyRef points at the message being replied to, with a content snippet so
// the reply header can render without a store lookup.
type ReplyRef struct {
	MessageID string  `json:"messageId"`
	Content   string  `json:"message"`
	Sender    *Sender `json:"sender,omitempty"`
}

// ForwardRef points at the origin of a forwarded message.
type ForwardRef struct {
	MessageID string  `json:"messageId"`
	ChannelID string  `json:"channelId"`
	Sender    *Sender `json:"sender,omitempty"`
}

// AttachmentMeeting carries meeting metadata for meeting-recording attachments.
type AttachmentMeeting struct {
	MeetingID string `json:"meetingId"`
	Title     string `json:"title,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       string             `json:"_id"`
	URL      string             `json:"url"`
	MimeType string             `json:"type"`
	Name     string             `json:"name"`
	Size     int64              `json:"size"`
	Kind     string             `json:"attachmentType,omitempty"`
	Meeting  *AttachmentMeeting `json:"meeting,omitempty"`
}

// WireMessage is a message payload exactly as pushed over the event
// connection. A message carries at most one reply ref and at most one forward
// ref; the two are independent (a forwarded message may itself be replied to).
type WireMessage struct {
	ID            string      `json:"_id"`
	Content       string      `json:"message"`
	Sender        *Sender     `json:"sender,omitempty"`
	ChannelID     string      `json:"channelId"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	DeletedAt     *time.Time  `json:"deletedAt,omitempty"`
	Pinned        bool        `json:"pinned"`
	PinnedBy      *Sender     `json:"pinnedBy,omitempty"`
	Mentions      []string    `json:"mentions,omitempty"`
	ReplyTo       *ReplyRef   `json:"replyTo,omitempty"`
	ForwardedFrom *ForwardRef `json:"forwardedFrom,omitempty"`
	Attachment    *Attachment `json:"attachment,omitempty"`
}

// StoreMessage is the normalized shape kept in the shared store. It stays
// close to the wire format: sender remains an embedded object.
type StoreMessage struct {
	ID            string      `json:"_id"`
	Content       string      `json:"message"`
	Sender        Sender      `json:"sender"`
	ChannelID     string      `json:"channelId"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	DeletedAt     *time.Time  `json:"deletedAt,omitempty"`
	Pinned        bool        `json:"pinned"`
	PinnedBy      *Sender     `json:"pinnedBy,omitempty"`
	Mentions      []string    `json:"mentions,omitempty"`
	ReplyTo       *ReplyRef   `json:"replyTo,omitempty"`
	ForwardedFrom *ForwardRef `json:"forwardedFrom,omitempty"`
	Attachment    *Attachment `json:"attachment,omitempty"`
}

// UIMessage is the flattened rendering shape: sender split into id+name,
// timestamps normalized to epoch millis. A deleted message keeps its content;
// DeletedAt non-nil is a rendering concern, not erasure.
type UIMessage struct {
	ID            string        `json:"id"`
	Content       string        `json:"content"`
	SenderID      string        `json:"senderId"`
	SenderName    string        `json:"senderName"`
	ChannelID     string        `json:"channelId"`
	CreatedAt     int64         `json:"createdAt"`
	UpdatedAt     int64         `json:"updatedAt"`
	DeletedAt     *int64        `json:"deletedAt,omitempty"`
	Pinned        bool          `json:"pinned"`
	PinnedByName  string        `json:"pinnedByName,omitempty"`
	Mentions      []string      `json:"mentions,omitempty"`
	ReplyTo       *ReplyRef     `json:"replyTo,omitempty"`
	ForwardedFrom *ForwardRef   `json:"forwardedFrom,omitempty"`
	Attachment    *UIAttachment `json:"attachment,omitempty"`
}

// UIAttachment is the attachment shape for rendering, with the category
// derived from the MIME type.
type UIAttachment struct {
	ID       string             `json:"id"`
	URL      string             `json:"url"`
	Category string             `json:"category"`
	Name     string             `json:"name"`
	Size     int64              `json:"size"`
	Kind     string             `json:"kind,omitempty"`
	Meeting  *AttachmentMeeting `json:"meeting,omitempty"`
}

// AttachmentCategory maps a MIME type to a rendering category.
func AttachmentCategory(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	default:
		return "file"
	}
}

// ProjectStore derives the store shape from a wire payload. Pure and
// deterministic: the same payload always yields the same store message, and
// its identity, pin flag and deletion state match ProjectUI of the same
// payload.
func ProjectStore(w WireMessage) StoreMessage {
	m := StoreMessage{
		ID:            w.ID,
		Content:       w.Content,
		ChannelID:     w.ChannelID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
		DeletedAt:     w.DeletedAt,
		Pinned:        w.Pinned,
		PinnedBy:      w.PinnedBy,
		Mentions:      w.Mentions,
		ReplyTo:       w.ReplyTo,
		ForwardedFrom: w.ForwardedFrom,
		Attachment:    w.Attachment,
	}
	if w.Sender != nil {
		m.Sender = *w.Sender
	} else {
		m.Sender = Sender{Name: PlaceholderSenderName}
	}
	return m
}

// ProjectUI derives the flattened rendering shape from a wire payload.
// A missing sender degrades to a placeholder display name rather than
// failing the update.
func ProjectUI(w WireMessage) UIMessage {
	m := UIMessage{
		ID:            w.ID,
		Content:       w.Content,
		SenderName:    PlaceholderSenderName,
		ChannelID:     w.ChannelID,
		CreatedAt:     w.CreatedAt.UnixMilli(),
		UpdatedAt:     w.UpdatedAt.UnixMilli(),
		Pinned:        w.Pinned,
		Mentions:      w.Mentions,
		ReplyTo:       w.ReplyTo,
		ForwardedFrom: w.ForwardedFrom,
	}
	if w.Sender != nil {
		m.SenderID = w.Sender.ID
		if w.Sender.Name != "" {
			m.SenderName = w.Sender.Name
		}
	}
	if w.DeletedAt != nil {
		ms := w.DeletedAt.UnixMilli()
		m.DeletedAt = &ms
	}
	if w.PinnedBy != nil {
		m.PinnedByName = w.PinnedBy.Name
	}
	if w.Attachment != nil {
		m.Attachment = &UIAttachment{
			ID:       w.Attachment.ID,
			URL:      w.Attachment.URL,
			Category: AttachmentCategory(w.Attachment.MimeType),
			Name:     w.Attachment.Name,
			Size:     w.Attachment.Size,
			Kind:     w.Attachment.Kind,
			Meeting:  w.Attachment.Meeting,
		}
	}
	return m
}
