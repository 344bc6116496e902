package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wireFixture() WireMessage {
	return WireMessage{
		ID:        uuid.NewString(),
		Content:   "anyone up for a calculus session tonight?",
		Sender:    &Sender{ID: uuid.NewString(), Name: "Amina"},
		ChannelID: uuid.NewString(),
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestProjectionsAgreeOnIdentityAndState(t *testing.T) {
	w := wireFixture()
	w.Pinned = true
	w.PinnedBy = &Sender{ID: "u2", Name: "Noor"}
	deleted := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	w.DeletedAt = &deleted

	store := ProjectStore(w)
	ui := ProjectUI(w)

	assert.Equal(t, store.ID, ui.ID)
	assert.Equal(t, store.Pinned, ui.Pinned)
	require.NotNil(t, store.DeletedAt)
	require.NotNil(t, ui.DeletedAt)
	assert.Equal(t, store.DeletedAt.UnixMilli(), *ui.DeletedAt)
}

func TestProjectionsAreDeterministic(t *testing.T) {
	w := wireFixture()
	assert.Equal(t, ProjectStore(w), ProjectStore(w))
	assert.Equal(t, ProjectUI(w), ProjectUI(w))
}

func TestProjectUIFlattensSenderAndTimestamps(t *testing.T) {
	w := wireFixture()
	ui := ProjectUI(w)

	assert.Equal(t, w.Sender.ID, ui.SenderID)
	assert.Equal(t, "Amina", ui.SenderName)
	assert.Equal(t, w.CreatedAt.UnixMilli(), ui.CreatedAt)
	assert.Equal(t, w.UpdatedAt.UnixMilli(), ui.UpdatedAt)
	assert.Nil(t, ui.DeletedAt)
}

func TestMissingSenderDegradesToPlaceholder(t *testing.T) {
	w := wireFixture()
	w.Sender = nil

	ui := ProjectUI(w)
	assert.Empty(t, ui.SenderID)
	assert.Equal(t, PlaceholderSenderName, ui.SenderName)

	store := ProjectStore(w)
	assert.Equal(t, PlaceholderSenderName, store.Sender.Name)
}

func TestReplyAndForwardRefsAreIndependent(t *testing.T) {
	w := wireFixture()
	w.ReplyTo = &ReplyRef{MessageID: "m-orig", Content: "sure, 8pm?"}
	w.ForwardedFrom = &ForwardRef{MessageID: "m-src", ChannelID: "ch-src"}

	ui := ProjectUI(w)
	require.NotNil(t, ui.ReplyTo)
	require.NotNil(t, ui.ForwardedFrom)
	assert.Equal(t, "m-orig", ui.ReplyTo.MessageID)
	assert.Equal(t, "m-src", ui.ForwardedFrom.MessageID)
}

func TestAttachmentCategory(t *testing.T) {
	cases := map[string]string{
		"image/png":       "image",
		"video/mp4":       "video",
		"audio/ogg":       "audio",
		"application/pdf": "file",
		"":                "file",
	}
	for mime, want := range cases {
		assert.Equal(t, want, AttachmentCategory(mime), mime)
	}
}

func TestProjectUIAttachment(t *testing.T) {
	w := wireFixture()
	w.Attachment = &Attachment{
		ID:       "a1",
		URL:      "https://files.example.com/a1",
		MimeType: "video/webm",
		Name:     "recording.webm",
		Size:     52_428_800,
		Kind:     "meeting_recording",
		Meeting:  &AttachmentMeeting{MeetingID: "mtg-1", Title: "Linear Algebra Review"},
	}

	ui := ProjectUI(w)
	require.NotNil(t, ui.Attachment)
	assert.Equal(t, "video", ui.Attachment.Category)
	assert.Equal(t, "recording.webm", ui.Attachment.Name)
	require.NotNil(t, ui.Attachment.Meeting)
	assert.Equal(t, "mtg-1", ui.Attachment.Meeting.MeetingID)
}
