package meeting

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edugather/gatherd/internal/metrics"
	"github.com/edugather/gatherd/internal/realtime"
)

// StatusEnded is the terminal meeting status the tracker reports.
const StatusEnded = "ended"

// ReasonMaxDuration is the reason attached to a forced end.
const ReasonMaxDuration = "max_duration_reached"

// Emitter sends advisory events toward the backend. Satisfied by
// *realtime.Conn; the tracker only needs emit.
type Emitter interface {
	Emit(name string, payload any) error
}

// Tracked is a snapshot entry returned by ListTracked.
type Tracked struct {
	MeetingID string    `json:"meetingId"`
	EndTime   time.Time `json:"endTime"`
}

type entry struct {
	timer   *time.Timer
	endTime time.Time
}

// Tracker force-ends meetings from the client's perspective once their
// allotted duration elapses, even when no UI is showing the meeting. It is a
// soft watchdog, not a source of truth: on expiry it emits advisory signals
// and assumes something downstream records the end state authoritatively.
//
// One tracker instance serves the whole process. At most one deadline exists
// per meeting id; re-tracking the same id supersedes the pending deadline.
type Tracker struct {
	log zerolog.Logger

	mu       sync.Mutex
	meetings map[string]*entry
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		log:      log,
		meetings: make(map[string]*entry),
	}
}

// Track schedules a forced end for the meeting at start+maxDuration. If that
// deadline is already in the past nothing is scheduled and the returned
// release is a no-op. Tracking an id that already has a pending deadline
// cancels the old deadline first, so two deadlines never coexist for one id.
//
// The returned release cancels this registration only: after the meeting is
// re-armed or has fired, calling it does nothing.
//
// On firing, the meeting is removed from tracking and, when em is non-nil,
// three advisory signals go out: meetingEnded, updateMeetingStatus and
// meetingStatusChanged. onEnded runs either way; a nil connection skips the
// signals but never swallows the firing.
func (t *Tracker) Track(meetingID string, start time.Time, maxDuration time.Duration, em Emitter, onEnded func()) (release func()) {
	deadline := start.Add(maxDuration)
	remaining := time.Until(deadline)
	if remaining <= 0 {
		t.log.Debug().Str("meeting_id", meetingID).Msg("deadline already past, not tracking")
		return func() {}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.meetings[meetingID]; ok {
		old.timer.Stop()
		delete(t.meetings, meetingID)
		metrics.MeetingsTracked.Dec()
		t.log.Debug().Str("meeting_id", meetingID).Msg("superseding pending deadline")
	}

	e := &entry{endTime: deadline}
	e.timer = time.AfterFunc(remaining, func() {
		t.fire(meetingID, e, em, onEnded)
	})
	t.meetings[meetingID] = e
	metrics.MeetingsTracked.Inc()
	t.log.Info().
		Str("meeting_id", meetingID).
		Time("end_time", deadline).
		Msg("tracking meeting")

	return func() {
		t.releaseEntry(meetingID, e)
	}
}

// Release cancels the pending deadline for a meeting and removes it from
// tracking. Calling it for an untracked id is a no-op.
func (t *Tracker) Release(meetingID string) {
	t.mu.Lock()
	e, ok := t.meetings[meetingID]
	t.mu.Unlock()
	if ok {
		t.releaseEntry(meetingID, e)
	}
}

// ListTracked returns a snapshot of all meetings with a pending deadline.
func (t *Tracker) ListTracked() []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tracked, 0, len(t.meetings))
	for id, e := range t.meetings {
		out = append(out, Tracked{MeetingID: id, EndTime: e.endTime})
	}
	return out
}

// releaseEntry removes the meeting only if e is still its current
// registration, so a stale release handle cannot cancel a re-armed deadline.
func (t *Tracker) releaseEntry(meetingID string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.meetings[meetingID]; !ok || cur != e {
		return
	}
	e.timer.Stop()
	delete(t.meetings, meetingID)
	metrics.MeetingsTracked.Dec()
	metrics.MeetingsEnded.WithLabelValues("released").Inc()
	t.log.Info().Str("meeting_id", meetingID).Msg("meeting released")
}

// fire runs on the timer goroutine when a deadline elapses. The timer may
// have been stopped just as it fired; the entry identity check under the
// mutex settles the race, so a superseded or released deadline never emits.
func (t *Tracker) fire(meetingID string, e *entry, em Emitter, onEnded func()) {
	t.mu.Lock()
	if cur, ok := t.meetings[meetingID]; !ok || cur != e {
		t.mu.Unlock()
		return
	}
	delete(t.meetings, meetingID)
	t.mu.Unlock()

	metrics.MeetingsTracked.Dec()
	metrics.MeetingsEnded.WithLabelValues(ReasonMaxDuration).Inc()
	t.log.Info().Str("meeting_id", meetingID).Msg("max duration reached, ending meeting")

	if em != nil {
		endTime := e.endTime.UTC().Format(time.RFC3339)
		if err := em.Emit(realtime.EventMeetingEnded, realtime.MeetingEndedPayload{
			MeetingID: meetingID,
		}); err != nil {
			t.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meetingEnded emit failed")
		}
		if err := em.Emit(realtime.EventUpdateMeetingStatus, realtime.UpdateMeetingStatusPayload{
			MeetingID: meetingID,
			Status:    StatusEnded,
			EndTime:   endTime,
			Reason:    ReasonMaxDuration,
		}); err != nil {
			t.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("updateMeetingStatus emit failed")
		}
		if err := em.Emit(realtime.EventMeetingStatusChanged, realtime.MeetingStatusChangedPayload{
			MeetingID: meetingID,
			Status:    StatusEnded,
			EndTime:   endTime,
		}); err != nil {
			t.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meetingStatusChanged emit failed")
		}
	}

	if onEnded != nil {
		onEnded()
	}
}
