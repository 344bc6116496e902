package meeting

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugather/gatherd/internal/realtime"
)

type recordedEvent struct {
	name    string
	payload any
}

// recordingEmitter captures advisory signals for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
	return nil
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

func newTestTracker() *Tracker {
	return NewTracker(zerolog.Nop())
}

func TestDeadlineFiresOnceAndEmitsAdvisories(t *testing.T) {
	tr := newTestTracker()
	em := &recordingEmitter{}
	var ended atomic.Int32

	start := time.Now()
	tr.Track("m1", start, 30*time.Millisecond, em, func() {
		ended.Add(1)
	})

	require.Eventually(t, func() bool {
		return ended.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Give a superfluous second firing every chance to show up.
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), ended.Load())
	assert.Empty(t, tr.ListTracked())
	assert.Equal(t, []string{
		realtime.EventMeetingEnded,
		realtime.EventUpdateMeetingStatus,
		realtime.EventMeetingStatusChanged,
	}, em.names())

	em.mu.Lock()
	defer em.mu.Unlock()
	status, ok := em.events[1].payload.(realtime.UpdateMeetingStatusPayload)
	require.True(t, ok)
	assert.Equal(t, "m1", status.MeetingID)
	assert.Equal(t, StatusEnded, status.Status)
	assert.Equal(t, ReasonMaxDuration, status.Reason)

	wantEnd, err := time.Parse(time.RFC3339, status.EndTime)
	require.NoError(t, err)
	assert.WithinDuration(t, start.Add(30*time.Millisecond), wantEnd, time.Second)
}

func TestPastDeadlineIsNoOp(t *testing.T) {
	tr := newTestTracker()
	em := &recordingEmitter{}

	release := tr.Track("m1", time.Now().Add(-10*time.Second), 5*time.Second, em, func() {
		t.Error("callback must not run for an elapsed deadline")
	})

	assert.Empty(t, tr.ListTracked())
	release() // no-op, must not panic

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, em.names())
}

func TestRetrackSupersedesPendingDeadline(t *testing.T) {
	tr := newTestTracker()
	em := &recordingEmitter{}
	var fired atomic.Int32

	tr.Track("m1", time.Now(), 40*time.Millisecond, em, func() { fired.Add(1) })
	tr.Track("m1", time.Now(), 60*time.Millisecond, em, func() { fired.Add(1) })

	require.Len(t, tr.ListTracked(), 1)

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	// Exactly one deadline fired, so exactly one advisory sequence went out.
	assert.Equal(t, int32(1), fired.Load())
	assert.Len(t, em.names(), 3)
}

func TestReleasePreventsEmission(t *testing.T) {
	tr := newTestTracker()
	em := &recordingEmitter{}

	tr.Track("m1", time.Now(), 40*time.Millisecond, em, func() {
		t.Error("callback must not run after release")
	})
	tr.Release("m1")

	assert.Empty(t, tr.ListTracked())
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, em.names())
}

func TestReleaseHandleIsRegistrationScoped(t *testing.T) {
	tr := newTestTracker()
	em := &recordingEmitter{}

	release1 := tr.Track("m1", time.Now(), time.Minute, em, nil)
	tr.Track("m1", time.Now(), 2*time.Minute, em, nil)

	// Stale handle from the superseded registration must not cancel the
	// re-armed deadline.
	release1()
	require.Len(t, tr.ListTracked(), 1)

	tr.Release("m1")
	assert.Empty(t, tr.ListTracked())
}

func TestReleaseUnknownIDIsNoOp(t *testing.T) {
	tr := newTestTracker()
	tr.Release("never-tracked")
	assert.Empty(t, tr.ListTracked())
}

func TestNilEmitterStillFiresCallback(t *testing.T) {
	tr := newTestTracker()
	var ended atomic.Int32

	tr.Track("m1", time.Now(), 20*time.Millisecond, nil, func() { ended.Add(1) })

	require.Eventually(t, func() bool {
		return ended.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, tr.ListTracked())
}

func TestListTrackedSnapshot(t *testing.T) {
	tr := newTestTracker()

	start := time.Now()
	tr.Track("m1", start, time.Minute, nil, nil)
	tr.Track("m2", start, 2*time.Minute, nil, nil)

	tracked := tr.ListTracked()
	require.Len(t, tracked, 2)

	byID := make(map[string]Tracked, len(tracked))
	for _, tm := range tracked {
		byID[tm.MeetingID] = tm
	}
	require.Contains(t, byID, "m1")
	require.Contains(t, byID, "m2")
	assert.WithinDuration(t, start.Add(time.Minute), byID["m1"].EndTime, time.Second)
	assert.WithinDuration(t, start.Add(2*time.Minute), byID["m2"].EndTime, time.Second)

	tr.Release("m1")
	tr.Release("m2")
}
