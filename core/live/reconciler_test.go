package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/realtime"
)

var testNow = time.Date(2021, time.March, 10, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sess(id string, status session.Status, start time.Time) session.Session {
	return session.Session{
		ID:        id,
		TutorID:   "tutor-1",
		StudentID: "student-1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Subject:   "Algebra",
		Status:    status,
	}
}

func ids(sessions []session.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}

func TestReconciler_mergeKeepsOneEntryPerID(t *testing.T) {
	r := NewReconciler(nil, WithClock(fixedClock))

	incoming := []session.Session{
		sess("s1", session.StatusScheduled, testNow.Add(time.Hour)),
		sess("s2", session.StatusPending, testNow.Add(2*time.Hour)),
		sess("s1", session.StatusScheduled, testNow.Add(time.Hour)),
		sess("s1", session.StatusInProgress, testNow.Add(time.Hour)),
		sess("s3", session.StatusScheduled, testNow.Add(3*time.Hour)),
		sess("s2", session.StatusScheduled, testNow.Add(2*time.Hour)),
	}
	for _, s := range incoming {
		r.Apply(s)
	}

	got := r.Sessions()
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(got), "one entry per distinct id, positions preserved")
	assert.Equal(t, session.StatusInProgress, got[0].Status, "fields equal the most recently merged record")
	assert.Equal(t, session.StatusScheduled, got[1].Status)
}

func TestReconciler_startEdgeNotifiesExactlyOnce(t *testing.T) {
	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))

	r.Apply(sess("s1", session.StatusInProgress, start))

	notifs := r.Notifications()
	if assert.Len(t, notifs, 1) {
		assert.Equal(t, "s1", notifs[0].SessionID)
		assert.Equal(t, NotificationSessionStart, notifs[0].Type)
		assert.False(t, notifs[0].Read)
	}
	assert.Equal(t, 1, r.UnreadCount())

	// duplicate delivery of the same state: no new edge, no new notification
	r.Apply(sess("s1", session.StatusInProgress, start))
	r.Apply(sess("s1", session.StatusInProgress, start))
	assert.Len(t, r.Notifications(), 1, "duplicate delivery must not duplicate the notification")

	// completion emits no notification and keeps the prior one
	r.Apply(sess("s1", session.StatusCompleted, start))
	assert.Len(t, r.Notifications(), 1)
	assert.Equal(t, 1, r.UnreadCount())
}

func TestReconciler_firstSightFiresNoEffects(t *testing.T) {
	var events []Event
	r := NewReconciler(nil, WithClock(fixedClock), WithEventSink(func(ev Event) { events = append(events, ev) }))

	// first sight of an already in-progress session is not an edge
	r.Apply(sess("s9", session.StatusInProgress, testNow))
	assert.Empty(t, r.Notifications())
	assert.Empty(t, events)
	assert.Equal(t, []string{"s9"}, ids(r.ActiveSessions()))
}

func TestReconciler_eventSink(t *testing.T) {
	start := testNow.Add(time.Hour)

	var events []Event
	r := NewReconciler(
		[]session.Session{sess("s1", session.StatusScheduled, start)},
		WithClock(fixedClock),
		WithEventSink(func(ev Event) { events = append(events, ev) }),
	)

	r.Apply(sess("s1", session.StatusInProgress, start))
	r.Apply(sess("s1", session.StatusCompleted, start))
	// cancellations are silent
	r.Apply(sess("s2", session.StatusScheduled, start))
	r.Apply(sess("s2", session.StatusCancelled, start))

	if assert.Len(t, events, 2) {
		assert.Equal(t, EventSessionStarted, events[0].Kind)
		assert.Equal(t, EventSessionCompleted, events[1].Kind)
	}
}

func TestReconciler_gapThenResumeStaysSilent(t *testing.T) {
	// a missed in-progress event followed directly by completed: the start
	// edge was never observed, so no retroactive notification fires
	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))

	r.Apply(sess("s1", session.StatusCompleted, start))

	assert.Empty(t, r.Notifications())
	assert.Equal(t, session.StatusCompleted, r.Sessions()[0].Status)
}

func TestReconciler_optimisticAppendConverges(t *testing.T) {
	r := NewReconciler(nil, WithClock(fixedClock))

	booked := sess("s5", session.StatusPending, testNow.Add(4*time.Hour))
	r.ApplyLocal(booked)
	assert.Equal(t, []string{"s5"}, ids(r.Sessions()))
	assert.Empty(t, r.Notifications(), "local append is not an edge")

	// realtime echo of the same write with unchanged fields
	r.Apply(booked)
	assert.Equal(t, []string{"s5"}, ids(r.Sessions()), "echo must not duplicate the entry")
	assert.Empty(t, r.Notifications())
}

func TestReconciler_markRead(t *testing.T) {
	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))
	r.Apply(sess("s1", session.StatusInProgress, start))

	notifs := r.Notifications()
	if !assert.Len(t, notifs, 1) {
		return
	}
	assert.Equal(t, 1, r.UnreadCount())

	r.MarkRead(notifs[0].ID)
	assert.Equal(t, 0, r.UnreadCount())

	// idempotent
	r.MarkRead(notifs[0].ID)
	assert.Equal(t, 0, r.UnreadCount())

	// unknown ids are ignored
	r.MarkRead("nope")
	assert.Equal(t, 0, r.UnreadCount())
}

func TestReconciler_endToEndSnapshotAndStream(t *testing.T) {
	// initial snapshot holds one scheduled session starting in an hour
	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))

	// realtime message: s1 went live
	r.Apply(sess("s1", session.StatusInProgress, start))

	got := r.Sessions()
	if assert.Len(t, got, 1) {
		assert.Equal(t, session.StatusInProgress, got[0].Status)
	}
	assert.Equal(t, []string{"s1"}, ids(r.ActiveSessions()))
	assert.Equal(t, 1, r.UnreadCount())

	// realtime message for an unseen id: appended silently
	r.Apply(sess("s2", session.StatusScheduled, testNow.Add(2*time.Hour)))
	assert.Equal(t, []string{"s1", "s2"}, ids(r.Sessions()))
	assert.Equal(t, 1, r.UnreadCount())
	assert.Equal(t, []string{"s2"}, ids(r.TodaySessions()))
}

func TestReconciler_runConsumesSubscriptionAndReleasesIt(t *testing.T) {
	broker := realtime.NewBroker()
	sub := broker.Subscribe(session.ChangesFor("student-1"))

	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, sub)
	}()

	broker.Publish(realtime.Change{Table: session.Table, Op: realtime.OpUpdate, Payload: sess("s1", session.StatusInProgress, start)})
	// a change for someone else's session never reaches the reconciler
	other := sess("s3", session.StatusInProgress, start)
	other.TutorID, other.StudentID = "t-x", "s-x"
	broker.Publish(realtime.Change{Table: session.Table, Op: realtime.OpUpdate, Payload: other})

	assert.Eventually(t, func() bool { return r.UnreadCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, r.Sessions(), 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, broker.NumSubscribers(), "teardown must release the subscription")
}

func TestReconciler_repeatedEdgesGetDistinctNotificationIDs(t *testing.T) {
	// with a fixed clock every notification carries the same instant, so
	// ids must stay unique on their own
	start := testNow.Add(time.Hour)
	r := NewReconciler([]session.Session{sess("s1", session.StatusScheduled, start)}, WithClock(fixedClock))

	r.Apply(sess("s1", session.StatusInProgress, start))
	r.Apply(sess("s1", session.StatusScheduled, start))
	r.Apply(sess("s1", session.StatusInProgress, start))

	notifs := r.Notifications()
	if !assert.Len(t, notifs, 2) {
		return
	}
	assert.NotEqual(t, notifs[0].ID, notifs[1].ID)
	assert.Equal(t, 2, r.UnreadCount())

	r.MarkRead(notifs[1].ID)
	assert.Equal(t, 1, r.UnreadCount())
	r.MarkRead(notifs[0].ID)
	assert.Equal(t, 0, r.UnreadCount())
}
