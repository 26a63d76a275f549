package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/session"
)

func TestReconciler_derivedViews(t *testing.T) {
	// clock fixed at 15:00 UTC; midnight bounds are [00:00, 24:00) of that day
	midnight := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)

	snapshot := []session.Session{
		sess("late-yesterday", session.StatusScheduled, midnight.Add(-time.Minute)),
		sess("early-today", session.StatusScheduled, midnight),
		sess("tonight", session.StatusScheduled, midnight.Add(24*time.Hour-time.Second)),
		sess("tomorrow", session.StatusScheduled, midnight.Add(26*time.Hour)),
		sess("next-week", session.StatusScheduled, midnight.AddDate(0, 0, 7)),
		sess("in-six-days", session.StatusScheduled, midnight.AddDate(0, 0, 6).Add(10*time.Hour)),
		sess("live-now", session.StatusInProgress, testNow.Add(-30*time.Minute)),
		sess("done", session.StatusCompleted, testNow.Add(-2*time.Hour)),
		sess("cancelled-today", session.StatusCancelled, testNow.Add(time.Hour)),
	}
	r := NewReconciler(snapshot, WithClock(fixedClock))

	t.Run("today", func(t *testing.T) {
		// only scheduled sessions within [midnight, next midnight)
		assert.Equal(t, []string{"early-today", "tonight"}, ids(r.TodaySessions()))
	})

	t.Run("upcoming", func(t *testing.T) {
		// scheduled, starting tomorrow or later, within 7 days
		assert.Equal(t, []string{"tomorrow", "in-six-days"}, ids(r.UpcomingSessions()))
	})

	t.Run("active", func(t *testing.T) {
		assert.Equal(t, []string{"live-now"}, ids(r.ActiveSessions()))
	})

	t.Run("active ordering", func(t *testing.T) {
		r.Apply(sess("live-earlier", session.StatusInProgress, testNow.Add(-time.Hour)))
		assert.Equal(t, []string{"live-earlier", "live-now"}, ids(r.ActiveSessions()), "ordered by start time ascending")
	})

	t.Run("views recompute after merge", func(t *testing.T) {
		r.Apply(sess("tonight", session.StatusCancelled, midnight.Add(24*time.Hour-time.Second)))
		assert.Equal(t, []string{"early-today"}, ids(r.TodaySessions()))
	})
}
