package live

import (
	"sort"
	"time"

	"github.com/darasahq/darasa/core/session"
)

// Derived views are pure functions of the committed mirror, recomputed on
// demand. They never mutate the cache.

// ActiveSessions returns all in-progress sessions ordered by start time ascending.
func (r *Reconciler) ActiveSessions() []session.Session {
	return r.selectSorted(func(s session.Session) bool {
		return s.Status == session.StatusInProgress
	})
}

// TodaySessions returns scheduled sessions starting within
// [local midnight, next local midnight).
func (r *Reconciler) TodaySessions() []session.Session {
	midnight, nextMidnight := r.dayBounds()
	return r.selectSorted(func(s session.Session) bool {
		if s.Status != session.StatusScheduled {
			return false
		}
		start := s.StartTime.In(midnight.Location())
		return !start.Before(midnight) && start.Before(nextMidnight)
	})
}

// UpcomingSessions returns scheduled sessions starting tomorrow or later,
// within the next 7 days.
func (r *Reconciler) UpcomingSessions() []session.Session {
	midnight, nextMidnight := r.dayBounds()
	horizon := midnight.AddDate(0, 0, 7)
	return r.selectSorted(func(s session.Session) bool {
		if s.Status != session.StatusScheduled {
			return false
		}
		start := s.StartTime.In(midnight.Location())
		return !start.Before(nextMidnight) && start.Before(horizon)
	})
}

func (r *Reconciler) dayBounds() (midnight, nextMidnight time.Time) {
	now := r.now()
	midnight = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight, midnight.AddDate(0, 0, 1)
}

func (r *Reconciler) selectSorted(keep func(session.Session) bool) []session.Session {
	r.mu.RLock()
	var out []session.Session
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
