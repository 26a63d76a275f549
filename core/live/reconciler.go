// Package live maintains a user's in-memory mirror of their sessions while a
// dashboard is open: it merges incoming change events into the mirror, raises
// edge-triggered notifications, and serves derived views of the result.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/realtime"
)

// EventKind labels the ephemeral effects emitted on status edges
// (the toast/native-notification equivalents).
type EventKind string

const (
	EventSessionStarted   EventKind = "session-started"
	EventSessionCompleted EventKind = "session-completed"
)

// Event is an ephemeral side effect of a status edge. Unlike Notifications,
// events are fire-and-forget: the reconciler does not retain them.
type Event struct {
	Kind    EventKind
	Session session.Session
}

type Option func(*Reconciler)

// WithClock overrides the reconciler's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithEventSink registers a callback for ephemeral events. The callback runs
// synchronously on the applying goroutine and must not call back into the
// Reconciler.
func WithEventSink(sink func(Event)) Option {
	return func(r *Reconciler) { r.onEvent = sink }
}

// Reconciler holds the authoritative local mirror of one user's sessions.
// The mirror is committed copy-on-write: readers always observe a complete
// snapshot, never a half-applied update.
type Reconciler struct {
	mu       sync.RWMutex
	sessions []session.Session
	notifs   []Notification

	now     func() time.Time
	onEvent func(Event)
}

// NewReconciler seeds the mirror with the initial snapshot, in order.
func NewReconciler(snapshot []session.Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		sessions: append([]session.Session(nil), snapshot...),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply merges one incoming session record into the mirror and fires
// edge-triggered effects. Safe under duplicate delivery: effects only fire
// when the previous cached status differs.
func (r *Reconciler) Apply(next session.Session) {
	r.mu.Lock()

	merged, prev := merge(r.sessions, next)
	r.sessions = merged

	var fired []Event
	if prev != nil {
		if prev.Status != session.StatusInProgress && next.Status == session.StatusInProgress {
			// "session started" edge: persistent unread notification + event
			now := r.now()
			r.notifs = append(r.notifs, Notification{
				ID:        notificationID(next.ID, now),
				SessionID: next.ID,
				Type:      NotificationSessionStart,
				Message:   fmt.Sprintf("Your %s session has started", next.Subject),
				CreatedAt: now,
			})
			fired = append(fired, Event{Kind: EventSessionStarted, Session: next})
		} else if prev.Status == session.StatusInProgress && next.Status == session.StatusCompleted {
			// completion is informational only: event, no notification
			fired = append(fired, Event{Kind: EventSessionCompleted, Session: next})
		}
	}
	sink := r.onEvent
	r.mu.Unlock()

	if sink != nil {
		for _, ev := range fired {
			sink(ev)
		}
	}
}

// ApplyLocal records an optimistic local write (e.g. a booking the user just
// made) ahead of its realtime echo. It is the same merge as Apply, so the
// echo converges onto the appended entry instead of duplicating it.
func (r *Reconciler) ApplyLocal(s session.Session) {
	r.mu.Lock()
	r.sessions, _ = merge(r.sessions, s)
	r.mu.Unlock()
}

// merge is the pure merge-on-arrival step: last write wins per identifier,
// list position preserved on replace, append on first sight. It returns the
// new cache and the replaced record (nil if next was unseen).
func merge(cache []session.Session, next session.Session) ([]session.Session, *session.Session) {
	out := make([]session.Session, len(cache), len(cache)+1)
	copy(out, cache)

	for i := range out {
		if out[i].ID == next.ID {
			prev := out[i]
			out[i] = next
			return out, &prev
		}
	}
	return append(out, next), nil
}

// Run consumes a realtime subscription until the context is cancelled or the
// channel is closed, then releases the subscription.
func (r *Reconciler) Run(ctx context.Context, sub *realtime.Subscription) {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-sub.Events():
			if !ok {
				return
			}
			if s, ok := ch.Payload.(session.Session); ok {
				r.Apply(s)
			}
		}
	}
}

// Sessions returns a copy of the committed mirror.
func (r *Reconciler) Sessions() []session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]session.Session(nil), r.sessions...)
}

// Notifications returns a copy of all notifications, oldest first.
func (r *Reconciler) Notifications() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Notification(nil), r.notifs...)
}

// UnreadCount reports the number of unread notifications.
func (r *Reconciler) UnreadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	for _, notif := range r.notifs {
		if !notif.Read {
			n++
		}
	}
	return n
}

// MarkRead marks a notification read. Idempotent; unknown ids are ignored.
func (r *Reconciler) MarkRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.notifs {
		if r.notifs[i].ID == id {
			r.notifs[i].Read = true
			return
		}
	}
}
