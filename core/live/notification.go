package live

import (
	"fmt"
	"sync/atomic"
	"time"
)

// NotificationType tags what produced a notification.
type NotificationType string

// NotificationSessionStart is raised when a session moves into "in-progress".
const NotificationSessionStart NotificationType = "session-start"

// Notification is an in-memory alert derived by the Reconciler. It is never
// persisted; its lifetime is bounded by the owning Reconciler.
type Notification struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id,omitempty"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

var notificationSeq uint64

// notificationID is synthesized from the session id, the generation instant
// and a process-wide sequence number. The sequence keeps ids unique when a
// session notifies twice within clock resolution.
func notificationID(sessionID string, at time.Time) string {
	return fmt.Sprintf("%s:%d:%d", sessionID, at.UnixNano(), atomic.AddUint64(&notificationSeq, 1))
}
