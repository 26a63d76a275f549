package resource

import "time"

// Resource is the metadata row for an uploaded file; the bytes live in the
// object store.
type Resource struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Path        string    `json:"-"` // object-store path, not client-facing
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Bucket is the object-store bucket holding session resources.
const Bucket = "resources"
