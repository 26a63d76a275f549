package earning

import "time"

// Status is the payout state of an earning.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Earning is a tutor's credit for one completed session.
type Earning struct {
	ID        string    `json:"id"`
	TutorID   string    `json:"tutor_id"`
	SessionID string    `json:"session_id"`
	Amount    float64   `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC

	Subject string `json:"subject,omitempty"` // attached by queries
}

// Summary aggregates a tutor's earnings.
type Summary struct {
	Total   float64 `json:"total"`
	Pending float64 `json:"pending"`
	Paid    float64 `json:"paid"`
	Count   int     `json:"count"`
}
