package domain

import "time"

// Response status constants
const (
	ResponseStatusAccepted = "accepted"
	ResponseStatusDeclined = "declined"
)

// Response records a freelancer's decision on a notified queue entry.
// Exactly one response may exist per entry, and recording it is the
// only path that moves an entry to accepted or declined.
type Response struct {
	ID           string    `db:"id"`
	QueueEntryID string    `db:"queue_entry_id"`
	FreelancerID string    `db:"freelancer_id"`
	Status       string    `db:"status"`
	RespondedBy  string    `db:"responded_by"`
	ReasonCode   string    `db:"reason_code"`
	ReasonLabel  string    `db:"reason_label"`
	Notes        string    `db:"response_notes"`
	Metadata     Metadata  `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ParseResponseStatus validates a raw response status string
func ParseResponseStatus(raw string) (string, bool) {
	switch raw {
	case ResponseStatusAccepted, ResponseStatusDeclined:
		return raw, true
	default:
		return "", false
	}
}
