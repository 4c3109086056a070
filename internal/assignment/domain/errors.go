package domain

import "errors"

var (
	// ErrEntryNotFound is returned when a queue entry cannot be found
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrStaleOffer is returned when a response targets an entry that is
	// no longer in notified status (already resolved, expired, or
	// superseded by a newer generation)
	ErrStaleOffer = errors.New("offer is no longer available")

	// ErrConflict is returned when an optimistic update collides with a
	// concurrent writer; callers should re-fetch and retry
	ErrConflict = errors.New("concurrent write conflict")

	// ErrInvalidResponse is returned when a response carries a status
	// other than accepted or declined
	ErrInvalidResponse = errors.New("response status must be accepted or declined")
)

// UpstreamError wraps a failed collaborator fetch (talent directory or
// target/settings store). Generation aborts with no queue writes when
// one occurs; callers may retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream fetch failed (" + e.Op + "): " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as an upstream fetch failure
func NewUpstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// IsUpstream reports whether err is an upstream fetch failure.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
