package app

import (
	"errors"
	"fmt"
)

var (
	ErrNoPendingDecision  = errors.New("no decision is pending")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrDecisionResolved   = errors.New("decision already resolved, continue to resume")
	ErrDecisionRequired   = errors.New("a decision must be submitted before continuing")
	ErrInvalidChoice      = errors.New("choice not offered for this event")
	ErrNothingToContinue  = errors.New("nothing to continue")
	ErrEmptyResult        = errors.New("submission returned no timeline events")
	ErrNotFinished        = errors.New("match clock has not finished")
	ErrTornDown           = errors.New("playback session torn down")
	ErrStaleSubmission    = errors.New("submission belongs to a prompt that is no longer live")
)

// SubmissionError wraps a failure of the match-resolution collaborator while
// submitting a decision or a continuation. The pending prompt stays available for retry.
type SubmissionError struct {
	Op      string
	EventID int64
	Minute  int
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission for event %d at minute %d failed: %v", e.Op, e.EventID, e.Minute, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
