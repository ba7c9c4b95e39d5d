package ports

import (
	"context"

	"kickoff/internal/domain"
)

// TimelineSlice is the backend answer to a submitted decision: the full
// updated event set plus the authoritative result text for that decision.
type TimelineSlice struct {
	TimelineEvents []domain.RawEvent `json:"timelineEvents"`
	ResultText     string            `json:"resultText"`
}

// Decision is one submission for a pending prompt. Continuation checkpoints
// carry the neutral code.
type Decision struct {
	EventID int64
	Minute  int
	Code    int
}

// MatchResolverPort is the match-resolution collaborator. It fronts the
// indexer for reads and the on-chain action submission for decisions.
type MatchResolverPort interface {
	// FetchInitialTimeline returns every event known for the match so far.
	FetchInitialTimeline(ctx context.Context, matchID string) ([]domain.RawEvent, error)

	// SubmitDecision submits d and returns the resulting timeline slice.
	// Resubmitting the same decision must be safe to deduplicate.
	SubmitDecision(ctx context.Context, matchID string, d Decision) (TimelineSlice, error)
}
