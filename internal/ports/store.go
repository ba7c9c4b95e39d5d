package ports

import (
	"context"
	"time"
)

// CurrentMatch is the match bookkeeping entry kept for a user while a match is being played.
type CurrentMatch struct {
	MatchID      string    `json:"match_id"`
	TeamName     string    `json:"team_name"`
	OpponentName string    `json:"opponent_name"`
	StartedAt    time.Time `json:"started_at"`
}

// MatchStorePort persists the user's current match.
type MatchStorePort interface {
	SaveCurrentMatch(ctx context.Context, userID string, match CurrentMatch) error
	// LoadCurrentMatch returns found=false when the user has no match in progress.
	LoadCurrentMatch(ctx context.Context, userID string) (match CurrentMatch, found bool, err error)
	ClearCurrentMatch(ctx context.Context, userID string) error
}
