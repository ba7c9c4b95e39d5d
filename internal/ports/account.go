package ports

import (
	"context"

	"kickoff/internal/domain"
)

// PlayerPort reads the player profile kept in the persisted store.
type PlayerPort interface {
	// GetPlayer returns the profile for userID: player type, stamina and team names.
	GetPlayer(ctx context.Context, userID string) (domain.PlayerProfile, error)
}

// AccountPort defines the interface for updating account profiles.
type AccountPort interface {
	// UpdateProfile writes the display name and the profile metadata of profile.UserID.
	// Returns an error if the profile update fails.
	UpdateProfile(ctx context.Context, profile domain.PlayerProfile) error
}
