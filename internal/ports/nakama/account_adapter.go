package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"kickoff/internal/domain"
	"kickoff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

// accountAPI is the subset of runtime.NakamaModule used for player profiles.
type accountAPI interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error
}

// profileMetadata is the player profile as stored in the account metadata.
type profileMetadata struct {
	PlayerType   string `json:"player_type"`
	Stamina      int    `json:"stamina"`
	TeamName     string `json:"team_name"`
	OpponentName string `json:"opponent_name,omitempty"`
}

// NakamaAccountAdapter implements ports.PlayerPort and ports.AccountPort using Nakama's account API.
type NakamaAccountAdapter struct {
	nk accountAPI
}

// NewNakamaAccountAdapter creates a new account adapter.
func NewNakamaAccountAdapter(nk accountAPI) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// GetPlayer reads the profile from the account display name and metadata.
func (a *NakamaAccountAdapter) GetPlayer(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return domain.PlayerProfile{}, fmt.Errorf("get account %s: %w", userID, err)
	}
	if account == nil || account.User == nil {
		return domain.PlayerProfile{}, fmt.Errorf("account %s has no user", userID)
	}

	var meta profileMetadata
	if raw := account.User.Metadata; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return domain.PlayerProfile{}, fmt.Errorf("decode metadata for %s: %w", userID, err)
		}
	}
	name := account.User.DisplayName
	if name == "" {
		name = account.User.Username
	}
	return domain.PlayerProfile{
		UserID:       userID,
		Name:         name,
		PlayerType:   meta.PlayerType,
		Stamina:      meta.Stamina,
		TeamName:     meta.TeamName,
		OpponentName: meta.OpponentName,
	}, nil
}

// UpdateProfile writes the display name and profile metadata. The username is left unchanged.
func (a *NakamaAccountAdapter) UpdateProfile(ctx context.Context, profile domain.PlayerProfile) error {
	metadata := map[string]interface{}{
		"player_type": profile.PlayerType,
		"stamina":     profile.Stamina,
		"team_name":   profile.TeamName,
	}
	if profile.OpponentName != "" {
		metadata["opponent_name"] = profile.OpponentName
	}
	return a.nk.AccountUpdateId(ctx, profile.UserID, "", metadata, profile.Name, "", "", "", "")
}

var (
	_ ports.PlayerPort  = (*NakamaAccountAdapter)(nil)
	_ ports.AccountPort = (*NakamaAccountAdapter)(nil)
)
