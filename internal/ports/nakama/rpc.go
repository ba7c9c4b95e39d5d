package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"kickoff/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// CurrentMatchResponse is the payload returned by RpcCurrentMatch.
type CurrentMatchResponse struct {
	Found bool                `json:"found"`
	Match *ports.CurrentMatch `json:"match,omitempty"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcOpenPlayback, rpcOpenPlayback); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcCurrentMatch, rpcCurrentMatch)
}

// rpcCurrentMatch reports the caller's in-progress match so a client can offer to resume it.
//
// Payload: unused.
// Returns: JSON CurrentMatchResponse.
func rpcCurrentMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	resp, err := currentMatch(ctx, NewNakamaMatchStore(nk), userID)
	if err != nil {
		logger.Error("rpcCurrentMatch [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to read current match", 13)
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func currentMatch(ctx context.Context, store ports.MatchStorePort, userID string) (CurrentMatchResponse, error) {
	match, found, err := store.LoadCurrentMatch(ctx, userID)
	if err != nil {
		return CurrentMatchResponse{}, err
	}
	if !found {
		return CurrentMatchResponse{}, nil
	}
	return CurrentMatchResponse{Found: true, Match: &match}, nil
}
