package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"kickoff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// OpenPlaybackRequest is the optional payload of RpcOpenPlayback.
// An empty MatchID resumes the caller's current match.
type OpenPlaybackRequest struct {
	MatchID string `json:"match_id"`
}

// OpenPlaybackResponse tells the client which authoritative match to join.
type OpenPlaybackResponse struct {
	NakamaMatchID string `json:"nakama_match_id"`
	MatchID       string `json:"match_id"`
	Resumed       bool   `json:"resumed"`
	IsNew         bool   `json:"is_new"`
}

// matchAPI is the subset of runtime.NakamaModule used to find or create playback matches.
type matchAPI interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

var errNoMatchToResume = runtime.NewError("match_id is required: no match in progress", 5)

func rpcOpenPlayback(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	var req OpenPlaybackRequest
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}

	resp, err := openPlayback(ctx, logger, nk, NewNakamaMatchStore(nk), userID, req)
	if err != nil {
		return "", err
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// openPlayback finds the caller's running playback match for the requested
// backend match, creating one when none is running.
func openPlayback(ctx context.Context, logger runtime.Logger, matches matchAPI, store ports.MatchStorePort, userID string, req OpenPlaybackRequest) (OpenPlaybackResponse, error) {
	resp := OpenPlaybackResponse{MatchID: strings.TrimSpace(req.MatchID)}
	if resp.MatchID == "" {
		current, found, err := store.LoadCurrentMatch(ctx, userID)
		if err != nil {
			logger.Error("openPlayback [User:%s]: Failed to load current match: %v", userID, err)
			return OpenPlaybackResponse{}, runtime.NewError("failed to read current match", 13)
		}
		if !found {
			return OpenPlaybackResponse{}, errNoMatchToResume
		}
		resp.MatchID = current.MatchID
		resp.Resumed = true
	}

	query := fmt.Sprintf("+label.%s:%q +label.%s:%q", MatchLabelKey_MatchID, resp.MatchID, MatchLabelKey_Owner, userID)
	minSize := 0
	maxSize := 1
	found, err := matches.MatchList(ctx, 1, true, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("openPlayback [User:%s]: Failed to list matches: %v", userID, err)
		return OpenPlaybackResponse{}, err
	}
	if len(found) > 0 {
		resp.NakamaMatchID = found[0].MatchId
		logger.Info("openPlayback [User:%s]: Found running playback %s for match %s", userID, resp.NakamaMatchID, resp.MatchID)
		return resp, nil
	}

	nakamaMatchID, err := matches.MatchCreate(ctx, MatchNamePlayback, map[string]interface{}{
		"match_id": resp.MatchID,
		"owner":    userID,
	})
	if err != nil {
		logger.Error("openPlayback [User:%s]: Failed to create playback for match %s: %v", userID, resp.MatchID, err)
		return OpenPlaybackResponse{}, err
	}
	resp.NakamaMatchID = nakamaMatchID
	resp.IsNew = true
	logger.Info("openPlayback [User:%s]: Created playback %s for match %s", userID, nakamaMatchID, resp.MatchID)
	return resp, nil
}
