package nakama

const (
	// RpcOpenPlayback is the Nakama RPC id clients call to open or resume a match playback.
	RpcOpenPlayback = "open_playback"

	// RpcCurrentMatch returns the caller's in-progress match, if any.
	RpcCurrentMatch = "current_match"

	// MatchNamePlayback is the authoritative match handler name registered with Nakama.
	MatchNamePlayback = "kickoff_playback"
)

// Storage locations for the per-user current match record.
const (
	StorageCollectionPlayback = "playback"
	StorageKeyCurrentMatch    = "current_match"
)

// Match label keys, queryable through MatchList.
const (
	MatchLabelKey_MatchID = "match_id"
	MatchLabelKey_Owner   = "owner"
	MatchLabelKey_State   = "state"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSubmitDecision  int64 = 1
	OpContinue        int64 = 2
	OpEndMatch        int64 = 3
	OpRequestSnapshot int64 = 4

	// Server -> Client events
	OpSnapshot int64 = 100
	OpError    int64 = 101
)

// Error codes carried by OpError payloads.
const (
	ErrCodeBadRequest = 400
	ErrCodeForbidden  = 403
	ErrCodeConflict   = 409
	ErrCodeGone       = 410
	ErrCodeInternal   = 500
	ErrCodeUpstream   = 502
)
