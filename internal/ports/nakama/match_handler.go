package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"kickoff/internal/app"
	"kickoff/internal/bot"
	"kickoff/internal/config"
	"kickoff/internal/ports/resolver"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	defaultTickRate     = 10
	commandResultBuffer = 16
)

// commandResult reports the outcome of an asynchronous command back to the match loop.
type commandResult struct {
	userID string
	opCode int64
	auto   bool
	err    error
}

// MatchState holds the authoritative runtime state for one playback match.
type MatchState struct {
	MatchID        string                      `json:"match_id"`         // Backend match being played back
	OwnerID        string                      `json:"owner"`            // The only user allowed to join and send commands
	Tick           int64                       `json:"tick"`             // Current tick of the match loop
	TickRate       int                         `json:"tick_rate"`        // Loop ticks per second
	Presences      map[string]runtime.Presence `json:"-"`                // Map UserId -> Presence for targeted messaging
	Coordinator    *app.Coordinator            `json:"-"`                // Playback clock, processor and decision cycle
	Agent          *bot.Agent                  `json:"-"`                // Answers prompts while the owner is away
	AutoDelayTicks int64                       `json:"auto_delay_ticks"` // Ticks a prompt waits before the agent acts
	AutoArmed      bool                        `json:"auto_armed"`       // Whether AutoActAt is counting down
	AutoActAt      int64                       `json:"auto_act_at"`      // Tick at which the agent may act
	InFlight       int                         `json:"in_flight"`        // Commands running outside the loop
	LastVersion    uint64                      `json:"last_version"`     // Snapshot version last broadcast
	LabelState     app.State                   `json:"label_state"`      // Playback state published in the label

	ctx     context.Context
	cancel  context.CancelFunc
	results chan commandResult
}

func newMatchState(matchID, owner string, coordinator *app.Coordinator, agent *bot.Agent, tickRate, autoDelaySeconds int) *MatchState {
	if tickRate <= 0 {
		tickRate = defaultTickRate
	}
	if autoDelaySeconds < 0 {
		autoDelaySeconds = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MatchState{
		MatchID:        matchID,
		OwnerID:        owner,
		TickRate:       tickRate,
		Presences:      make(map[string]runtime.Presence),
		Coordinator:    coordinator,
		Agent:          agent,
		AutoDelayTicks: int64(autoDelaySeconds * tickRate),
		LabelState:     coordinator.Snapshot().State,
		ctx:            ctx,
		cancel:         cancel,
		results:        make(chan commandResult, commandResultBuffer),
	}
}

func (ms *MatchState) ownerPresent() bool {
	_, ok := ms.Presences[ms.OwnerID]
	return ok
}

// close stops in-flight commands and the coordinator. Safe to call more than once.
func (ms *MatchState) close() {
	ms.cancel()
	ms.Coordinator.Teardown()
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit loads the timeline of the backend match named by the "match_id"
// param and starts the clock. "owner" names the user the playback belongs to.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	matchID, _ := params["match_id"].(string)
	owner, _ := params["owner"].(string)
	if matchID == "" || owner == "" {
		logger.Error("MatchInit: match_id and owner params are required")
		return nil, 0, ""
	}
	logger = logger.WithFields(map[string]interface{}{"match_id": matchID, "owner": owner})

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	client, err := resolver.New(config.ResolverSettingsFromEnv(env), owner, logger)
	if err != nil {
		logger.Error("MatchInit: Failed to configure resolver: %v", err)
		return nil, 0, ""
	}

	cfg := config.GetPlaybackConfig()
	accounts := NewNakamaAccountAdapter(nk)
	coordinator := app.NewCoordinator(matchID, client, logger, app.Options{
		UserID:  owner,
		Store:   NewNakamaMatchStore(nk),
		Players: accounts,
		Timings: cfg.Timings(),
	})
	if err := coordinator.Load(ctx); err != nil {
		logger.Error("MatchInit: Failed to load timeline: %v", err)
		return nil, 0, ""
	}

	snap := coordinator.Snapshot()
	agent := bot.NewAgent(owner, "", nil)
	if snap.Player != nil {
		agent = bot.NewAgent(owner, snap.Player.Name, bot.NewStrategy(snap.Player.PlayerType))
	}

	state := newMatchState(matchID, owner, coordinator, agent, cfg.MatchTickRate, cfg.AutoDecisionDelaySeconds)
	label, err := buildLabel(matchID, owner, snap.State)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		state.close()
		return nil, 0, ""
	}

	logger.Info("MatchInit: Playback ready, %d ticks/s", state.TickRate)
	return state, state.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if presence.GetUserId() != matchState.OwnerID {
		return state, false, "playback belongs to another player"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		logger.Debug("MatchJoin: User %s joined playback of %s.", p.GetUserId(), matchState.MatchID)
	}
	matchState.AutoArmed = false

	// Joiners get the full state straight away; the loop only broadcasts changes.
	mh.sendSnapshot(dispatcher, logger, matchState.Coordinator.Snapshot(), presences)
	return matchState
}

// MatchLeave keeps playback running without the owner; the agent takes over
// pending prompts after the configured delay.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		logger.Debug("MatchLeave: User %s left playback of %s.", p.GetUserId(), matchState.MatchID)
	}

	if len(matchState.Presences) == 0 && matchState.Coordinator.Snapshot().Terminal {
		logger.Info("MatchLeave: Terminating finished playback of %s.", matchState.MatchID)
		matchState.close()
		return nil
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick
	matchState.Coordinator.Tick(time.Now())

	for _, msg := range messages {
		mh.handleMessage(matchState, dispatcher, logger, msg)
	}
	mh.drainResults(matchState, dispatcher, logger)

	snap := matchState.Coordinator.Snapshot()
	mh.runAutopilot(matchState, logger, snap)

	if snap.Version != matchState.LastVersion {
		matchState.LastVersion = snap.Version
		if len(matchState.Presences) > 0 {
			mh.sendSnapshot(dispatcher, logger, snap, nil)
		}
	}
	if snap.State != matchState.LabelState {
		matchState.LabelState = snap.State
		mh.updateLabel(matchState, dispatcher, logger)
	}

	if snap.Terminal && len(matchState.Presences) == 0 && matchState.InFlight == 0 {
		logger.Info("MatchLoop: Playback of %s ended with nobody watching, terminating.", matchState.MatchID)
		matchState.close()
		return nil
	}
	return matchState
}

func (mh *matchHandler) handleMessage(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	userID := msg.GetUserId()
	if userID != state.OwnerID {
		mh.sendError(state, dispatcher, logger, userID, ErrCodeForbidden, msg.GetOpCode(), "only the owner can control playback")
		return
	}

	c := state.Coordinator
	switch msg.GetOpCode() {
	case OpSubmitDecision:
		code, err := decodeDecisionCode(msg.GetData())
		if err != nil {
			mh.sendError(state, dispatcher, logger, userID, ErrCodeBadRequest, OpSubmitDecision, err.Error())
			return
		}
		mh.launch(state, userID, OpSubmitDecision, false, func(ctx context.Context) error {
			return c.SubmitDecision(ctx, code)
		})
	case OpContinue:
		mh.launch(state, userID, OpContinue, false, c.Continue)
	case OpEndMatch:
		mh.launch(state, userID, OpEndMatch, false, c.EndMatch)
	case OpRequestSnapshot:
		if p, ok := state.Presences[userID]; ok {
			mh.sendSnapshot(dispatcher, logger, c.Snapshot(), []runtime.Presence{p})
		}
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		mh.sendError(state, dispatcher, logger, userID, ErrCodeBadRequest, msg.GetOpCode(), "unknown op code")
	}
}

// launch runs a coordinator command off the loop goroutine. Submissions block
// on the resolver, which must not stall the tick.
func (mh *matchHandler) launch(state *MatchState, userID string, opCode int64, auto bool, fn func(context.Context) error) {
	state.InFlight++
	ctx := state.ctx
	results := state.results
	go func() {
		res := commandResult{userID: userID, opCode: opCode, auto: auto, err: fn(ctx)}
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}()
}

func (mh *matchHandler) drainResults(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for {
		select {
		case res := <-state.results:
			state.InFlight--
			if res.err == nil {
				continue
			}
			if res.auto {
				logger.Warn("Autopilot: op %d for %s failed, retrying later: %v", res.opCode, state.MatchID, res.err)
				state.AutoActAt = state.Tick + state.AutoDelayTicks
				continue
			}
			mh.sendError(state, dispatcher, logger, res.userID, errorCode(res.err), res.opCode, res.err.Error())
		default:
			return
		}
	}
}

// needsInput reports whether the snapshot is waiting on a player command.
func needsInput(snap app.Snapshot) bool {
	switch {
	case snap.CanEndMatch:
		return true
	case snap.Continuation != nil:
		return !snap.Continuation.Submitting
	case snap.Decision != nil:
		return snap.Decision.Phase != app.DecisionSubmitting
	}
	return false
}

// runAutopilot lets the agent answer a prompt once the owner has been away
// for AutoDelayTicks while the prompt was open.
func (mh *matchHandler) runAutopilot(state *MatchState, logger runtime.Logger, snap app.Snapshot) {
	if state.Agent == nil || state.ownerPresent() || !needsInput(snap) {
		state.AutoArmed = false
		return
	}
	if !state.AutoArmed {
		state.AutoArmed = true
		state.AutoActAt = state.Tick + state.AutoDelayTicks
	}
	if state.Tick < state.AutoActAt || state.InFlight > 0 {
		return
	}

	c := state.Coordinator
	switch {
	case snap.CanEndMatch:
		logger.Info("Autopilot: ending playback of %s", state.MatchID)
		mh.launch(state, state.OwnerID, OpEndMatch, true, c.EndMatch)
	case snap.Continuation != nil, snap.Decision != nil && snap.Decision.CanContinue:
		mh.launch(state, state.OwnerID, OpContinue, true, c.Continue)
	case snap.Decision != nil:
		event, ok := c.PendingEvent()
		if !ok {
			return
		}
		stamina := 0
		if snap.Player != nil {
			stamina = snap.Player.Stamina
		}
		move, err := state.Agent.Decide(bot.Situation{
			Event:   event,
			Choices: snap.Decision.Choices,
			Score:   snap.Score,
			Minute:  snap.Minute,
			Stamina: stamina,
		})
		if err != nil {
			logger.Error("Autopilot: agent failed to decide event %d: %v", event.EventID, err)
			state.AutoActAt = state.Tick + state.AutoDelayTicks
			return
		}
		logger.Info("Autopilot: picked %q (%d) for event %d at minute %d", move.Label, move.Code, event.EventID, snap.Minute)
		code := move.Code
		mh.launch(state, state.OwnerID, OpSubmitDecision, true, func(ctx context.Context) error {
			return c.SubmitDecision(ctx, code)
		})
	}
}

// errorCode maps coordinator errors onto OpError codes.
func errorCode(err error) int {
	var subErr *app.SubmissionError
	switch {
	case errors.As(err, &subErr), errors.Is(err, app.ErrEmptyResult):
		return ErrCodeUpstream
	case errors.Is(err, app.ErrInvalidChoice):
		return ErrCodeBadRequest
	case errors.Is(err, app.ErrTornDown):
		return ErrCodeGone
	case errors.Is(err, app.ErrSubmissionInFlight),
		errors.Is(err, app.ErrDecisionResolved),
		errors.Is(err, app.ErrDecisionRequired),
		errors.Is(err, app.ErrNoPendingDecision),
		errors.Is(err, app.ErrNothingToContinue),
		errors.Is(err, app.ErrNotFinished),
		errors.Is(err, app.ErrStaleSubmission):
		return ErrCodeConflict
	default:
		return ErrCodeInternal
	}
}

// sendSnapshot sends snap to recipients, or to everyone when recipients is nil.
func (mh *matchHandler) sendSnapshot(dispatcher runtime.MatchDispatcher, logger runtime.Logger, snap app.Snapshot, recipients []runtime.Presence) {
	bytes, err := encodeSnapshot(snap)
	if err != nil {
		logger.Error("Failed to encode snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSnapshot, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast snapshot: %v", err)
	}
}

// sendError sends an OpError payload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, opCode int64, message string) {
	bytes, err := encodeError(code, opCode, message)
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(state.MatchID, state.OwnerID, state.LabelState)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d seconds grace", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		matchState.close()
	}
	return state
}

// MatchSignal answers "snapshot" with the current snapshot as JSON.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "snapshot" {
		return state, ""
	}
	b, err := json.Marshal(matchState.Coordinator.Snapshot())
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal snapshot: %v", err)
		return state, ""
	}
	return state, string(b)
}
