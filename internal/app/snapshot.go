package app

import (
	"fmt"

	"kickoff/internal/domain"
)

// State is the playback clock state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateProcessingMinute
	StateHaltedForDecision
	StateHaltedForContinuation
	StateFinished
)

var stateNames = [...]string{
	StateIdle:                  "idle",
	StateRunning:               "running",
	StateProcessingMinute:      "processing_minute",
	StateHaltedForDecision:     "halted_for_decision",
	StateHaltedForContinuation: "halted_for_continuation",
	StateFinished:              "finished",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// Halted reports whether the clock is waiting on the player.
func (s State) Halted() bool {
	return s == StateHaltedForDecision || s == StateHaltedForContinuation
}

// DecisionPhase tracks the request/response cycle of a pending prompt.
type DecisionPhase string

const (
	DecisionChoosing   DecisionPhase = "choosing"
	DecisionSubmitting DecisionPhase = "submitting"
	DecisionResolved   DecisionPhase = "resolved"
)

// DecisionPrompt describes the decision the clock is halted on.
type DecisionPrompt struct {
	EventID int64           `json:"event_id"`
	Minute  int             `json:"minute"`
	Action  string          `json:"action"`
	Team    string          `json:"team"`
	Choices []domain.Choice `json:"choices"`
	Phase   DecisionPhase   `json:"phase"`
	// CanContinue is set once the decision resolved without a chained follow-up.
	CanContinue bool   `json:"can_continue"`
	Chained     bool   `json:"chained"`
	ResultText  string `json:"result_text,omitempty"`
}

// ContinuationPrompt describes a half-time or full-time checkpoint.
type ContinuationPrompt struct {
	EventID    int64  `json:"event_id"`
	Minute     int    `json:"minute"`
	Kind       string `json:"kind"`
	Submitting bool   `json:"submitting"`
}

// Snapshot is the observable playback state handed to UI layers.
type Snapshot struct {
	MatchID       string                  `json:"match_id"`
	Version       uint64                  `json:"version"`
	State         State                   `json:"state"`
	Minute        int                     `json:"minute"`
	Score         domain.Score            `json:"score"`
	Log           []domain.DisplayedEvent `json:"log"`
	Decision      *DecisionPrompt         `json:"decision,omitempty"`
	Continuation  *ContinuationPrompt     `json:"continuation,omitempty"`
	GoalFlash     bool                    `json:"goal_flash"`
	Error         string                  `json:"error,omitempty"`
	Finished      bool                    `json:"finished"`
	CanEndMatch   bool                    `json:"can_end_match"`
	Terminal      bool                    `json:"terminal"`
	Player        *domain.PlayerProfile   `json:"player,omitempty"`
	Anomalies     int                     `json:"anomalies"`
	DroppedEvents int                     `json:"dropped_events"`
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		MatchID:       c.matchID,
		Version:       c.version,
		State:         c.state,
		Minute:        c.displayMinute,
		Score:         c.ledger.Score(),
		Log:           append([]domain.DisplayedEvent(nil), c.log...),
		GoalFlash:     !c.goalFlashUntil.IsZero(),
		Error:         c.errMsg,
		Finished:      c.state == StateFinished,
		CanEndMatch:   c.state == StateFinished && !c.terminal,
		Terminal:      c.terminal,
		Anomalies:     c.anomalies,
		DroppedEvents: c.dropped,
	}
	if c.profile != nil {
		p := *c.profile
		snap.Player = &p
	}

	if c.pending == nil {
		return snap
	}
	switch c.state {
	case StateHaltedForDecision:
		snap.Decision = &DecisionPrompt{
			EventID:     c.pending.EventID,
			Minute:      c.pending.Minute,
			Action:      c.pending.Action.String(),
			Team:        c.pending.Team.String(),
			Choices:     domain.ChoicesFor(c.pending.Action, c.pending.Team),
			Phase:       c.phase,
			CanContinue: c.phase == DecisionResolved,
			Chained:     c.chained,
			ResultText:  c.resultText,
		}
	case StateHaltedForContinuation:
		kind := "half_time"
		if c.pending.EndsMatch() {
			kind = "match_end"
		}
		snap.Continuation = &ContinuationPrompt{
			EventID:    c.pending.EventID,
			Minute:     c.pending.Minute,
			Kind:       kind,
			Submitting: c.phase == DecisionSubmitting,
		}
	}
	return snap
}

// Snapshot returns the current observable state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer. The channel receives the current snapshot
// immediately and then every later change; a slow reader only misses
// intermediate snapshots, never the latest one. Call cancel to unsubscribe.
// The channel is closed on cancel or teardown.
func (c *Coordinator) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, buffer)
	if c.tornDown {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publishLocked bumps the version and fans the new snapshot out to observers.
func (c *Coordinator) publishLocked() {
	c.version++
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Drop the oldest queued snapshot so the latest one always lands.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
