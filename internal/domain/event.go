package domain

// Action identifies what happened in a timeline event. Values match the
// action codes emitted by the match-resolution contract.
type Action int

const (
	ActionOpenPlay Action = iota
	ActionJumper
	ActionBrawl
	ActionFreeKick
	ActionPenalty
	ActionOpenDefense
	ActionHalfTime
	ActionMatchEnd
	ActionSubstitute
)

var actionNames = [...]string{
	ActionOpenPlay:    "open_play",
	ActionJumper:      "jumper",
	ActionBrawl:       "brawl",
	ActionFreeKick:    "free_kick",
	ActionPenalty:     "penalty",
	ActionOpenDefense: "open_defense",
	ActionHalfTime:    "half_time",
	ActionMatchEnd:    "match_end",
	ActionSubstitute:  "substitute",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Valid reports whether a is a known action code.
func (a Action) Valid() bool {
	return a >= 0 && int(a) < len(actionNames)
}

// Team is the side an event belongs to, from the local player's perspective.
type Team int

const (
	TeamMine Team = iota
	TeamOpponent
	TeamNeutral
)

func (t Team) String() string {
	switch t {
	case TeamMine:
		return "mine"
	case TeamOpponent:
		return "opponent"
	default:
		return "neutral"
	}
}

// TimelineEvent is one backend-emitted occurrence in a match. Events are
// immutable once received; the engine only stores them and marks them processed.
type TimelineEvent struct {
	EventID            int64
	Minute             int
	Action             Action
	Team               Team
	Description        string
	TeamScored         bool
	OpponentScored     bool
	PlayerParticipates bool
	HalfTime           bool
	MatchEnd           bool
}

// IsGoal reports whether the event carries a scored flag for either side.
func (e TimelineEvent) IsGoal() bool {
	return e.TeamScored || e.OpponentScored
}

// IsContinuation reports whether the event is a half-time or full-time checkpoint.
func (e TimelineEvent) IsContinuation() bool {
	return e.HalfTime || e.MatchEnd || e.Action == ActionHalfTime || e.Action == ActionMatchEnd
}

// EndsMatch reports whether resolving the event finishes the match.
func (e TimelineEvent) EndsMatch() bool {
	return e.MatchEnd || e.Action == ActionMatchEnd
}

// RawEvent is the wire shape of a timeline event. Minute and EventID are
// optional on the wire; events missing either cannot be scheduled.
type RawEvent struct {
	EventID            *int64 `json:"eventId"`
	Minute             *int   `json:"minute"`
	Action             int    `json:"action"`
	Team               int    `json:"team"`
	Description        string `json:"description,omitempty"`
	TeamScored         bool   `json:"teamScored"`
	OpponentScored     bool   `json:"opponentScored"`
	PlayerParticipates bool   `json:"playerParticipates"`
	HalfTime           bool   `json:"halfTime"`
	MatchEnd           bool   `json:"matchEnd"`
}

// DecodeEvents converts wire events into timeline events, dropping the ones
// that are missing a minute or an event id, or carry a negative minute.
// Returns the decoded events in input order and the number dropped.
func DecodeEvents(raw []RawEvent) ([]TimelineEvent, int) {
	out := make([]TimelineEvent, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		if r.EventID == nil || r.Minute == nil || *r.Minute < 0 {
			dropped++
			continue
		}
		team := Team(r.Team)
		if team < TeamMine || team > TeamNeutral {
			team = TeamNeutral
		}
		out = append(out, TimelineEvent{
			EventID:            *r.EventID,
			Minute:             *r.Minute,
			Action:             Action(r.Action),
			Team:               team,
			Description:        r.Description,
			TeamScored:         r.TeamScored,
			OpponentScored:     r.OpponentScored,
			PlayerParticipates: r.PlayerParticipates,
			HalfTime:           r.HalfTime,
			MatchEnd:           r.MatchEnd,
		})
	}
	return out, dropped
}

// EncodeEvent converts a timeline event back to its wire shape.
func EncodeEvent(e TimelineEvent) RawEvent {
	id := e.EventID
	minute := e.Minute
	return RawEvent{
		EventID:            &id,
		Minute:             &minute,
		Action:             int(e.Action),
		Team:               int(e.Team),
		Description:        e.Description,
		TeamScored:         e.TeamScored,
		OpponentScored:     e.OpponentScored,
		PlayerParticipates: e.PlayerParticipates,
		HalfTime:           e.HalfTime,
		MatchEnd:           e.MatchEnd,
	}
}
