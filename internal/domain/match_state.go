package domain

// Score is the goal tally for both sides.
type Score struct {
	Mine     int `json:"mine"`
	Opponent int `json:"opponent"`
}

// ScoreLedger is the locally tracked tally. It only grows; a fresh match load
// replaces it with a zero ledger.
type ScoreLedger struct {
	score Score
}

// Apply credits the goal flags carried by e and reports whether any side scored.
// Both flags set on one event credit both sides.
func (l *ScoreLedger) Apply(e TimelineEvent) bool {
	if e.TeamScored {
		l.score.Mine++
	}
	if e.OpponentScored {
		l.score.Opponent++
	}
	return e.IsGoal()
}

// Score returns the current tally.
func (l *ScoreLedger) Score() Score {
	return l.score
}

// Side is the colour classification of a visible log entry.
type Side string

const (
	SideTeam     Side = "team"
	SideOpponent Side = "opponent"
	SideNeutral  Side = "neutral"
)

// ClassifySide maps an event team to its log colour.
func ClassifySide(t Team) Side {
	switch t {
	case TeamMine:
		return SideTeam
	case TeamOpponent:
		return SideOpponent
	default:
		return SideNeutral
	}
}

// DisplayedEvent is one line of the visible match log.
type DisplayedEvent struct {
	EventID  int64  `json:"event_id,omitempty"` // 0 for synthetic lines
	Minute   int    `json:"minute"`
	Text     string `json:"text"`
	Playable bool   `json:"playable"`
	Side     Side   `json:"side"`
	Goal     bool   `json:"goal,omitempty"`
}

// PlayerProfile is the slice of the persisted store the match screen shows.
type PlayerProfile struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	PlayerType   string `json:"player_type"`
	Stamina      int    `json:"stamina"`
	TeamName     string `json:"team_name"`
	OpponentName string `json:"opponent_name"`
}
