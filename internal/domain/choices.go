package domain

// Choice is one option offered to the player for a pending decision.
type Choice struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// NeutralDecisionCode is submitted for continuation checkpoints that offer no choice.
const NeutralDecisionCode = 0

var attackingChoices = map[Action][]Choice{
	ActionOpenPlay: {
		{Code: 1, Label: "Pass"},
		{Code: 2, Label: "Dribble"},
		{Code: 3, Label: "Shoot"},
	},
	ActionJumper: {
		{Code: 1, Label: "Header on goal"},
		{Code: 2, Label: "Knock down"},
		{Code: 3, Label: "Flick on"},
	},
	ActionBrawl: {
		{Code: 1, Label: "Stand your ground"},
		{Code: 2, Label: "Calm things down"},
		{Code: 3, Label: "Walk away"},
	},
	ActionFreeKick: {
		{Code: 1, Label: "Shoot"},
		{Code: 2, Label: "Cross"},
		{Code: 3, Label: "Short pass"},
	},
	ActionPenalty: {
		{Code: 1, Label: "Shoot left"},
		{Code: 2, Label: "Shoot center"},
		{Code: 3, Label: "Shoot right"},
	},
	ActionOpenDefense: {
		{Code: 1, Label: "Tackle"},
		{Code: 2, Label: "Block"},
		{Code: 3, Label: "Intercept"},
	},
}

// Opponent-side events put the player on the defending end of the same action.
var defendingChoices = map[Action][]Choice{
	ActionOpenPlay: {
		{Code: 1, Label: "Press"},
		{Code: 2, Label: "Hold position"},
		{Code: 3, Label: "Tackle"},
	},
	ActionJumper: {
		{Code: 1, Label: "Challenge in the air"},
		{Code: 2, Label: "Mark the runner"},
		{Code: 3, Label: "Clear"},
	},
	ActionFreeKick: {
		{Code: 1, Label: "Build the wall"},
		{Code: 2, Label: "Mark zonal"},
		{Code: 3, Label: "Man marking"},
	},
	ActionPenalty: {
		{Code: 1, Label: "Dive left"},
		{Code: 2, Label: "Stay center"},
		{Code: 3, Label: "Dive right"},
	},
}

// ChoicesFor returns the choice set offered for an action seen from team's perspective.
// Actions without a choice set return nil.
func ChoicesFor(action Action, team Team) []Choice {
	if team == TeamOpponent {
		if choices, ok := defendingChoices[action]; ok {
			return append([]Choice(nil), choices...)
		}
	}
	if choices, ok := attackingChoices[action]; ok {
		return append([]Choice(nil), choices...)
	}
	return nil
}

// ValidChoice reports whether code is acceptable for e. Events without a
// choice set accept only the neutral code.
func ValidChoice(e TimelineEvent, code int) bool {
	choices := ChoicesFor(e.Action, e.Team)
	if len(choices) == 0 {
		return code == NeutralDecisionCode
	}
	for _, c := range choices {
		if c.Code == code {
			return true
		}
	}
	return false
}
