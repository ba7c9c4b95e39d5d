// Package catalog turns timeline events into the text lines shown in the match log.
// Variation between lines is chosen from the event id so the same event always
// renders the same way.
package catalog

import (
	"fmt"

	"kickoff/internal/domain"
)

var mineLines = map[domain.Action][]string{
	domain.ActionOpenPlay: {
		"Your side strings together a patient spell of possession.",
		"Your midfield finds space between the lines.",
		"Your winger drives at the full-back.",
	},
	domain.ActionJumper: {
		"A high ball drops into the box for your striker.",
		"Your forward rises for a looping cross.",
	},
	domain.ActionBrawl: {
		"Tempers flare around one of your players.",
		"A scuffle breaks out after a late challenge on your man.",
	},
	domain.ActionFreeKick: {
		"Your team wins a free kick in a dangerous area.",
		"Free kick to your side just outside the box.",
	},
	domain.ActionPenalty: {
		"Penalty! Your striker is brought down in the box.",
		"The referee points to the spot for your team.",
	},
	domain.ActionOpenDefense: {
		"Your back line is stretched by a quick break.",
		"Your defence scrambles to cover a loose ball.",
	},
	domain.ActionSubstitute: {
		"Your manager makes a change.",
	},
}

var opponentLines = map[domain.Action][]string{
	domain.ActionOpenPlay: {
		"The opposition keeps the ball and probes for an opening.",
		"The opponents work it wide looking for a cross.",
	},
	domain.ActionJumper: {
		"The opponents swing a dangerous ball into your box.",
	},
	domain.ActionBrawl: {
		"Pushing and shoving as an opponent squares up.",
	},
	domain.ActionFreeKick: {
		"Free kick to the opponents in a threatening spot.",
	},
	domain.ActionPenalty: {
		"Penalty to the opponents!",
		"The referee awards the opposition a spot kick.",
	},
	domain.ActionOpenDefense: {
		"The opposition defence sits deep and compact.",
	},
	domain.ActionSubstitute: {
		"The opponents make a substitution.",
	},
}

var neutralLines = map[domain.Action][]string{
	domain.ActionHalfTime: {"The referee blows for half time."},
	domain.ActionMatchEnd: {"Full time! The final whistle goes."},
}

var goalLines = map[domain.Team][]string{
	domain.TeamMine: {
		"GOAL! Your team finds the back of the net!",
		"GOAL! What a finish from your side!",
		"GOAL! The fans erupt as your team scores!",
	},
	domain.TeamOpponent: {
		"Goal for the opponents.",
		"The opponents score. Heads drop.",
	},
}

// EventText returns the log line for e. A specific backend description wins
// over the catalog line; generic or undecodable descriptions fall back to it.
func EventText(e domain.TimelineEvent) string {
	if text, ok := DecodeDescription(e.Description); ok && !IsGeneric(text, e.Action) {
		return text
	}
	return pick(linesFor(e), e.EventID, fallbackText(e))
}

// GoalText returns the celebration line for a goal event. Both flags set
// produce the line for the player's team.
func GoalText(e domain.TimelineEvent) string {
	team := domain.TeamOpponent
	if e.TeamScored {
		team = domain.TeamMine
	}
	return pick(goalLines[team], e.EventID, "GOAL!")
}

// ParticipationText is the line appended once the player's decision for e is resolved.
func ParticipationText(e domain.TimelineEvent) string {
	return fmt.Sprintf("You took part in the %s.", humanAction(e.Action))
}

// DecisionPrompt is the interactive log line shown while the clock waits on the player.
func DecisionPrompt(e domain.TimelineEvent) string {
	return EventText(e) + " It's your call."
}

// ContinuationText is the line shown at a half-time or full-time checkpoint.
func ContinuationText(e domain.TimelineEvent) string {
	if e.EndsMatch() {
		return pick(neutralLines[domain.ActionMatchEnd], e.EventID, "Full time.")
	}
	return pick(neutralLines[domain.ActionHalfTime], e.EventID, "Half time.")
}

func linesFor(e domain.TimelineEvent) []string {
	if e.IsContinuation() {
		if e.EndsMatch() {
			return neutralLines[domain.ActionMatchEnd]
		}
		return neutralLines[domain.ActionHalfTime]
	}
	switch e.Team {
	case domain.TeamMine:
		return mineLines[e.Action]
	case domain.TeamOpponent:
		return opponentLines[e.Action]
	default:
		return neutralLines[e.Action]
	}
}

func pick(lines []string, eventID int64, fallback string) string {
	if len(lines) == 0 {
		return fallback
	}
	idx := eventID % int64(len(lines))
	if idx < 0 {
		idx = -idx
	}
	return lines[idx]
}

func fallbackText(e domain.TimelineEvent) string {
	return fmt.Sprintf("%s (%s).", capitalize(humanAction(e.Action)), e.Team)
}

func humanAction(a domain.Action) string {
	switch a {
	case domain.ActionOpenPlay:
		return "open play"
	case domain.ActionJumper:
		return "aerial duel"
	case domain.ActionBrawl:
		return "brawl"
	case domain.ActionFreeKick:
		return "free kick"
	case domain.ActionPenalty:
		return "penalty"
	case domain.ActionOpenDefense:
		return "defensive action"
	case domain.ActionHalfTime:
		return "half time"
	case domain.ActionMatchEnd:
		return "final whistle"
	case domain.ActionSubstitute:
		return "substitution"
	default:
		return "play"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
