package bot

import (
	"fmt"

	"kickoff/internal/domain"
)

// Agent decides on behalf of a player who is not there to do it.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent creates an agent for userID playing with strategy.
func NewAgent(userID, name string, strategy Brain) *Agent {
	if strategy == nil {
		strategy = &NeutralBot{}
	}
	return &Agent{ID: userID, Name: name, Strategy: strategy}
}

// Decide picks a move for the pending prompt. Prompts without choices, such as
// half-time and full-time checkpoints, always get the neutral code.
func (a *Agent) Decide(s Situation) (Move, error) {
	if len(s.Choices) == 0 {
		return Move{Code: domain.NeutralDecisionCode}, nil
	}
	move, err := a.Strategy.Decide(s)
	if err != nil {
		return Move{}, fmt.Errorf("agent %s: %w", a.ID, err)
	}
	for _, c := range s.Choices {
		if c.Code == move.Code {
			return move, nil
		}
	}
	return Move{}, fmt.Errorf("agent %s picked code %d which is not offered", a.ID, move.Code)
}
