package bot

import (
	"kickoff/internal/domain"
)

// Situation is what an autopilot sees when the clock is halted on the player.
type Situation struct {
	Event   domain.TimelineEvent
	Choices []domain.Choice
	Score   domain.Score
	Minute  int
	Stamina int
}

// Move represents the decision made by the AI.
type Move struct {
	Code  int
	Label string
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	Decide(s Situation) (Move, error)
}
