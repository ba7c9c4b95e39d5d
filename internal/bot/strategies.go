package bot

import (
	"sort"

	"kickoff/internal/domain"
)

// TunedBot scores every offered choice with its tuning and plays the best one.
type TunedBot struct {
	Tuning Tuning
}

func (b *TunedBot) Decide(s Situation) (Move, error) {
	if len(s.Choices) == 0 {
		return Move{Code: domain.NeutralDecisionCode}, nil
	}

	type scoredChoice struct {
		choice domain.Choice
		score  float64
		// rotation breaks ties so equal-weight prompts, penalties in particular,
		// do not always go the same way.
		rotation int
	}

	weights := b.Tuning.Preferred[s.Event.Action]
	risky, hasRisky := b.Tuning.Risky[s.Event.Action]
	trailing := s.Score.Mine < s.Score.Opponent && s.Minute >= b.Tuning.LateMinute
	tired := s.Stamina > 0 && s.Stamina <= b.Tuning.LowStamina

	n := len(s.Choices)
	scored := make([]scoredChoice, 0, n)
	for i, c := range s.Choices {
		score := weights[c.Code]
		if hasRisky && c.Code == risky {
			if trailing {
				score += b.Tuning.TrailingBonus
			}
			if tired {
				score -= b.Tuning.LowStaminaPenalty
			}
		}
		rotation := (i - int(s.Event.EventID%int64(n)) + n) % n
		scored = append(scored, scoredChoice{choice: c, score: score, rotation: rotation})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].rotation < scored[j].rotation
	})

	best := scored[0].choice
	return Move{Code: best.Code, Label: best.Label}, nil
}

// NeutralBot plays the first offered choice.
type NeutralBot struct{}

func (b *NeutralBot) Decide(s Situation) (Move, error) {
	if len(s.Choices) == 0 {
		return Move{Code: domain.NeutralDecisionCode}, nil
	}
	return Move{Code: s.Choices[0].Code, Label: s.Choices[0].Label}, nil
}
