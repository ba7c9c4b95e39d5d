package bot

import "kickoff/internal/domain"

// Tuning weighs the choice codes of each action for one player type.
type Tuning struct {
	// Preferred maps an action to a weight per choice code. Missing codes weigh 0.
	Preferred map[domain.Action]map[int]float64
	// Risky is the choice code per action that goes for goal.
	Risky map[domain.Action]int

	LateMinute        int
	TrailingBonus     float64
	LowStamina        int
	LowStaminaPenalty float64
}

var defaultRisky = map[domain.Action]int{
	domain.ActionOpenPlay:    3,
	domain.ActionJumper:      1,
	domain.ActionBrawl:       1,
	domain.ActionFreeKick:    1,
	domain.ActionOpenDefense: 1,
}

// DefaultTunings holds one tuning per onboarding player type.
var DefaultTunings = map[string]Tuning{
	"striker": {
		Preferred: map[domain.Action]map[int]float64{
			domain.ActionOpenPlay: {1: 0.2, 2: 0.5, 3: 1.0},
			domain.ActionJumper:   {1: 1.0, 2: 0.4, 3: 0.3},
			domain.ActionFreeKick: {1: 0.9, 2: 0.5, 3: 0.2},
			domain.ActionBrawl:    {1: 0.3, 2: 0.6, 3: 0.4},
		},
		Risky:             defaultRisky,
		LateMinute:        70,
		TrailingBonus:     0.5,
		LowStamina:        25,
		LowStaminaPenalty: 0.4,
	},
	"playmaker": {
		Preferred: map[domain.Action]map[int]float64{
			domain.ActionOpenPlay: {1: 1.0, 2: 0.6, 3: 0.3},
			domain.ActionJumper:   {1: 0.3, 2: 0.9, 3: 0.6},
			domain.ActionFreeKick: {1: 0.4, 2: 0.6, 3: 1.0},
			domain.ActionBrawl:    {1: 0.1, 2: 1.0, 3: 0.5},
		},
		Risky:             defaultRisky,
		LateMinute:        75,
		TrailingBonus:     0.8,
		LowStamina:        25,
		LowStaminaPenalty: 0.3,
	},
	"defender": {
		Preferred: map[domain.Action]map[int]float64{
			domain.ActionOpenPlay:    {1: 1.0, 2: 0.3, 3: 0.2},
			domain.ActionOpenDefense: {1: 1.0, 2: 0.7, 3: 0.5},
			domain.ActionJumper:      {1: 0.5, 2: 0.4, 3: 1.0},
			domain.ActionBrawl:       {1: 0.8, 2: 0.4, 3: 0.2},
		},
		Risky:             defaultRisky,
		LateMinute:        80,
		TrailingBonus:     1.0,
		LowStamina:        20,
		LowStaminaPenalty: 0.6,
	},
	"goalkeeper": {
		Preferred: map[domain.Action]map[int]float64{
			domain.ActionOpenPlay:    {1: 1.0, 2: 0.8, 3: 0.1},
			domain.ActionOpenDefense: {1: 0.4, 2: 1.0, 3: 0.6},
			domain.ActionBrawl:       {1: 0.2, 2: 0.6, 3: 1.0},
		},
		Risky:             defaultRisky,
		LateMinute:        85,
		TrailingBonus:     1.2,
		LowStamina:        15,
		LowStaminaPenalty: 0.2,
	},
}
