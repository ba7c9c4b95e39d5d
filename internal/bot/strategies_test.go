package bot

import (
	"testing"

	"kickoff/internal/domain"
)

func situation(action domain.Action, team domain.Team, id int64) Situation {
	return Situation{
		Event:   domain.TimelineEvent{EventID: id, Minute: 30, Action: action, Team: team, PlayerParticipates: true},
		Choices: domain.ChoicesFor(action, team),
		Minute:  30,
		Stamina: 100,
	}
}

func TestTunedBotByPlayerType(t *testing.T) {
	tests := []struct {
		name       string
		playerType string
		setup      func(*Situation)
		want       int
	}{
		{name: "striker shoots", playerType: "striker", want: 3},
		{name: "playmaker passes", playerType: "playmaker", want: 1},
		{name: "defender keeps it simple", playerType: "defender", want: 1},
		{
			name:       "defender gambles when trailing late",
			playerType: "defender",
			setup: func(s *Situation) {
				s.Minute = 85
				s.Score = domain.Score{Mine: 0, Opponent: 1}
			},
			want: 3,
		},
		{
			name:       "trailing early changes nothing",
			playerType: "defender",
			setup: func(s *Situation) {
				s.Minute = 20
				s.Score = domain.Score{Mine: 0, Opponent: 1}
			},
			want: 1,
		},
		{
			name:       "tired defender avoids the tackle",
			playerType: "defender",
			setup: func(s *Situation) {
				*s = situation(domain.ActionOpenDefense, domain.TeamMine, 4)
				s.Stamina = 10
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := situation(domain.ActionOpenPlay, domain.TeamMine, 3)
			if tt.setup != nil {
				tt.setup(&s)
			}
			move, err := NewStrategy(tt.playerType).Decide(s)
			if err != nil {
				t.Fatalf("Decide returned error: %v", err)
			}
			if move.Code != tt.want {
				t.Fatalf("code = %d (%s), want %d", move.Code, move.Label, tt.want)
			}
		})
	}
}

func TestTunedBotRotatesUnweightedChoices(t *testing.T) {
	brain := NewStrategy("striker")
	seen := make(map[int]bool)
	for id := int64(0); id < 3; id++ {
		move, err := brain.Decide(situation(domain.ActionPenalty, domain.TeamMine, id))
		if err != nil {
			t.Fatalf("Decide returned error: %v", err)
		}
		if want := int(id) + 1; move.Code != want {
			t.Fatalf("event %d: code = %d, want %d", id, move.Code, want)
		}
		seen[move.Code] = true
	}
	if len(seen) != 3 {
		t.Fatalf("penalty directions = %v, want all three", seen)
	}
}

func TestUnknownPlayerTypeUsesNeutralBot(t *testing.T) {
	brain := NewStrategy("mascot")
	if _, ok := brain.(*NeutralBot); !ok {
		t.Fatalf("strategy = %T, want *NeutralBot", brain)
	}
	move, err := brain.Decide(situation(domain.ActionFreeKick, domain.TeamOpponent, 1))
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if move.Label != "Build the wall" {
		t.Fatalf("label = %q, want the first offered choice", move.Label)
	}
}
