package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"kickoff/internal/domain"
	"kickoff/internal/ports"
)

const (
	defaultStamina = 100
)

var playerTypes = []string{"striker", "playmaker", "defender", "goalkeeper"}

// Result captures non-fatal onboarding outcomes.
type Result struct {
	Profile domain.PlayerProfile
	// ProfileUpdateErr is set when the profile could not be written.
	ProfileUpdateErr error
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service.
// accounts must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		rng:      rng,
	}
}

// OnboardNewUser gives a freshly created account its default player profile:
// a display name, a club name, a player type and full stamina.
// A failed profile write is reported in Result and does not fail onboarding.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}
	if userID == "" {
		return Result{}, fmt.Errorf("user id is required")
	}

	profile := domain.PlayerProfile{
		UserID:     userID,
		Name:       s.generateFriendlyName(),
		PlayerType: playerTypes[s.rng.Intn(len(playerTypes))],
		Stamina:    defaultStamina,
		TeamName:   s.generateTeamName(),
	}

	result := Result{Profile: profile}
	if err := s.accounts.UpdateProfile(ctx, profile); err != nil {
		result.ProfileUpdateErr = err
	}
	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}

func (s *Service) generateTeamName() string {
	towns := []string{"Harbour", "Millbrook", "Ashford", "Kingsbridge", "Eastvale", "Redcliff", "Northgate", "Oakham"}
	suffixes := []string{"FC", "United", "Athletic", "Rovers", "Town", "Wanderers"}

	return towns[s.rng.Intn(len(towns))] + " " + suffixes[s.rng.Intn(len(suffixes))]
}
