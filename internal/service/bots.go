package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
)

const (
	maxBotPoints = 5000
	// nameRetries bounds redraws for a display name already used in the batch.
	nameRetries = 50
)

var (
	botFirstNames = []string{"Avery", "Blake", "Casey", "Dana", "Eli", "Finley", "Gray", "Harper",
		"Indy", "Jules", "Kai", "Logan", "Morgan", "Noel", "Oakley", "Parker", "Quinn", "Reese",
		"Sky", "Taylor"}
	botLastNames = []string{"Stone", "Rivers", "Brooks", "Hayes", "Wells", "Frost", "Lane",
		"Moss", "Cruz", "Park"}
	botInterests = []string{"running", "cycling", "yoga", "climbing", "swimming", "hiking",
		"lifting", "dancing", "rowing", "boxing"}
	botBios = []string{
		"Hooked on %s and weekend challenges",
		"Trying to get better at %s every day",
		"%s enthusiast, streak chaser",
		"New to %s, here for the badges",
		"Coach by day, %s by night",
	}
)

// LevelForPoints returns floor(sqrt(points/100)) + 1.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return int(math.Floor(math.Sqrt(float64(points)/100))) + 1
}

// GenerateBotUsers returns count synthetic users with randomized profile and
// stats. Ids are left empty; they are assigned when the user is stored.
// Display names are unique within a batch while the name pool allows it.
func (s *FriendServiceImpl) GenerateBotUsers(count int) ([]model.User, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative", errs.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, count)
	seen := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		u := s.botUser()
		for try := 0; seen[botNameKey(u)] && try < nameRetries; try++ {
			u = s.botUser()
		}
		seen[botNameKey(u)] = true
		out = append(out, u)
	}
	return out, nil
}

// botNameKey matches the case-insensitive display name the friend store
// merges on.
func botNameKey(u model.User) string { return strings.ToLower(u.DisplayName()) }

// botUser must be called with s.mu held.
func (s *FriendServiceImpl) botUser() model.User {
	first := pick(s, botFirstNames)
	last := pick(s, botLastNames)
	interest := pick(s, botInterests)
	points := s.rnd.IntN(maxBotPoints + 1)

	completed := s.rnd.IntN(points/100 + 1)
	longest := s.rnd.IntN(30)
	current := 0
	if longest > 0 {
		current = s.rnd.IntN(longest + 1)
	}

	bio := fmt.Sprintf(pick(s, botBios), interest)
	return model.User{
		Username: fmt.Sprintf("%s_%s%d", strings.ToLower(first), interest, s.rnd.IntN(1000)),
		Name:     first + " " + last,
		Bio:      strings.ToUpper(bio[:1]) + bio[1:],
		Points:   points,
		Level:    LevelForPoints(points),
		Stats: model.UserStats{
			ChallengesCompleted: completed,
			CurrentStreak:       current,
			LongestStreak:       longest,
			Badges:              completed / 5,
		},
	}
}

func pick(s *FriendServiceImpl, from []string) string {
	return from[s.rnd.IntN(len(from))]
}
