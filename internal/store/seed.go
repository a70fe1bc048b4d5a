package store

import "github.com/and161185/goph-social/internal/model"

// sampleUsers is the user set written by Initialize on first use. Ids are
// assigned at seeding time.
var sampleUsers = []model.User{
	{Username: "alex_runs", Name: "Alex Rivera", Bio: "Morning runner and coffee enthusiast", Points: 1200, Level: 4,
		Stats: model.UserStats{ChallengesCompleted: 14, CurrentStreak: 3, LongestStreak: 11, Badges: 5}},
	{Username: "maya.lifts", Name: "Maya Chen", Bio: "Strength training, one rep at a time", Points: 2500, Level: 6,
		Stats: model.UserStats{ChallengesCompleted: 27, CurrentStreak: 9, LongestStreak: 21, Badges: 8}},
	{Username: "sam_yoga", Name: "Sam Patel", Bio: "Yoga and mindful living", Points: 640, Level: 3,
		Stats: model.UserStats{ChallengesCompleted: 6, CurrentStreak: 1, LongestStreak: 4, Badges: 2}},
	{Username: "jordan.bikes", Name: "Jordan Lee", Bio: "Weekend cyclist chasing hills", Points: 90, Level: 1,
		Stats: model.UserStats{ChallengesCompleted: 1, CurrentStreak: 0, LongestStreak: 1, Badges: 0}},
}

func (s *FriendStore) seedUsers() ([]model.User, error) {
	out := make([]model.User, 0, len(sampleUsers))
	for _, u := range sampleUsers {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		u.ID = id
		out = append(out, u)
	}
	return out, nil
}
