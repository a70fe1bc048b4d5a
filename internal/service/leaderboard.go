package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
)

// Leaderboard kinds.
const (
	LeaderboardPoints     = "points"
	LeaderboardChallenges = "challenges"
)

// GetFriendsLeaderboard ranks the current friends by randomized points or
// challenge counts. The scores are display data only; period is echoed back
// and does not filter anything.
func (s *FriendServiceImpl) GetFriendsLeaderboard(ctx context.Context, kind, period string) ([]model.LeaderboardEntry, error) {
	var key func(model.LeaderboardEntry) int
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", LeaderboardPoints:
		key = func(e model.LeaderboardEntry) int { return e.Points }
	case LeaderboardChallenges:
		key = func(e model.LeaderboardEntry) int { return e.Challenges }
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard type %q", errs.ErrInvalidArgument, kind)
	}

	friends := s.store.RetrieveFriends(ctx)
	entries := make([]model.LeaderboardEntry, 0, len(friends))
	s.mu.Lock()
	for _, f := range friends {
		entries = append(entries, model.LeaderboardEntry{
			User:       f.Friend,
			Points:     s.rnd.IntN(maxBotPoints + 1),
			Challenges: s.rnd.IntN(50),
			IsFriend:   true,
			Period:     period,
		})
	}
	s.mu.Unlock()

	slices.SortStableFunc(entries, func(a, b model.LeaderboardEntry) int { return cmp.Compare(key(b), key(a)) })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// ShareChallenge returns an acknowledgement for sharing challengeID with
// friendIDs. Nothing is stored.
func (s *FriendServiceImpl) ShareChallenge(_ context.Context, challengeID string, friendIDs []string) (model.ShareAck, error) {
	if strings.TrimSpace(challengeID) == "" {
		return model.ShareAck{}, fmt.Errorf("%w: challenge id required", errs.ErrInvalidArgument)
	}
	shared := make([]string, 0, len(friendIDs))
	for _, id := range friendIDs {
		if id = strings.TrimSpace(id); id != "" {
			shared = append(shared, id)
		}
	}
	if len(shared) == 0 {
		return model.ShareAck{}, fmt.Errorf("%w: at least one friend id required", errs.ErrInvalidArgument)
	}
	return model.ShareAck{
		Success:     true,
		ChallengeID: challengeID,
		SharedWith:  shared,
		SharedAt:    s.now(),
	}, nil
}
