// Package service contains the application services consumed by clients:
// friendships with synthetic bot data, and direct messaging.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/store"
)

// Respond actions accepted by RespondToFriendRequest.
const (
	ActionAccepted = "accepted"
	ActionRejected = "rejected"
)

// FriendStorage is the subset of store.FriendStore the service depends on.
type FriendStorage interface {
	Initialize(ctx context.Context) error
	Reset(ctx context.Context) error
	SearchUsers(ctx context.Context, query string) []model.User
	AddUser(ctx context.Context, u model.User) (model.User, error)
	RetrieveFriends(ctx context.Context) []model.Friendship
	SaveFriend(ctx context.Context, candidate model.User) ([]model.Friendship, error)
	RemoveFriendByID(ctx context.Context, friendshipID string) ([]model.Friendship, error)
	RetrievePendingRequests(ctx context.Context) []model.PendingRequest
	SendRequest(ctx context.Context, userID string) (model.PendingRequest, error)
	AcceptRequest(ctx context.Context, requestID string) error
	RejectRequest(ctx context.Context, requestID string) error
	FormatFriendsData(ctx context.Context, page, limit int, sortBy string) (model.FriendsPage, error)
}

var _ FriendStorage = (*store.FriendStore)(nil)

// FriendService defines the friendship call surface.
type FriendService interface {
	// Initialize prepares storage on first use.
	Initialize(ctx context.Context) error
	// SearchUsers finds users by name or username.
	SearchUsers(ctx context.Context, query string) []model.User
	// SendFriendRequest records an incoming request from userID.
	SendFriendRequest(ctx context.Context, userID string) (model.PendingRequest, error)
	// RespondToFriendRequest accepts or rejects a pending request.
	RespondToFriendRequest(ctx context.Context, requestID, action string) (model.RespondResult, error)
	// GetFriends returns a sorted page of friends.
	GetFriends(ctx context.Context, page, limit int, sortBy string) (model.FriendsPage, error)
	// GetPendingRequests lists unresolved requests.
	GetPendingRequests(ctx context.Context) []model.PendingRequest
	// RemoveFriend drops a friendship and returns the remaining ones.
	RemoveFriend(ctx context.Context, friendshipID string) ([]model.Friendship, error)
	// AddBotFriends inserts count generated users and befriends them.
	AddBotFriends(ctx context.Context, count int) ([]model.User, error)
	// HasAnyFriends reports whether at least one friendship exists.
	HasAnyFriends(ctx context.Context) bool
	// GenerateBotUsers builds count synthetic users without storing them.
	GenerateBotUsers(count int) ([]model.User, error)
	// GetFriendsLeaderboard ranks friends with synthetic scores.
	GetFriendsLeaderboard(ctx context.Context, kind, period string) ([]model.LeaderboardEntry, error)
	// ShareChallenge acknowledges a share without persisting it.
	ShareChallenge(ctx context.Context, challengeID string, friendIDs []string) (model.ShareAck, error)
}

type FriendServiceImpl struct {
	store FriendStorage
	log   *zap.Logger
	now   func() time.Time

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewFriendService constructs FriendService. A nil rnd gets a randomly seeded
// source; a nil log disables logging.
func NewFriendService(st FriendStorage, rnd *rand.Rand, log *zap.Logger) *FriendServiceImpl {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FriendServiceImpl{
		store: st,
		log:   log.Named("friend-service"),
		now:   func() time.Time { return time.Now().UTC() },
		rnd:   rnd,
	}
}

func (s *FriendServiceImpl) Initialize(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		s.log.Error("initialize", zap.Error(err))
		return err
	}
	return nil
}

// Reset drops every friendship collection.
func (s *FriendServiceImpl) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

func (s *FriendServiceImpl) SearchUsers(ctx context.Context, query string) []model.User {
	return s.store.SearchUsers(ctx, query)
}

// AddUser stores u under a fresh id. A zero level is derived from points.
func (s *FriendServiceImpl) AddUser(ctx context.Context, u model.User) (model.User, error) {
	if strings.TrimSpace(u.Username) == "" && strings.TrimSpace(u.Name) == "" {
		return model.User{}, fmt.Errorf("%w: username or name required", errs.ErrInvalidArgument)
	}
	if u.Level == 0 {
		u.Level = LevelForPoints(u.Points)
	}
	return s.store.AddUser(ctx, u)
}

func (s *FriendServiceImpl) SendFriendRequest(ctx context.Context, userID string) (model.PendingRequest, error) {
	req, err := s.store.SendRequest(ctx, userID)
	if err != nil {
		s.log.Warn("send friend request", zap.String("user_id", userID), zap.Error(err))
		return model.PendingRequest{}, err
	}
	return req, nil
}

// RespondToFriendRequest applies action to the request. A request that no
// longer exists is reported as {success:false} rather than an error.
func (s *FriendServiceImpl) RespondToFriendRequest(ctx context.Context, requestID, action string) (model.RespondResult, error) {
	var err error
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionAccepted:
		err = s.store.AcceptRequest(ctx, requestID)
	case ActionRejected:
		err = s.store.RejectRequest(ctx, requestID)
	default:
		return model.RespondResult{}, fmt.Errorf("%w: unknown action %q", errs.ErrInvalidArgument, action)
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return model.RespondResult{Success: false}, nil
	case err != nil:
		s.log.Warn("respond to friend request", zap.String("request_id", requestID), zap.String("action", action), zap.Error(err))
		return model.RespondResult{}, err
	}
	return model.RespondResult{Success: true}, nil
}

func (s *FriendServiceImpl) GetFriends(ctx context.Context, page, limit int, sortBy string) (model.FriendsPage, error) {
	return s.store.FormatFriendsData(ctx, page, limit, sortBy)
}

func (s *FriendServiceImpl) GetPendingRequests(ctx context.Context) []model.PendingRequest {
	return s.store.RetrievePendingRequests(ctx)
}

func (s *FriendServiceImpl) RemoveFriend(ctx context.Context, friendshipID string) ([]model.Friendship, error) {
	list, err := s.store.RemoveFriendByID(ctx, friendshipID)
	if err != nil {
		s.log.Warn("remove friend", zap.String("friendship_id", friendshipID), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// AddBotFriends generates twice as many candidates as requested, stores each
// and befriends it, stopping once count friends were added. Candidates whose
// display name is already taken by a friend are skipped before they are
// stored, since befriending them would merge into the existing friendship.
// Per-candidate storage failures are logged and skipped; the call fails only
// if nothing could be added.
func (s *FriendServiceImpl) AddBotFriends(ctx context.Context, count int) ([]model.User, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", errs.ErrInvalidArgument)
	}
	candidates, err := s.GenerateBotUsers(2 * count)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool)
	for _, f := range s.store.RetrieveFriends(ctx) {
		taken[botNameKey(f.Friend)] = true
	}

	added := make([]model.User, 0, count)
	var lastErr error
	for _, c := range candidates {
		if len(added) == count {
			break
		}
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if taken[botNameKey(c)] {
			s.log.Debug("bot name taken", zap.String("name", c.Name))
			continue
		}
		u, err := s.store.AddUser(ctx, c)
		if err != nil {
			lastErr = err
			continue
		}
		list, err := s.store.SaveFriend(ctx, u)
		if err != nil {
			s.log.Warn("befriend bot", zap.String("user_id", u.ID), zap.Error(err))
			lastErr = err
			continue
		}
		if !slices.ContainsFunc(list, func(f model.Friendship) bool { return f.Friend.ID == u.ID }) {
			s.log.Warn("bot merged into existing friend", zap.String("user_id", u.ID))
			continue
		}
		taken[botNameKey(u)] = true
		added = append(added, u)
	}
	if len(added) == 0 && lastErr != nil {
		return nil, lastErr
	}
	s.log.Debug("bot friends added", zap.Int("requested", count), zap.Int("added", len(added)))
	return added, nil
}

func (s *FriendServiceImpl) HasAnyFriends(ctx context.Context) bool {
	return len(s.store.RetrieveFriends(ctx)) > 0
}
