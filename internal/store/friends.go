package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/repository"
)

// Friend list sort keys accepted by FormatFriendsData.
const (
	SortRecent = "recent"
	SortName   = "name"
	SortPoints = "points"
)

// FriendStore manages users, friendships and incoming friend requests.
type FriendStore struct {
	users    collection[model.User]
	friends  collection[model.Friendship]
	requests collection[model.PendingRequest]

	log   *zap.Logger
	now   func() time.Time
	newID func() (string, error)
}

// NewFriendStore constructs a FriendStore over blobs.
func NewFriendStore(blobs repository.BlobStore, opts Options) *FriendStore {
	o := opts.withDefaults()
	return &FriendStore{
		users:    newCollection[model.User](blobs, o, UsersKey),
		friends:  newCollection[model.Friendship](blobs, o, FriendsKey),
		requests: newCollection[model.PendingRequest](blobs, o, PendingRequestsKey),
		log:      o.Logger.Named("friends"),
		now:      o.Now,
		newID:    o.NewID,
	}
}

// Initialize seeds the users collection with sample users and creates empty
// friend and request collections. Existing collections are left untouched.
func (s *FriendStore) Initialize(ctx context.Context) error {
	seeded, err := s.users.ensure(ctx, s.seedUsers)
	if err != nil {
		return err
	}
	if seeded {
		s.log.Info("seeded sample users", zap.Int("count", len(sampleUsers)))
	}
	if _, err := s.friends.ensure(ctx, emptySeed[model.Friendship]); err != nil {
		return err
	}
	if _, err := s.requests.ensure(ctx, emptySeed[model.PendingRequest]); err != nil {
		return err
	}
	return nil
}

func emptySeed[T any]() ([]T, error) { return []T{}, nil }

// Reset drops the friend store collections.
func (s *FriendStore) Reset(ctx context.Context) error {
	for _, drop := range []func(context.Context) error{s.users.drop, s.friends.drop, s.requests.drop} {
		if err := drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SearchUsers matches query case-insensitively against name and username.
// A blank query returns every user. Storage failures degrade to an empty result.
func (s *FriendStore) SearchUsers(ctx context.Context, query string) []model.User {
	users, _, err := s.users.load(ctx)
	if err != nil {
		s.log.Warn("search users", zap.Error(err))
		return []model.User{}
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// GetUser returns the user with id or errs.ErrNotFound.
func (s *FriendStore) GetUser(ctx context.Context, id string) (model.User, error) {
	users, _, err := s.users.load(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
}

// AddUser assigns a fresh id to u, appends it and returns the stored user.
// Storage failures are logged and also returned; seeding callers skip the user.
func (s *FriendStore) AddUser(ctx context.Context, u model.User) (model.User, error) {
	var created model.User
	_, err := s.users.update(ctx, func(users []model.User) ([]model.User, error) {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		created = u
		created.ID = id
		return append(users, created), nil
	})
	if err != nil {
		s.log.Warn("add user", zap.String("username", u.Username), zap.Error(err))
		return model.User{}, err
	}
	return created, nil
}

// RetrieveFriends returns the friendship collection deduplicated by friend id
// and, best effort, by display name. Storage failures degrade to empty.
func (s *FriendStore) RetrieveFriends(ctx context.Context) []model.Friendship {
	list, _, err := s.friends.load(ctx)
	if err != nil {
		s.log.Warn("retrieve friends", zap.Error(err))
		return []model.Friendship{}
	}
	return dedupeFriends(list)
}

// SaveFriend adds candidate as a friend or merges it into an existing
// friendship matched by friend id, friendship id or display name. A merge bumps
// LastInteraction; a name-only match also overwrites the stored friend.
// The merged record is moved to the end of the collection.
func (s *FriendStore) SaveFriend(ctx context.Context, candidate model.User) ([]model.Friendship, error) {
	if strings.TrimSpace(candidate.ID) == "" {
		return []model.Friendship{}, invalid("friend id")
	}
	now := s.now()
	list, err := s.friends.update(ctx, func(list []model.Friendship) ([]model.Friendship, error) {
		idx, byID := matchFriend(list, candidate)
		if idx < 0 {
			id, err := s.newID()
			if err != nil {
				return nil, err
			}
			return append(list, model.Friendship{
				FriendshipID:    id,
				Friend:          candidate,
				Since:           now,
				LastInteraction: now,
			}), nil
		}

		merged := list[idx]
		merged.LastInteraction = now
		if !byID {
			merged.Friend = candidate
		}
		out := make([]model.Friendship, 0, len(list))
		for _, f := range list {
			if f.FriendshipID == merged.FriendshipID {
				continue
			}
			out = append(out, f)
		}
		return append(out, merged), nil
	})
	if err != nil {
		return []model.Friendship{}, err
	}
	return dedupeFriends(list), nil
}

// RemoveFriendByID drops the friendship with friendshipID. Unknown ids leave
// the collection unchanged.
func (s *FriendStore) RemoveFriendByID(ctx context.Context, friendshipID string) ([]model.Friendship, error) {
	if strings.TrimSpace(friendshipID) == "" {
		return []model.Friendship{}, invalid("friendship id")
	}
	list, err := s.friends.update(ctx, func(list []model.Friendship) ([]model.Friendship, error) {
		out := slices.DeleteFunc(slices.Clone(list), func(f model.Friendship) bool {
			return f.FriendshipID == friendshipID
		})
		if len(out) == len(list) {
			return nil, errNoWrite
		}
		return out, nil
	})
	if err != nil {
		return []model.Friendship{}, err
	}
	return dedupeFriends(list), nil
}

// RetrievePendingRequests returns the raw request collection.
func (s *FriendStore) RetrievePendingRequests(ctx context.Context) []model.PendingRequest {
	list, _, err := s.requests.load(ctx)
	if err != nil {
		s.log.Warn("retrieve pending requests", zap.Error(err))
		return []model.PendingRequest{}
	}
	return list
}

// SendRequest records a pending request from the user with userID. An existing
// request from the same requester is returned unchanged.
func (s *FriendStore) SendRequest(ctx context.Context, userID string) (model.PendingRequest, error) {
	if strings.TrimSpace(userID) == "" {
		return model.PendingRequest{}, invalid("user id")
	}
	requester, err := s.GetUser(ctx, userID)
	if err != nil {
		return model.PendingRequest{}, err
	}

	var result model.PendingRequest
	_, err = s.requests.update(ctx, func(list []model.PendingRequest) ([]model.PendingRequest, error) {
		for _, r := range list {
			if r.Requester.ID == userID {
				result = r
				return nil, errNoWrite
			}
		}
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		result = model.PendingRequest{
			ID:        id,
			Requester: requester,
			Status:    model.RequestStatusPending,
			CreatedAt: s.now(),
		}
		return append(list, result), nil
	})
	if err != nil {
		return model.PendingRequest{}, err
	}
	return result, nil
}

// AcceptRequest turns the request's requester into a friend and removes the
// request. A request that is already gone yields errs.ErrNotFound.
func (s *FriendStore) AcceptRequest(ctx context.Context, requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return invalid("request id")
	}
	list, _, err := s.requests.load(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(list, func(r model.PendingRequest) bool { return r.ID == requestID })
	if idx < 0 {
		return fmt.Errorf("request %s: %w", requestID, errs.ErrNotFound)
	}
	if _, err := s.SaveFriend(ctx, list[idx].Requester); err != nil {
		return err
	}
	return s.dropRequest(ctx, requestID)
}

// RejectRequest removes the request. Unknown ids are not an error.
func (s *FriendStore) RejectRequest(ctx context.Context, requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return invalid("request id")
	}
	return s.dropRequest(ctx, requestID)
}

func (s *FriendStore) dropRequest(ctx context.Context, requestID string) error {
	_, err := s.requests.update(ctx, func(list []model.PendingRequest) ([]model.PendingRequest, error) {
		out := slices.DeleteFunc(slices.Clone(list), func(r model.PendingRequest) bool { return r.ID == requestID })
		if len(out) == len(list) {
			return nil, errNoWrite
		}
		return out, nil
	})
	return err
}

// FormatFriendsData returns one page of friends after a second dedup pass keyed
// by friend id (else friendship id), ordered by sortBy.
func (s *FriendStore) FormatFriendsData(ctx context.Context, page, limit int, sortBy string) (model.FriendsPage, error) {
	cmp, err := friendOrder(sortBy)
	if err != nil {
		return model.FriendsPage{}, err
	}
	page, limit = normalizePage(page, limit)

	seen := map[string]bool{}
	unique := make([]model.Friendship, 0)
	for _, f := range s.RetrieveFriends(ctx) {
		key := f.Friend.ID
		if key == "" {
			key = f.FriendshipID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, f)
	}
	slices.SortStableFunc(unique, cmp)

	return model.FriendsPage{
		Friends:    pageSlice(unique, page, limit),
		Pagination: model.NewPagination(len(unique), page, limit),
	}, nil
}

func friendOrder(sortBy string) (func(a, b model.Friendship) int, error) {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "", SortRecent:
		return func(a, b model.Friendship) int { return b.LastInteraction.Compare(a.LastInteraction) }, nil
	case SortName:
		return func(a, b model.Friendship) int { return strings.Compare(nameKey(a.Friend), nameKey(b.Friend)) }, nil
	case SortPoints:
		return func(a, b model.Friendship) int { return cmp.Compare(b.Friend.Points, a.Friend.Points) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", errs.ErrInvalidArgument, sortBy)
	}
}

// matchFriend finds the friendship candidate merges into. byID is false when
// only the display name matched.
func matchFriend(list []model.Friendship, candidate model.User) (idx int, byID bool) {
	for i, f := range list {
		if f.Friend.ID == candidate.ID || f.FriendshipID == candidate.ID {
			return i, true
		}
	}
	if name := nameKey(candidate); name != "" {
		for i, f := range list {
			if nameKey(f.Friend) == name {
				return i, false
			}
		}
	}
	return -1, false
}

// dedupeFriends drops entries without a friend id, keeps the first entry per
// friend id and, among entries sharing a display name, keeps the one with the
// latest LastInteraction in the slot of the first.
func dedupeFriends(in []model.Friendship) []model.Friendship {
	out := make([]model.Friendship, 0, len(in))
	seenID := make(map[string]bool, len(in))
	byName := make(map[string]int, len(in))
	for _, f := range in {
		id := strings.TrimSpace(f.Friend.ID)
		if id == "" || seenID[id] {
			continue
		}
		seenID[id] = true

		name := nameKey(f.Friend)
		if name == "" {
			out = append(out, f)
			continue
		}
		if i, ok := byName[name]; ok {
			if f.LastInteraction.After(out[i].LastInteraction) {
				out[i] = f
			}
			continue
		}
		byName[name] = len(out)
		out = append(out, f)
	}
	return out
}

func nameKey(u model.User) string { return strings.ToLower(u.DisplayName()) }
