package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/repository/memory"
	"github.com/and161185/goph-social/internal/store"
)

type fakeFriendStorage struct {
	friends []model.Friendship

	acceptInID string
	acceptErr  error
	rejectInID string
	rejectErr  error

	addUserCalls int
	addUserErrAt map[int]error
	saveErr      error
	saved        []model.User

	formatInPage, formatInLimit int
	formatInSort                string
}

var _ FriendStorage = (*fakeFriendStorage)(nil)

func (f *fakeFriendStorage) Initialize(context.Context) error { return nil }
func (f *fakeFriendStorage) Reset(context.Context) error      { return nil }
func (f *fakeFriendStorage) SearchUsers(context.Context, string) []model.User {
	return []model.User{}
}
func (f *fakeFriendStorage) AddUser(_ context.Context, u model.User) (model.User, error) {
	f.addUserCalls++
	if err := f.addUserErrAt[f.addUserCalls]; err != nil {
		return model.User{}, err
	}
	u.ID = fmt.Sprintf("bot-%d", f.addUserCalls)
	return u, nil
}
func (f *fakeFriendStorage) RetrieveFriends(context.Context) []model.Friendship {
	return append([]model.Friendship(nil), f.friends...)
}
func (f *fakeFriendStorage) SaveFriend(_ context.Context, u model.User) ([]model.Friendship, error) {
	if f.saveErr != nil {
		return []model.Friendship{}, f.saveErr
	}
	f.saved = append(f.saved, u)
	f.friends = append(f.friends, model.Friendship{FriendshipID: "fs-" + u.ID, Friend: u})
	return f.friends, nil
}
func (f *fakeFriendStorage) RemoveFriendByID(context.Context, string) ([]model.Friendship, error) {
	return f.friends, nil
}
func (f *fakeFriendStorage) RetrievePendingRequests(context.Context) []model.PendingRequest {
	return []model.PendingRequest{}
}
func (f *fakeFriendStorage) SendRequest(_ context.Context, userID string) (model.PendingRequest, error) {
	return model.PendingRequest{ID: "req-" + userID}, nil
}
func (f *fakeFriendStorage) AcceptRequest(_ context.Context, id string) error {
	f.acceptInID = id
	return f.acceptErr
}
func (f *fakeFriendStorage) RejectRequest(_ context.Context, id string) error {
	f.rejectInID = id
	return f.rejectErr
}
func (f *fakeFriendStorage) FormatFriendsData(_ context.Context, page, limit int, sortBy string) (model.FriendsPage, error) {
	f.formatInPage, f.formatInLimit, f.formatInSort = page, limit, sortBy
	return model.FriendsPage{Friends: f.friends}, nil
}

func newTestFriendService(st FriendStorage) *FriendServiceImpl {
	return NewFriendService(st, rand.New(rand.NewPCG(1, 2)), nil)
}

func TestFriendService_RespondAccepted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := &fakeFriendStorage{}
	s := newTestFriendService(st)

	res, err := s.RespondToFriendRequest(ctx, "r1", "accepted")
	if err != nil || !res.Success {
		t.Fatalf("accept: res=%+v err=%v", res, err)
	}
	if st.acceptInID != "r1" || st.rejectInID != "" {
		t.Fatalf("accept not delegated: %+v", st)
	}
}

func TestFriendService_RespondNotFoundIsFailureFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := &fakeFriendStorage{acceptErr: fmt.Errorf("request r1: %w", errs.ErrNotFound)}
	s := newTestFriendService(st)

	res, err := s.RespondToFriendRequest(ctx, "r1", ActionAccepted)
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if res.Success {
		t.Fatalf("want success=false")
	}
}

func TestFriendService_RespondRejectedAndErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")
	st := &fakeFriendStorage{rejectErr: boom}
	s := newTestFriendService(st)

	if _, err := s.RespondToFriendRequest(ctx, "r2", "REJECTED"); !errors.Is(err, boom) {
		t.Fatalf("want storage error passed through, got %v", err)
	}
	if st.rejectInID != "r2" {
		t.Fatalf("reject not delegated")
	}

	st.rejectErr = nil
	res, err := s.RespondToFriendRequest(ctx, "r2", ActionRejected)
	if err != nil || !res.Success {
		t.Fatalf("reject: res=%+v err=%v", res, err)
	}

	if _, err := s.RespondToFriendRequest(ctx, "r2", "maybe"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want invalid argument on unknown action, got %v", err)
	}
}

func TestFriendService_GetFriendsDelegates(t *testing.T) {
	t.Parallel()
	st := &fakeFriendStorage{}
	s := newTestFriendService(st)
	if _, err := s.GetFriends(context.Background(), 2, 5, "name"); err != nil {
		t.Fatalf("GetFriends: %v", err)
	}
	if st.formatInPage != 2 || st.formatInLimit != 5 || st.formatInSort != "name" {
		t.Fatalf("args not forwarded: %+v", st)
	}
}

func TestFriendService_AddBotFriends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := &fakeFriendStorage{addUserErrAt: map[int]error{2: errors.New("flaky")}}
	s := newTestFriendService(st)

	got, err := s.AddBotFriends(ctx, 3)
	if err != nil {
		t.Fatalf("AddBotFriends: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 bots, got %d", len(got))
	}
	if st.addUserCalls != 4 {
		t.Fatalf("want failed insert skipped and generation stopped at count, calls=%d", st.addUserCalls)
	}
	if len(st.saved) != 3 || st.saved[0].ID != "bot-1" || st.saved[1].ID != "bot-3" {
		t.Fatalf("unexpected saved friends: %+v", st.saved)
	}
	if !s.HasAnyFriends(ctx) {
		t.Fatalf("want friends after adding bots")
	}

	if _, err := s.AddBotFriends(ctx, 0); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want invalid argument for zero count, got %v", err)
	}
}

func TestFriendService_AddBotFriendsAllFail(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	st := &fakeFriendStorage{saveErr: boom}
	s := newTestFriendService(st)

	got, err := s.AddBotFriends(context.Background(), 2)
	if !errors.Is(err, boom) || got != nil {
		t.Fatalf("want storage error, got %v / %v", got, err)
	}
	if st.addUserCalls != 4 {
		t.Fatalf("want all 2x candidates tried, calls=%d", st.addUserCalls)
	}
}

// Every bot reported as added must be a distinct friend in the real store.
func TestFriendService_AddBotFriendsAllPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for seed := uint64(1); seed <= 5; seed++ {
		st := store.NewFriendStore(memory.New(), store.Options{})
		s := NewFriendService(st, rand.New(rand.NewPCG(seed, seed)), nil)
		if err := s.Initialize(ctx); err != nil {
			t.Fatalf("Initialize: %v", err)
		}

		got, err := s.AddBotFriends(ctx, 30)
		if err != nil {
			t.Fatalf("seed %d: AddBotFriends: %v", seed, err)
		}
		if len(got) != 30 {
			t.Fatalf("seed %d: want 30 bots, got %d", seed, len(got))
		}
		friends := st.RetrieveFriends(ctx)
		if len(friends) != len(got) {
			t.Fatalf("seed %d: %d bots reported, %d friends stored", seed, len(got), len(friends))
		}
		for _, u := range got {
			if !slices.ContainsFunc(friends, func(f model.Friendship) bool { return f.Friend.ID == u.ID }) {
				t.Fatalf("seed %d: bot %s (%s) is not a friend", seed, u.ID, u.Name)
			}
		}
	}
}

func TestFriendService_AddBotFriendsSkipsTakenName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Same seed as the service under test, so the first candidate is known.
	preview, err := newTestFriendService(&fakeFriendStorage{}).GenerateBotUsers(1)
	if err != nil {
		t.Fatalf("GenerateBotUsers: %v", err)
	}
	st := store.NewFriendStore(memory.New(), store.Options{})
	if _, err := st.SaveFriend(ctx, model.User{ID: "orig", Name: strings.ToUpper(preview[0].Name)}); err != nil {
		t.Fatalf("SaveFriend: %v", err)
	}
	s := newTestFriendService(st)

	got, err := s.AddBotFriends(ctx, 3)
	if err != nil {
		t.Fatalf("AddBotFriends: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 bots, got %d", len(got))
	}
	friends := st.RetrieveFriends(ctx)
	if len(friends) != 4 {
		t.Fatalf("want original friend plus 3 bots, got %+v", friends)
	}
	if friends[0].Friend.ID != "orig" {
		t.Fatalf("original friend replaced: %+v", friends[0])
	}
	for _, u := range got {
		if strings.EqualFold(u.Name, preview[0].Name) {
			t.Fatalf("bot with taken name %q was added", u.Name)
		}
	}
	for _, u := range st.SearchUsers(ctx, preview[0].Name) {
		if strings.EqualFold(u.Name, preview[0].Name) {
			t.Fatalf("skipped candidate was still stored as user %s", u.ID)
		}
	}
}

func TestFriendService_HasAnyFriends(t *testing.T) {
	t.Parallel()
	st := &fakeFriendStorage{}
	s := newTestFriendService(st)
	if s.HasAnyFriends(context.Background()) {
		t.Fatalf("want no friends")
	}
	st.friends = []model.Friendship{{FriendshipID: "f1", Friend: model.User{ID: "u1"}}}
	if !s.HasAnyFriends(context.Background()) {
		t.Fatalf("want friends")
	}
}

// The request/accept round trip over the real store.
func TestFriendService_RequestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewFriendStore(memory.New(), store.Options{})
	s := newTestFriendService(st)
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	bot, err := st.AddUser(ctx, model.User{Username: "bot9", Name: "Bot Nine"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	req, err := s.SendFriendRequest(ctx, bot.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest: %v", err)
	}
	if s.HasAnyFriends(ctx) {
		t.Fatalf("no friends expected before accept")
	}

	res, err := s.RespondToFriendRequest(ctx, req.ID, ActionAccepted)
	if err != nil || !res.Success {
		t.Fatalf("accept: res=%+v err=%v", res, err)
	}
	if !s.HasAnyFriends(ctx) {
		t.Fatalf("want friend after accept")
	}
	if got := s.GetPendingRequests(ctx); len(got) != 0 {
		t.Fatalf("want no pending requests, got %+v", got)
	}

	res, err = s.RespondToFriendRequest(ctx, req.ID, ActionAccepted)
	if err != nil || res.Success {
		t.Fatalf("second accept: res=%+v err=%v", res, err)
	}

	if _, err := s.SendFriendRequest(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want not found for unknown user, got %v", err)
	}
}
