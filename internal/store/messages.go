package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aquilax/truncate"
	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/repository"
)

// PreviewLen is the maximum rune length of Conversation.LastMessagePreview.
const PreviewLen = 50

// MessageStore manages conversations and their messages for the local user.
type MessageStore struct {
	conversations collection[model.Conversation]
	messages      collection[model.Message]

	log      *zap.Logger
	now      func() time.Time
	newID    func() (string, error)
	localID  string
	attempts int
}

// NewMessageStore constructs a MessageStore over blobs.
func NewMessageStore(blobs repository.BlobStore, opts Options) *MessageStore {
	o := opts.withDefaults()
	return &MessageStore{
		conversations: newCollection[model.Conversation](blobs, o, ConversationsKey),
		messages:      newCollection[model.Message](blobs, o, MessagesKey),
		log:           o.Logger.Named("messages"),
		now:           o.Now,
		newID:         o.NewID,
		localID:       o.LocalUserID,
		attempts:      o.Attempts,
	}
}

// LocalUserID is the sender id used for outgoing messages.
func (s *MessageStore) LocalUserID() string { return s.localID }

// Initialize creates empty conversation and message collections if absent.
func (s *MessageStore) Initialize(ctx context.Context) error {
	if _, err := s.conversations.ensure(ctx, emptySeed[model.Conversation]); err != nil {
		return err
	}
	_, err := s.messages.ensure(ctx, emptySeed[model.Message])
	return err
}

// Reset drops the messaging collections.
func (s *MessageStore) Reset(ctx context.Context) error {
	if err := s.conversations.drop(ctx); err != nil {
		return err
	}
	return s.messages.drop(ctx)
}

// GetOrCreateConversation returns the conversation with counterpartID,
// creating it when none exists. If another writer creates one concurrently the
// version check fails, the lookup reruns and the first writer's conversation wins.
func (s *MessageStore) GetOrCreateConversation(ctx context.Context, counterpartID string) (model.Conversation, error) {
	counterpartID = strings.TrimSpace(counterpartID)
	if counterpartID == "" {
		return model.Conversation{}, invalid("counterpart id")
	}
	if counterpartID == s.localID {
		return model.Conversation{}, fmt.Errorf("%w: cannot open a conversation with yourself", errs.ErrInvalidArgument)
	}

	var result model.Conversation
	_, err := s.conversations.update(ctx, func(list []model.Conversation) ([]model.Conversation, error) {
		for _, c := range list {
			if c.HasParticipant(counterpartID) {
				result = c
				return nil, errNoWrite
			}
		}
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		now := s.now()
		result = model.Conversation{
			ID:            id,
			Participants:  []string{s.localID, counterpartID},
			LastMessageAt: now,
			UnreadCount:   0,
			CreatedAt:     now,
		}
		return append(list, result), nil
	})
	if err != nil {
		return model.Conversation{}, err
	}
	return result, nil
}

// GetConversation returns the conversation with id or errs.ErrNotFound.
func (s *MessageStore) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	list, _, err := s.conversations.load(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Conversation{}, fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
}

// GetMessages returns up to limit messages of the conversation, newest first.
// When before is set only messages created strictly earlier are returned.
// Storage failures degrade to an empty result.
func (s *MessageStore) GetMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, invalid("conversation id")
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	all, _, err := s.messages.load(ctx)
	if err != nil {
		s.log.Warn("get messages", zap.String("conversation", conversationID), zap.Error(err))
		return []model.Message{}, nil
	}

	out := make([]model.Message, 0)
	for _, m := range all {
		if m.ConversationID != conversationID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b model.Message) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SendMessage appends an outgoing message and refreshes the conversation's
// last message time and preview. Once the message is stored it is returned
// even if the conversation refresh fails; that failure is only logged.
func (s *MessageStore) SendMessage(ctx context.Context, conversationID, content string) (model.Message, error) {
	return s.appendMessage(ctx, conversationID, s.localID, content)
}

// ReceiveMessage appends a message from senderID and bumps the unread count.
// An empty senderID means the conversation's counterpart.
func (s *MessageStore) ReceiveMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	if senderID == s.localID {
		return model.Message{}, fmt.Errorf("%w: incoming sender must not be the local user", errs.ErrInvalidArgument)
	}
	return s.appendMessage(ctx, conversationID, senderID, content)
}

func (s *MessageStore) appendMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return model.Message{}, invalid("conversation id")
	}
	if strings.TrimSpace(content) == "" {
		return model.Message{}, invalid("content")
	}
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return model.Message{}, err
	}
	incoming := senderID != s.localID
	if incoming && senderID == "" {
		senderID = counterpart(conv, s.localID)
	}

	var msg model.Message
	_, err = s.messages.update(ctx, func(list []model.Message) ([]model.Message, error) {
		id, err := s.freshMessageID(list)
		if err != nil {
			return nil, err
		}
		msg = model.Message{
			ID:             id,
			ConversationID: conversationID,
			Content:        content,
			SenderID:       senderID,
			CreatedAt:      s.now(),
			Read:           false,
		}
		return append(list, msg), nil
	})
	if err != nil {
		return model.Message{}, err
	}

	preview := truncate.Truncate(strings.TrimSpace(content), PreviewLen, "", truncate.PositionEnd)
	_, err = s.conversations.update(ctx, func(list []model.Conversation) ([]model.Conversation, error) {
		idx := slices.IndexFunc(list, func(c model.Conversation) bool { return c.ID == conversationID })
		if idx < 0 {
			return nil, errNoWrite
		}
		list[idx].LastMessageAt = msg.CreatedAt
		list[idx].LastMessagePreview = preview
		if incoming {
			list[idx].UnreadCount++
		}
		return list, nil
	})
	if err != nil {
		// The message is already stored; only the preview and counters lag.
		s.log.Warn("update conversation after message",
			zap.String("conversation", conversationID),
			zap.String("message", msg.ID),
			zap.Error(err))
	}
	return msg, nil
}

// freshMessageID generates an id not yet used in list, giving up after the
// configured number of attempts.
func (s *MessageStore) freshMessageID(list []model.Message) (string, error) {
	used := make(map[string]bool, len(list))
	for _, m := range list {
		used[m.ID] = true
	}
	for attempt := 0; attempt < s.attempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if !used[id] {
			return id, nil
		}
		s.log.Warn("message id collision", zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("message id: %w after %d attempts", errs.ErrResourceExhausted, s.attempts)
}

// MarkAsRead resets the unread count and flags incoming messages as read.
// It reports false when the conversation does not exist.
func (s *MessageStore) MarkAsRead(ctx context.Context, conversationID string) (bool, error) {
	if strings.TrimSpace(conversationID) == "" {
		return false, invalid("conversation id")
	}
	found := false
	_, err := s.conversations.update(ctx, func(list []model.Conversation) ([]model.Conversation, error) {
		found = false
		idx := slices.IndexFunc(list, func(c model.Conversation) bool { return c.ID == conversationID })
		if idx < 0 {
			return nil, errNoWrite
		}
		found = true
		if list[idx].UnreadCount == 0 {
			return nil, errNoWrite
		}
		list[idx].UnreadCount = 0
		return list, nil
	})
	if err != nil || !found {
		return false, err
	}

	_, err = s.messages.update(ctx, func(list []model.Message) ([]model.Message, error) {
		changed := false
		for i := range list {
			m := &list[i]
			if m.ConversationID == conversationID && m.SenderID != s.localID && !m.Read {
				m.Read = true
				changed = true
			}
		}
		if !changed {
			return nil, errNoWrite
		}
		return list, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetConversations returns one page of conversations, most recent activity first.
// Storage failures degrade to an empty page.
func (s *MessageStore) GetConversations(ctx context.Context, page, limit int) model.ConversationsPage {
	page, limit = normalizePage(page, limit)
	list, _, err := s.conversations.load(ctx)
	if err != nil {
		s.log.Warn("get conversations", zap.Error(err))
		list = []model.Conversation{}
	}
	slices.SortStableFunc(list, func(a, b model.Conversation) int { return b.LastMessageAt.Compare(a.LastMessageAt) })
	return model.ConversationsPage{
		Conversations: pageSlice(list, page, limit),
		Pagination:    model.NewPagination(len(list), page, limit),
	}
}

func counterpart(c model.Conversation, localID string) string {
	for _, p := range c.Participants {
		if p != localID {
			return p
		}
	}
	return ""
}
