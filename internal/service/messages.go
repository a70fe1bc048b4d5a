package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/store"
)

// MessageStorage is the subset of store.MessageStore the service depends on.
type MessageStorage interface {
	Initialize(ctx context.Context) error
	Reset(ctx context.Context) error
	GetOrCreateConversation(ctx context.Context, counterpartID string) (model.Conversation, error)
	GetMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (model.Message, error)
	ReceiveMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error)
	MarkAsRead(ctx context.Context, conversationID string) (bool, error)
	GetConversations(ctx context.Context, page, limit int) model.ConversationsPage
}

var _ MessageStorage = (*store.MessageStore)(nil)

// MessageService defines the messaging call surface.
type MessageService interface {
	// Initialize prepares storage on first use.
	Initialize(ctx context.Context) error
	// GetOrCreateConversation returns the conversation with friendID.
	GetOrCreateConversation(ctx context.Context, friendID string) (model.Conversation, error)
	// GetMessages pages backwards through a conversation, newest first.
	GetMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.Message, error)
	// SendMessage appends an outgoing message.
	SendMessage(ctx context.Context, conversationID, content string) (model.Message, error)
	// ReceiveMessage appends a simulated incoming message.
	ReceiveMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error)
	// MarkAsRead clears the unread state; false if the conversation is unknown.
	MarkAsRead(ctx context.Context, conversationID string) (bool, error)
	// GetConversations returns a page of conversations by recent activity.
	GetConversations(ctx context.Context, page, limit int) model.ConversationsPage
}

type MessageServiceImpl struct {
	store MessageStorage
	log   *zap.Logger
}

// NewMessageService constructs MessageService.
func NewMessageService(st MessageStorage, log *zap.Logger) *MessageServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageServiceImpl{store: st, log: log.Named("message-service")}
}

func (s *MessageServiceImpl) Initialize(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		s.log.Error("initialize", zap.Error(err))
		return err
	}
	return nil
}

// Reset drops conversations and messages.
func (s *MessageServiceImpl) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

func (s *MessageServiceImpl) GetOrCreateConversation(ctx context.Context, friendID string) (model.Conversation, error) {
	c, err := s.store.GetOrCreateConversation(ctx, friendID)
	if err != nil {
		s.log.Warn("get or create conversation", zap.String("friend_id", friendID), zap.Error(err))
		return model.Conversation{}, err
	}
	return c, nil
}

func (s *MessageServiceImpl) GetMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.Message, error) {
	return s.store.GetMessages(ctx, conversationID, before, limit)
}

func (s *MessageServiceImpl) SendMessage(ctx context.Context, conversationID, content string) (model.Message, error) {
	m, err := s.store.SendMessage(ctx, conversationID, content)
	if err != nil {
		s.log.Warn("send message", zap.String("conversation_id", conversationID), zap.Error(err))
		return model.Message{}, err
	}
	return m, nil
}

func (s *MessageServiceImpl) ReceiveMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	m, err := s.store.ReceiveMessage(ctx, conversationID, senderID, content)
	if err != nil {
		s.log.Warn("receive message", zap.String("conversation_id", conversationID), zap.Error(err))
		return model.Message{}, err
	}
	return m, nil
}

func (s *MessageServiceImpl) MarkAsRead(ctx context.Context, conversationID string) (bool, error) {
	ok, err := s.store.MarkAsRead(ctx, conversationID)
	if err != nil {
		s.log.Warn("mark as read", zap.String("conversation_id", conversationID), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (s *MessageServiceImpl) GetConversations(ctx context.Context, page, limit int) model.ConversationsPage {
	return s.store.GetConversations(ctx, page, limit)
}
