// Package model defines domain entities used by stores and services.
// JSON tags define the persisted document layout inside the blob store.
package model

import (
	"strings"
	"time"
)

// UserStats holds gamification counters shown on a profile.
type UserStats struct {
	ChallengesCompleted int `json:"challengesCompleted"`
	CurrentStreak       int `json:"currentStreak"`
	LongestStreak       int `json:"longestStreak"`
	Badges              int `json:"badges"`
}

// User is a profile known to the local store. Username is unique by convention only.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	Bio      string    `json:"bio"`
	Points   int       `json:"points"`
	Level    int       `json:"level"`
	Stats    UserStats `json:"stats"`
}

// DisplayName returns Name, falling back to Username.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	return strings.TrimSpace(u.Username)
}

// Friendship is a one-directional "I am friends with Friend" record.
type Friendship struct {
	FriendshipID    string    `json:"friendshipId"`
	Friend          User      `json:"friend"`
	Since           time.Time `json:"since"`
	LastInteraction time.Time `json:"lastInteraction"`
}

// RequestStatusPending is the only status a stored request can have.
const RequestStatusPending = "pending"

// PendingRequest is an unresolved incoming friendship proposal.
type PendingRequest struct {
	ID        string    `json:"id"`
	Requester User      `json:"requesterId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a per-counterpart message thread with read-state.
type Conversation struct {
	ID                 string    `json:"id"`
	Participants       []string  `json:"participants"`
	LastMessageAt      time.Time `json:"lastMessageAt"`
	LastMessagePreview string    `json:"lastMessagePreview"`
	UnreadCount        int       `json:"unreadCount"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HasParticipant reports whether id takes part in the conversation.
func (c Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Message is a single entry of a conversation. Immutable once created except for Read.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	SenderID       string    `json:"senderId"`
	CreatedAt      time.Time `json:"createdAt"`
	Read           bool      `json:"read"`
}

// Pagination describes a page slice of a larger collection.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination computes page metadata; Pages = ceil(total/limit).
func NewPagination(total, page, limit int) Pagination {
	return Pagination{Total: total, Page: page, Limit: limit, Pages: PageCount(total, limit)}
}

// PageCount returns ceil(total/limit), or 0 when limit is not positive.
func PageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// FriendsPage is one page of deduplicated friendships.
type FriendsPage struct {
	Friends    []Friendship `json:"friends"`
	Pagination Pagination   `json:"pagination"`
}

// ConversationsPage is one page of conversations, most recent first.
type ConversationsPage struct {
	Conversations []Conversation `json:"conversations"`
	Pagination    Pagination     `json:"pagination"`
}

// RespondResult is the acknowledgement of a friend request response.
type RespondResult struct {
	Success bool `json:"success"`
}

// LeaderboardEntry is one synthetic ranking row.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	User       User   `json:"user"`
	Points     int    `json:"points"`
	Challenges int    `json:"challenges"`
	IsFriend   bool   `json:"isFriend"`
	Period     string `json:"period,omitempty"`
}

// ShareAck acknowledges a shared challenge. Nothing is persisted.
type ShareAck struct {
	Success     bool      `json:"success"`
	ChallengeID string    `json:"challengeId"`
	SharedWith  []string  `json:"sharedWith"`
	SharedAt    time.Time `json:"sharedAt"`
}
