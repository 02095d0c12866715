// Package store persists user profiles, chat transcripts and identity records.
package store

import (
	"context"
)

// ProfileStore owns UserProfile records.
type ProfileStore interface {
	// GetProfile returns a not-found error when the user has no profile.
	GetProfile(ctx context.Context, userID string) (UserProfile, error)

	// EnsureProfile creates an empty profile if none exists.
	EnsureProfile(ctx context.Context, userID string) error

	// SetField writes a single field, creating the profile on first write.
	SetField(ctx context.Context, userID string, field Field, value any) error

	DeleteProfile(ctx context.Context, userID string) (bool, error)
}

// HistoryStore owns the append-only chat transcript.
type HistoryStore interface {
	// AppendMessage stores a message with a timestamp strictly after every
	// earlier message of the same user.
	AppendMessage(ctx context.Context, userID, role, content string) (ChatMessage, error)

	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error)

	AllMessages(ctx context.Context, userID string) ([]ChatMessage, error)

	DeleteMessages(ctx context.Context, userID string) (int64, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (User, error)

	// UpsertUser creates the user and an empty profile on first sight and
	// returns the stored record otherwise.
	UpsertUser(ctx context.Context, user User) (User, bool, error)
}

type Store interface {
	ProfileStore
	HistoryStore
	UserStore

	// Forget removes the transcript and profile of a user in one transaction.
	Forget(ctx context.Context, userID string) (ForgetResult, error)

	Ping(ctx context.Context) error
	Close() error
}
