package server

import (
	"context"
	"errors"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("chat session not found")
)

// ProfileStore is the read-only collaborator for demographic and medical
// context. Partial records are normal; callers tolerate missing fields.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// SessionStore persists conversation records. Messages are append-only:
// SaveSession may add messages but existing ones are never rewritten.
type SessionStore interface {
	CreateSession(ctx context.Context, session *ChatSession) error
	LoadSession(ctx context.Context, id string) (*ChatSession, error)
	SaveSession(ctx context.Context, session *ChatSession) error
}
