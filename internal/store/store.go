package store

import (
	"context"
	"strings"
	"time"
)

// Turn is one persisted chat message. Seq orders turns within a conversation.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Seq       uint64    `json:"seq"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps one append-only conversation per user.
type Store interface {
	// ListTurns returns the whole conversation, oldest first.
	ListTurns(ctx context.Context, userID string) ([]Turn, error)
	AppendTurn(ctx context.Context, userID, speaker, text string) (Turn, error)
	// RecentTurns returns the last limit turns, oldest first.
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
	ClearTurns(ctx context.Context, userID string) error
	Close() error
}

// NewStore opens Postgres when databaseURL is set, the bolt file at boltPath otherwise.
func NewStore(ctx context.Context, databaseURL, boltPath string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewBoltStore(boltPath)
	}
	return NewPostgresStore(ctx, databaseURL)
}
