package ports

import (
	"context"
	"time"

	"github.com/fridday/backend/internal/domain"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatModel generates one assistant reply for an ordered list of turns.
type ChatModel interface {
	Complete(ctx context.Context, turns []domain.ConversationTurn) (string, error)
}

// SessionCache is the short-lived key-value memory backing chat
// sessions. Values are JSON-serialized.
type SessionCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
}

// AuthProvider delegates identity checks and token minting to the
// external auth backend.
type AuthProvider interface {
	GetUser(ctx context.Context, token string) (*domain.AuthUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error)
}
