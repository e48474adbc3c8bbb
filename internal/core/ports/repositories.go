package ports

import (
	"context"

	"github.com/fridday/backend/internal/domain"
)

// ProgressStore persists research task state in the external database.
// Every call carries the bearer token of the task's owner; writes are
// scoped to a single task id.
type ProgressStore interface {
	CreateTask(ctx context.Context, task *domain.ResearchTask, token string) error
	UpdateResults(ctx context.Context, taskID, results, token string) error
	UpdateMetadata(ctx context.Context, taskID string, metadata []domain.JSONB, token string) error
	SetStatus(ctx context.Context, taskID string, status domain.ResearchStatus, errDetail, token string) error
}

type ConversationRepository interface {
	Insert(ctx context.Context, conv *domain.Conversation, token string) error
	History(ctx context.Context, sessionID, token string) ([]domain.ConversationTurn, error)
	Match(ctx context.Context, embedding []float32, threshold float64, count int, token string) ([]domain.ConversationMatch, error)
}
