package supabase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
)

const researchTable = "research_history"

// progressStore persists research task rows through PostgREST. Every
// write is retried with bounded exponential backoff; an exhausted retry
// is returned to the caller, who records it on the task rather than
// aborting the stream.
type progressStore struct {
	client        *Client
	log           *logger.Logger
	maxRetries    uint64
	retryInterval time.Duration
}

func NewProgressStore(client *Client, log *logger.Logger, cfg config.ResearcherConfig) ports.ProgressStore {
	return &progressStore{
		client:        client,
		log:           log,
		maxRetries:    cfg.WriteRetries,
		retryInterval: cfg.RetryInterval,
	}
}

func (s *progressStore) withRetry(ctx context.Context, op, taskID string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)

	err := backoff.Retry(func() error {
		if err := fn(); err != nil {
			s.log.Warnw("progress_store_write_retry", "op", op, "task_id", taskID, "error", err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		s.log.Errorw("progress_store_write_failed", "op", op, "task_id", taskID, "error", err)
		return err
	}
	return nil
}

func (s *progressStore) CreateTask(ctx context.Context, task *domain.ResearchTask, token string) error {
	row := map[string]interface{}{
		"id":       task.ID,
		"user_id":  task.UserID,
		"topic":    task.Topic,
		"metadata": task.Metadata,
		"results":  task.Results,
		"status":   task.Status,
	}
	return s.withRetry(ctx, "insert", task.ID, func() error {
		_, err := s.client.Insert(ctx, researchTable, row, token)
		return err
	})
}

func (s *progressStore) UpdateResults(ctx context.Context, taskID, results, token string) error {
	return s.withRetry(ctx, "update_results", taskID, func() error {
		return s.client.Update(ctx, researchTable,
			map[string]interface{}{"results": results},
			map[string]string{"id": taskID}, token)
	})
}

func (s *progressStore) UpdateMetadata(ctx context.Context, taskID string, metadata []domain.JSONB, token string) error {
	return s.withRetry(ctx, "update_metadata", taskID, func() error {
		return s.client.Update(ctx, researchTable,
			map[string]interface{}{"metadata": metadata},
			map[string]string{"id": taskID}, token)
	})
}

func (s *progressStore) SetStatus(ctx context.Context, taskID string, status domain.ResearchStatus, errDetail, token string) error {
	patch := map[string]interface{}{"status": status}
	if errDetail != "" {
		patch["error"] = errDetail
	}
	return s.withRetry(ctx, "set_status", taskID, func() error {
		return s.client.Update(ctx, researchTable, patch,
			map[string]string{"id": taskID}, token)
	})
}
