package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
)

const conversationsTable = "conversations"

type conversationRepository struct {
	client *Client
	log    *logger.Logger
}

func NewConversationRepository(client *Client, log *logger.Logger) ports.ConversationRepository {
	return &conversationRepository{client: client, log: log}
}

func (r *conversationRepository) Insert(ctx context.Context, conv *domain.Conversation, token string) error {
	if _, err := r.client.Insert(ctx, conversationsTable, conv, token); err != nil {
		r.log.Errorw("conversation_repo_insert_failed", "session_id", conv.SessionID, "role", conv.Role, "error", err)
		return err
	}
	r.log.Infow("conversation_repo_insert_ok", "session_id", conv.SessionID, "role", conv.Role)
	return nil
}

func (r *conversationRepository) History(ctx context.Context, sessionID, token string) ([]domain.ConversationTurn, error) {
	query := "select=role,content&session_id=eq." + url.QueryEscape(sessionID) + "&order=id"
	out, err := r.client.Select(ctx, conversationsTable, query, token)
	if err != nil {
		r.log.Errorw("conversation_repo_history_failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	var turns []domain.ConversationTurn
	if err := json.Unmarshal(out, &turns); err != nil {
		return nil, fmt.Errorf("decode conversation history: %w", err)
	}
	r.log.Infow("conversation_repo_history_ok", "session_id", sessionID, "count", len(turns))
	return turns, nil
}

func (r *conversationRepository) Match(ctx context.Context, embedding []float32, threshold float64, count int, token string) ([]domain.ConversationMatch, error) {
	args := map[string]interface{}{
		"query_embedding": embedding,
		"match_threshold": threshold,
		"match_count":     count,
	}
	out, err := r.client.RPC(ctx, "match_conversations", args, token)
	if err != nil {
		r.log.Errorw("conversation_repo_match_failed", "error", err)
		return nil, err
	}
	var matches []domain.ConversationMatch
	if err := json.Unmarshal(out, &matches); err != nil {
		return nil, fmt.Errorf("decode conversation matches: %w", err)
	}
	r.log.Infow("conversation_repo_match_ok", "count", len(matches))
	return matches, nil
}
