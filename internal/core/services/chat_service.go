package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
)

const defaultConversationTitle = "Business Consultation"

const businessConsultantPrompt = `You are an expert business consultant with deep knowledge in:
- Business strategy and growth
- Market analysis and competitive positioning
- Financial planning and optimization
- Operations and process improvement
- Digital transformation and technology adoption
- Change management and organizational development

Your role is to:
1. Ask clarifying questions to understand the business context
2. Provide strategic, actionable advice
3. Consider both short-term and long-term implications
4. Reference relevant business frameworks and best practices
5. Be direct but diplomatic in your recommendations

Always maintain a professional tone and focus on delivering value through practical, implementable solutions.`

type ChatServiceConfig struct {
	Conversations ports.ConversationRepository
	Embedder      ports.Embedder
	Model         ports.ChatModel
	Cache         ports.SessionCache
	Logger        *logger.Logger
	MemoryTTL     time.Duration
}

// ChatService runs one conversational turn: persist the user message,
// replay the session transcript, generate a reply, persist it, and
// mirror short-term state into the session cache.
type ChatService struct {
	conversations ports.ConversationRepository
	embedder      ports.Embedder
	model         ports.ChatModel
	cache         ports.SessionCache
	log           *logger.Logger
	memoryTTL     time.Duration
}

func NewChatService(cfg ChatServiceConfig) *ChatService {
	return &ChatService{
		conversations: cfg.Conversations,
		embedder:      cfg.Embedder,
		model:         cfg.Model,
		cache:         cfg.Cache,
		log:           cfg.Logger,
		memoryTTL:     cfg.MemoryTTL,
	}
}

type ChatResult struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

func (s *ChatService) Run(ctx context.Context, userID, token, message, sessionID string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("message is required")
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if err := s.logTurn(ctx, sessionID, userID, "user", message, token); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	history, err := s.conversations.History(ctx, sessionID, token)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}

	s.remember(ctx, "session:"+sessionID+":last_user_message", message)

	turns := make([]domain.ConversationTurn, 0, len(history)+1)
	turns = append(turns, domain.ConversationTurn{Role: "system", Content: businessConsultantPrompt})
	turns = append(turns, history...)

	reply, err := s.model.Complete(ctx, turns)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	if err := s.logTurn(ctx, sessionID, userID, "assistant", reply, token); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	s.remember(ctx, "session:"+sessionID+":last_agent_reply", reply)

	s.log.Infow("chat_reply_ok", "session_id", sessionID, "user_id", userID)
	return &ChatResult{Reply: reply, SessionID: sessionID}, nil
}

// SearchSimilar embeds the query and delegates similarity ranking to
// the match_conversations database function.
func (s *ChatService) SearchSimilar(ctx context.Context, query string, threshold float64, limit int, token string) ([]domain.ConversationMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.conversations.Match(ctx, embedding, threshold, limit, token)
}

// logTurn embeds and persists one transcript row. Embedding failure is
// tolerated (the row is stored without a vector); losing the transcript
// row itself is not.
func (s *ChatService) logTurn(ctx context.Context, sessionID, userID, role, content, token string) error {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.log.Warnw("chat_embedding_failed", "session_id", sessionID, "role", role, "error", err)
		embedding = nil
	}

	return s.conversations.Insert(ctx, &domain.Conversation{
		SessionID:  sessionID,
		UserID:     userID,
		Role:       role,
		Content:    content,
		Title:      defaultConversationTitle,
		Metadata:   domain.JSONB{},
		IsArchived: false,
		Embedding:  embedding,
	}, token)
}

func (s *ChatService) remember(ctx context.Context, key, value string) {
	if err := s.cache.Set(ctx, key, value, s.memoryTTL); err != nil {
		s.log.Warnw("chat_memory_set_failed", "key", key, "error", err)
	}
}
