package llm

import (
	"context"
	"fmt"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the OpenAI API to the Embedder and ChatModel
// ports: one embedding model for transcript rows, one chat model for
// replies.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	log            *logger.Logger
}

func NewOpenAI(cfg config.OpenAIConfig, log *logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:         openai.NewClient(cfg.APIKey),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		log:            log,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		c.log.Errorw("openai_embedding_failed", "error", err)
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("create embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, turns []domain.ConversationTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(t.Role),
			Content: t.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: messages,
	})
	if err != nil {
		c.log.Errorw("openai_chat_failed", "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func chatRole(role string) string {
	switch role {
	case "assistant":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
