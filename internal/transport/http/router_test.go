package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "test-secret"

type stubStore struct{}

func (stubStore) CreateTask(ctx context.Context, task *domain.ResearchTask, token string) error {
	return nil
}
func (stubStore) UpdateResults(ctx context.Context, taskID, results, token string) error { return nil }
func (stubStore) UpdateMetadata(ctx context.Context, taskID string, metadata []domain.JSONB, token string) error {
	return nil
}
func (stubStore) SetStatus(ctx context.Context, taskID string, status domain.ResearchStatus, errDetail, token string) error {
	return nil
}

type stubConversations struct{}

func (stubConversations) Insert(ctx context.Context, conv *domain.Conversation, token string) error {
	return nil
}
func (stubConversations) History(ctx context.Context, sessionID, token string) ([]domain.ConversationTurn, error) {
	return []domain.ConversationTurn{{Role: "user", Content: "hello"}}, nil
}
func (stubConversations) Match(ctx context.Context, embedding []float32, threshold float64, count int, token string) ([]domain.ConversationMatch, error) {
	return []domain.ConversationMatch{{Content: "earlier advice", Similarity: 0.9}}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type stubModel struct{}

func (stubModel) Complete(ctx context.Context, turns []domain.ConversationTurn) (string, error) {
	return "stub reply", nil
}

type stubCache struct{}

func (stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	return domain.ErrCacheMiss
}
func (stubCache) Delete(ctx context.Context, key string) error { return nil }

type stubAuthProvider struct{}

func (stubAuthProvider) GetUser(ctx context.Context, token string) (*domain.AuthUser, error) {
	return nil, domain.ErrUnauthorized
}
func (stubAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return &domain.AuthSession{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600, TokenType: "bearer"}, nil
}
func (stubAuthProvider) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	return &domain.AuthSession{AccessToken: "at2", RefreshToken: "rt2", ExpiresIn: 3600, TokenType: "bearer"}, nil
}

func newTestApp(t *testing.T, devEndpoints bool) (*fiber.App, *services.ResearchRegistry) {
	t.Helper()
	log := logger.NewNop()

	registry := services.NewResearchRegistry()
	research := services.NewResearchService(services.ResearchServiceConfig{
		Store:    stubStore{},
		Registry: registry,
		Logger:   log,
		Config: config.ResearcherConfig{
			// nothing listens here: runs fail asynchronously, which is
			// exactly the submission contract under test
			WSURL:            "ws://127.0.0.1:1/ws",
			RunDeadline:      time.Minute,
			HandshakeTimeout: 100 * time.Millisecond,
		},
	})
	chat := services.NewChatService(services.ChatServiceConfig{
		Conversations: stubConversations{},
		Embedder:      stubEmbedder{},
		Model:         stubModel{},
		Cache:         stubCache{},
		Logger:        log,
		MemoryTTL:     time.Hour,
	})

	cfg := &config.Config{}
	cfg.Supabase.JWTSecret = testJWTSecret
	cfg.Auth.DevEndpoints = devEndpoints

	app := fiber.New()
	SetupRoutes(app, RouterConfig{
		Logger:   log,
		Config:   cfg,
		Research: research,
		Registry: registry,
		Chat:     chat,
		Auth:     stubAuthProvider{},
	})
	return app, registry
}

func bearerToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "user-1",
		"email": "dev@example.com",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func postJSON(t *testing.T, app *fiber.App, path, token string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test %s: %v", path, err)
	}
	return resp
}

func TestSubmitResearchReturnsProcessStarted(t *testing.T) {
	app, _ := newTestApp(t, false)

	start := time.Now()
	resp := postJSON(t, app, "/api/v1/gpt-researcher", "", map[string]interface{}{
		"task":          "The impact of AI on education",
		"report_type":   "research_report",
		"report_source": "web",
		"tone":          "objective",
		"user_id":       "user-1",
		"topic":         "AI in education",
		"jwt_token":     "user-jwt",
	})
	elapsed := time.Since(start)

	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("submission took %v, want under 200ms", elapsed)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "process_started" {
		t.Errorf("status field = %q", body["status"])
	}
	if body["research_id"] == "" {
		t.Error("expected a research_id")
	}
}

func TestSubmitResearchValidation(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := postJSON(t, app, "/api/v1/gpt-researcher", "", map[string]interface{}{
		"user_id":   "user-1",
		"jwt_token": "user-jwt",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestResearchSnapshotEndpoint(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := postJSON(t, app, "/api/v1/gpt-researcher", "", map[string]interface{}{
		"task": "snapshot test", "user_id": "user-1", "jwt_token": "user-jwt",
	})
	var submitted map[string]string
	json.NewDecoder(resp.Body).Decode(&submitted)
	id := submitted["research_id"]

	req := httptest.NewRequest("GET", "/api/v1/research/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	snapResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if snapResp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", snapResp.StatusCode)
	}

	var task domain.ResearchTask
	json.NewDecoder(snapResp.Body).Decode(&task)
	if task.ID != id {
		t.Errorf("snapshot id = %s, want %s", task.ID, id)
	}

	// without a token the snapshot is not reachable
	unauth, _ := app.Test(httptest.NewRequest("GET", "/api/v1/research/"+id, nil))
	if unauth.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", unauth.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := postJSON(t, app, "/api/v1/chat", bearerToken(t), map[string]string{
		"message": "how do I grow revenue?",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["reply"] != "stub reply" {
		t.Errorf("reply = %q", body["reply"])
	}
	if body["session_id"] == "" {
		t.Error("expected a session_id")
	}

	unauth := postJSON(t, app, "/api/v1/chat", "", map[string]string{"message": "hi"})
	if unauth.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", unauth.StatusCode)
	}
}

func TestSearchConversationsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, false)

	resp := postJSON(t, app, "/api/v1/conversations/search", bearerToken(t), map[string]string{
		"query": "pricing",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Matches []domain.ConversationMatch `json:"matches"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body.Matches) != 1 || body.Matches[0].Content != "earlier advice" {
		t.Errorf("matches = %v", body.Matches)
	}
}

func TestAuthMeEndpoint(t *testing.T) {
	app, _ := newTestApp(t, false)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["id"] != "user-1" || body["email"] != "dev@example.com" {
		t.Errorf("body = %v", body)
	}
}

func TestDevTokenEndpointGating(t *testing.T) {
	enabled, _ := newTestApp(t, true)
	resp := postJSON(t, enabled, "/api/v1/auth/dev/token", "", map[string]string{
		"email": "dev@example.com", "password": "secret",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var session domain.AuthSession
	json.NewDecoder(resp.Body).Decode(&session)
	if session.AccessToken != "at" {
		t.Errorf("session = %+v", session)
	}

	disabled, _ := newTestApp(t, false)
	resp = postJSON(t, disabled, "/api/v1/auth/dev/token", "", map[string]string{
		"email": "dev@example.com", "password": "secret",
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404 when dev endpoints are disabled", resp.StatusCode)
	}
}
