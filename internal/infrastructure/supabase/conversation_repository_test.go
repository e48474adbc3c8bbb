package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
)

func newTestRepo(t *testing.T, handler http.HandlerFunc) ports.ConversationRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.SupabaseConfig{
		URL:            srv.URL,
		AnonKey:        "anon-key",
		RequestTimeout: 5 * time.Second,
	}, logger.NewNop())
	return NewConversationRepository(client, logger.NewNop())
}

func TestConversationInsertCarriesEmbedding(t *testing.T) {
	var gotRow map[string]interface{}
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/conversations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotRow)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	})

	err := repo.Insert(context.Background(), &domain.Conversation{
		SessionID: "s1",
		UserID:    "u1",
		Role:      "user",
		Content:   "hello",
		Title:     "Business Consultation",
		Metadata:  domain.JSONB{},
		Embedding: []float32{0.5, 0.25},
	}, "jwt")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	emb, ok := gotRow["embedding"].([]interface{})
	if !ok || len(emb) != 2 {
		t.Errorf("embedding = %v", gotRow["embedding"])
	}
	if gotRow["session_id"] != "s1" || gotRow["role"] != "user" {
		t.Errorf("row = %v", gotRow)
	}
}

func TestConversationHistoryOrderedBySequence(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("session_id"); got != "eq.s1" {
			t.Errorf("session filter = %s", got)
		}
		if got := r.URL.Query().Get("order"); got != "id" {
			t.Errorf("order = %s", got)
		}
		w.Write([]byte(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`))
	})

	turns, err := repo.History(context.Background(), "s1", "jwt")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("turns = %v", turns)
	}
}

func TestConversationMatchCallsRPC(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/rpc/match_conversations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var args map[string]interface{}
		json.NewDecoder(r.Body).Decode(&args)
		if args["match_threshold"] != 0.7 {
			t.Errorf("threshold = %v", args["match_threshold"])
		}
		w.Write([]byte(`[{"content":"old advice","role":"assistant","similarity":0.88}]`))
	})

	matches, err := repo.Match(context.Background(), []float32{0.1}, 0.7, 5, "jwt")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(matches) != 1 || matches[0].Similarity != 0.88 {
		t.Errorf("matches = %v", matches)
	}
}
