package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// finalizeGrace bounds the last persistence writes after a run's
// context is already expired or cancelled.
const finalizeGrace = 10 * time.Second

type ResearchServiceConfig struct {
	Store    ports.ProgressStore
	Registry *ResearchRegistry
	Logger   *logger.Logger
	Config   config.ResearcherConfig
}

// ResearchService bridges the remote researcher's websocket stream into
// task record mutations. The service itself holds no per-run state:
// each submission gets its own runContext value and goroutine.
type ResearchService struct {
	store    ports.ProgressStore
	registry *ResearchRegistry
	log      *logger.Logger
	wsURL    string
	deadline time.Duration
	dialer   *websocket.Dialer
}

func NewResearchService(cfg ResearchServiceConfig) *ResearchService {
	return &ResearchService{
		store:    cfg.Store,
		registry: cfg.Registry,
		log:      cfg.Logger,
		wsURL:    cfg.Config.WSURL,
		deadline: cfg.Config.RunDeadline,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Config.HandshakeTimeout,
		},
	}
}

// runContext owns everything one relay run mutates. The results buffer
// here is authoritative for persistence; the registry mirror exists for
// in-process observers.
type runContext struct {
	taskID   string
	token    string
	results  string
	metadata []domain.JSONB
	payload  []byte
}

// startDirective is the single frame sent after connecting.
type startDirective struct {
	Task         string            `json:"task"`
	ReportType   string            `json:"report_type"`
	ReportSource string            `json:"report_source"`
	Tone         string            `json:"tone"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// Submit persists the initial task record and detaches the relay run.
// It returns the task id as soon as the initial row is durable; only a
// failure of that first insert is surfaced synchronously.
func (s *ResearchService) Submit(ctx context.Context, req domain.ResearchRequest) (string, error) {
	if strings.TrimSpace(req.Task) == "" {
		return "", errors.New("task is required")
	}

	now := time.Now()
	task := &domain.ResearchTask{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Topic:     req.Topic,
		Results:   "",
		Metadata:  []domain.JSONB{},
		Status:    domain.ResearchStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTask(ctx, task, req.JWTToken); err != nil {
		return "", fmt.Errorf("persist initial task record: %w", err)
	}

	directive, err := json.Marshal(startDirective{
		Task:         req.Task,
		ReportType:   req.ReportType,
		ReportSource: req.ReportSource,
		Tone:         req.Tone,
		Headers:      req.Headers,
	})
	if err != nil {
		return "", fmt.Errorf("encode start directive: %w", err)
	}

	rc := &runContext{
		taskID:   task.ID,
		token:    req.JWTToken,
		metadata: []domain.JSONB{},
		payload:  append([]byte("start "), directive...),
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.deadline)
	s.registry.Register(task, cancel)

	go s.run(runCtx, cancel, rc)

	s.log.Infow("relay_run_started", "task_id", task.ID, "user_id", req.UserID, "topic", req.Topic)
	return task.ID, nil
}

func (s *ResearchService) run(ctx context.Context, cancel context.CancelFunc, rc *runContext) {
	defer cancel()

	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		s.log.Errorw("relay_connect_failed", "task_id", rc.taskID, "url", s.wsURL, "error", err)
		s.finalize(rc, domain.ResearchStatusFailed, fmt.Sprintf("connect: %v", err))
		return
	}

	s.registry.SetStatus(rc.taskID, domain.ResearchStatusRunning, "")

	// The reader blocks in ReadMessage; closing the connection on
	// context expiry is the only way to unblock it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, rc.payload); err != nil {
		conn.Close()
		s.log.Errorw("relay_start_directive_failed", "task_id", rc.taskID, "error", err)
		s.finalize(rc, domain.ResearchStatusFailed, fmt.Sprintf("send start directive: %v", err))
		return
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			status, detail := s.classifyEnd(ctx, err)
			s.finalize(rc, status, detail)
			return
		}
		s.apply(ctx, rc, frame)
	}
}

// apply processes one inbound frame in arrival order: report chunks
// append to results and are flushed before the next frame is read;
// other structured events append to the metadata log; plain text is
// observed only.
func (s *ResearchService) apply(ctx context.Context, rc *runContext, frame []byte) {
	var evt domain.JSONB
	if err := json.Unmarshal(frame, &evt); err != nil || evt == nil {
		s.log.Debugw("relay_plain_frame", "task_id", rc.taskID, "frame", string(frame))
		return
	}

	if typ, _ := evt["type"].(string); typ == "report" {
		output, _ := evt["output"].(string)
		rc.results += output
		s.registry.AppendOutput(rc.taskID, output)
		if err := s.store.UpdateResults(ctx, rc.taskID, rc.results, rc.token); err != nil {
			s.registry.RecordWriteError(rc.taskID, fmt.Sprintf("results: %v", err))
		}
	} else {
		rc.metadata = append(rc.metadata, evt)
		s.registry.AppendEvent(rc.taskID, evt)
		if err := s.store.UpdateMetadata(ctx, rc.taskID, rc.metadata, rc.token); err != nil {
			s.registry.RecordWriteError(rc.taskID, fmt.Sprintf("metadata: %v", err))
		}
	}

	s.registry.Publish(rc.taskID, frame)
}

// classifyEnd maps the read error that ended the stream to a terminal
// status. Context expiry wins over whatever error the forced close
// produced.
func (s *ResearchService) classifyEnd(ctx context.Context, err error) (domain.ResearchStatus, string) {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return domain.ResearchStatusTimedOut, "run deadline exceeded"
	case context.Canceled:
		return domain.ResearchStatusFailed, "cancelled"
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return domain.ResearchStatusCompleted, ""
	}
	return domain.ResearchStatusFailed, fmt.Sprintf("stream: %v", err)
}

// finalize persists whatever was accumulated plus the terminal status.
// It runs on a fresh context: the run's own context is typically
// already dead by the time we get here.
func (s *ResearchService) finalize(rc *runContext, status domain.ResearchStatus, detail string) {
	s.registry.SetStatus(rc.taskID, status, detail)

	ctx, cancel := context.WithTimeout(context.Background(), finalizeGrace)
	defer cancel()

	if err := s.store.UpdateResults(ctx, rc.taskID, rc.results, rc.token); err != nil {
		s.registry.RecordWriteError(rc.taskID, fmt.Sprintf("final results: %v", err))
	}
	if err := s.store.SetStatus(ctx, rc.taskID, status, detail, rc.token); err != nil {
		s.registry.RecordWriteError(rc.taskID, fmt.Sprintf("final status: %v", err))
	}

	if frame, err := json.Marshal(map[string]interface{}{
		"type":   "status",
		"status": status,
		"error":  detail,
	}); err == nil {
		s.registry.Publish(rc.taskID, frame)
	}
	s.registry.CloseSubscribers(rc.taskID)

	s.log.Infow("relay_run_finished", "task_id", rc.taskID, "status", status, "detail", detail)
}
