package services

import (
	"context"
	"sync"
	"time"

	"github.com/fridday/backend/internal/domain"
)

// ResearchRegistry tracks every relay run in this process: the live
// snapshot of its task record, its cancellation handle, and any
// websocket subscribers watching progress. All per-run state lives in
// the entry keyed by task id; nothing is shared across runs.
type ResearchRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	task        *domain.ResearchTask
	cancel      context.CancelFunc
	subscribers map[chan []byte]struct{}
}

func NewResearchRegistry() *ResearchRegistry {
	return &ResearchRegistry{
		entries: make(map[string]*registryEntry),
	}
}

func (r *ResearchRegistry) Register(task *domain.ResearchTask, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[task.ID] = &registryEntry{
		task:        task,
		cancel:      cancel,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Snapshot returns a copy of the task record so callers never observe
// mid-run mutation.
func (r *ResearchRegistry) Snapshot(id string) (*domain.ResearchTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, domain.ErrTaskNotFound
	}

	task := *entry.task
	task.Metadata = append([]domain.JSONB(nil), entry.task.Metadata...)
	task.WriteErrors = append([]string(nil), entry.task.WriteErrors...)
	return &task, nil
}

// Cancel aborts a running relay through its context handle.
func (r *ResearchRegistry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return domain.ErrTaskNotFound
	}
	if entry.task.Status.Terminal() {
		return domain.ErrTaskNotRunning
	}
	entry.cancel()
	return nil
}

func (r *ResearchRegistry) SetStatus(id string, status domain.ResearchStatus, errDetail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists || entry.task.Status.Terminal() {
		return
	}
	entry.task.Status = status
	entry.task.Error = errDetail
	entry.task.UpdatedAt = time.Now()
}

func (r *ResearchRegistry) AppendOutput(id, chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[id]; exists {
		entry.task.Results += chunk
		entry.task.UpdatedAt = time.Now()
	}
}

func (r *ResearchRegistry) AppendEvent(id string, evt domain.JSONB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[id]; exists {
		entry.task.Metadata = append(entry.task.Metadata, evt)
		entry.task.UpdatedAt = time.Now()
	}
}

func (r *ResearchRegistry) RecordWriteError(id, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[id]; exists {
		entry.task.WriteErrors = append(entry.task.WriteErrors, detail)
		entry.task.UpdatedAt = time.Now()
	}
}

// ==================== Progress subscriptions ====================

// Subscribe attaches a live-progress watcher to a run. The channel is
// closed when the run reaches a terminal status.
func (r *ResearchRegistry) Subscribe(id string) (chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, domain.ErrTaskNotFound
	}
	ch := make(chan []byte, 64)
	entry.subscribers[ch] = struct{}{}
	return ch, nil
}

func (r *ResearchRegistry) Unsubscribe(id string, ch chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[id]; exists {
		delete(entry.subscribers, ch)
	}
}

// Publish fans a progress frame out to subscribers. Slow subscribers
// are skipped, not waited on; the relay's read loop must never block
// on an observer.
func (r *ResearchRegistry) Publish(id string, frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return
	}
	for ch := range entry.subscribers {
		select {
		case ch <- frame:
		default:
		}
	}
}

// CloseSubscribers detaches and closes every watcher of a finished run.
func (r *ResearchRegistry) CloseSubscribers(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return
	}
	for ch := range entry.subscribers {
		close(ch)
		delete(entry.subscribers, ch)
	}
}
