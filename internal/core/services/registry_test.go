package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fridday/backend/internal/domain"
)

func registerTask(r *ResearchRegistry, id string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	r.Register(&domain.ResearchTask{
		ID:       id,
		Status:   domain.ResearchStatusCreated,
		Metadata: []domain.JSONB{},
	}, cancel)
	return ctx
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewResearchRegistry()
	registerTask(r, "t1")

	r.AppendOutput("t1", "hello")
	r.AppendEvent("t1", domain.JSONB{"type": "logs"})

	snap, err := r.Snapshot("t1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// mutating the snapshot must not leak back into the registry
	snap.Results += " world"
	snap.Metadata = append(snap.Metadata, domain.JSONB{"type": "extra"})

	again, _ := r.Snapshot("t1")
	if again.Results != "hello" {
		t.Errorf("results = %q, want hello", again.Results)
	}
	if len(again.Metadata) != 1 {
		t.Errorf("metadata length = %d, want 1", len(again.Metadata))
	}
}

func TestRegistryUnknownTask(t *testing.T) {
	r := NewResearchRegistry()

	if _, err := r.Snapshot("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Snapshot err = %v, want ErrTaskNotFound", err)
	}
	if err := r.Cancel("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Cancel err = %v, want ErrTaskNotFound", err)
	}
	if _, err := r.Subscribe("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Subscribe err = %v, want ErrTaskNotFound", err)
	}
}

func TestRegistryTerminalStatusIsAbsorbing(t *testing.T) {
	r := NewResearchRegistry()
	registerTask(r, "t1")

	r.SetStatus("t1", domain.ResearchStatusCompleted, "")
	r.SetStatus("t1", domain.ResearchStatusFailed, "late error")

	snap, _ := r.Snapshot("t1")
	if snap.Status != domain.ResearchStatusCompleted {
		t.Errorf("status = %s, want completed to stick", snap.Status)
	}
}

func TestRegistryCancelTerminalTask(t *testing.T) {
	r := NewResearchRegistry()
	registerTask(r, "t1")
	r.SetStatus("t1", domain.ResearchStatusCompleted, "")

	if err := r.Cancel("t1"); !errors.Is(err, domain.ErrTaskNotRunning) {
		t.Errorf("Cancel err = %v, want ErrTaskNotRunning", err)
	}
}

func TestRegistryCancelFiresContext(t *testing.T) {
	r := NewResearchRegistry()
	ctx := registerTask(r, "t1")

	if err := r.Cancel("t1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("cancel did not fire the run context")
	}
}

func TestRegistryPublishAndClose(t *testing.T) {
	r := NewResearchRegistry()
	registerTask(r, "t1")

	ch, err := r.Subscribe("t1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	r.Publish("t1", []byte("frame-1"))
	select {
	case frame := <-ch:
		if string(frame) != "frame-1" {
			t.Errorf("frame = %q", frame)
		}
	default:
		t.Fatal("expected a published frame")
	}

	r.CloseSubscribers("t1")
	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel to be closed")
	}
}

func TestRegistryPublishSkipsSlowSubscriber(t *testing.T) {
	r := NewResearchRegistry()
	registerTask(r, "t1")

	ch, _ := r.Subscribe("t1")
	// fill the buffer; further publishes must not block
	for i := 0; i < cap(ch)+10; i++ {
		r.Publish("t1", []byte("frame"))
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered frames = %d, want %d", len(ch), cap(ch))
	}
}
