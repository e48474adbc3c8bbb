package handlers

import (
	"encoding/json"

	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/gofiber/contrib/websocket"
)

type ResearchWSHandler struct {
	registry *services.ResearchRegistry
	log      *logger.Logger
}

func NewResearchWSHandler(registry *services.ResearchRegistry, log *logger.Logger) *ResearchWSHandler {
	return &ResearchWSHandler{registry: registry, log: log}
}

// Handle streams a run's progress frames to a websocket client. The
// current snapshot is sent first, then every frame the relay publishes
// until the run reaches a terminal status or the client goes away.
func (h *ResearchWSHandler) Handle(c *websocket.Conn) {
	id := c.Params("id")

	snapshot, err := h.registry.Snapshot(id)
	if err != nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"research task not found"}`))
		c.Close()
		return
	}

	ch, err := h.registry.Subscribe(id)
	if err != nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"research task not found"}`))
		c.Close()
		return
	}
	defer h.registry.Unsubscribe(id, ch)

	if frame, err := json.Marshal(snapshot); err == nil {
		if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.Close()
			return
		}
	}

	// Drain client frames so we notice the peer closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				c.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				c.Close()
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-clientGone:
			h.log.Debugw("research_ws_client_gone", "task_id", id)
			c.Close()
			return
		}
	}
}
