package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/divitsinghall/Vortex/internal/engine"
)

// closeGracePeriod bounds how long the close handshake may take once the
// stream ends.
const closeGracePeriod = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard and CLI connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogStream handles GET /ws/{functionID}.
//
// The connection moves through subscribed → closing → closed: it stays
// subscribed while events flow, and closes on client disconnect,
// end-of-stream for the topic, a write error, or request-context
// cancellation. Frames received from the client are read solely to detect
// disconnection.
//
// A subscriber that attaches after an event was published does not receive
// it; the LogBatch in the execute response is the authoritative record.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	functionID := chi.URLParam(r, "functionID")
	if functionID == "" {
		s.writeError(w, http.StatusBadRequest, "missing function id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "function_id", functionID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := engine.FunctionTopic(functionID)
	events, unsub := s.engine.Bus().Subscribe(topic)
	defer unsub()

	s.logger.Info("log stream subscribed", "function_id", functionID, "topic", topic)

	// Read pump: the subscriber sends nothing meaningful, but reading is
	// the only way to notice it went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("log stream detached", "function_id", functionID)
			return
		case ev, ok := <-events:
			if !ok {
				// Execution ended; tell the client before closing.
				deadline := time.Now().Add(closeGracePeriod)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
				s.logger.Info("log stream complete", "function_id", functionID)
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode log event", "function_id", functionID, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Info("log stream write failed", "function_id", functionID, "error", err)
				return
			}
		}
	}
}
