package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// streamBuffer — буфер событий между ходом и записью в ответ.
const streamBuffer = 64

// handleAgentStream выполняет ход и пишет события в формате server-sent events:
//
//	event: tool_call
//	data: {"callId":"...","toolName":"getRoomRates",...}
//
// Последнее событие — done.
func (s *Server) handleAgentStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAgentRequest(w, r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	emitter := events.NewChanEmitter(streamBuffer)
	go func() {
		defer emitter.Close()
		if _, err := s.deps.Agent.RunStream(ctx, req, emitter); err != nil {
			utils.Warn("Streaming turn failed", "conversation_id", req.ConversationID, "error", err)
		}
	}()

	for ev := range emitter.Subscribe().Events() {
		if err := writeEvent(w, ev); err != nil {
			utils.Warn("Failed to write SSE event", "type", ev.Type, "error", err)
			// Дочитываем канал, чтобы ход завершился
			continue
		}
		flusher.Flush()
	}
}

// ssePayload превращает данные события в JSON-объект.
func ssePayload(ev events.Event) any {
	switch d := ev.Data.(type) {
	case events.ErrorData:
		status, msg := agentStatus(d.Err)
		return map[string]any{"error": msg, "status": status}
	case events.ToolResultData:
		return struct {
			events.ToolResultData
			DurationMs int64 `json:"durationMs"`
		}{d, d.Duration.Milliseconds()}
	default:
		return ev.Data
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ssePayload(ev))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
