package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ilkoid/bellhop/pkg/agent"
	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/state"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// maxBodyBytes ограничивает тело запроса.
const maxBodyBytes = 1 << 20

type agentRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversationId"`
}

type agentResponse struct {
	Message           *string `json:"message"`
	ConversationID    string  `json:"conversationId,omitempty"`
	RoundLimitReached bool    `json:"roundLimitReached,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeAgentRequest разбирает тело /api/agent*. Неразбираемое тело
// и пустой ввод одинаково считаются неверным вводом.
func decodeAgentRequest(w http.ResponseWriter, r *http.Request) (agent.Request, bool) {
	var body agentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		return agent.Request{}, false
	}
	if strings.TrimSpace(body.Input) == "" {
		return agent.Request{}, false
	}
	return agent.Request{ConversationID: body.ConversationID, Input: body.Input}, true
}

// agentStatus переводит ошибку хода в HTTP-статус и сообщение.
func agentStatus(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, agent.ErrUsageLimit):
		return http.StatusTooManyRequests, "Conversation usage limit reached"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAgentRequest(w, r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	reply, err := s.deps.Agent.Run(r.Context(), req)
	if err != nil {
		status, msg := agentStatus(err)
		if status == http.StatusInternalServerError {
			utils.Error("Agent turn failed", "conversation_id", reply.ConversationID, "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, agentResponse{
		Message:           reply.Message,
		ConversationID:    reply.ConversationID,
		RoundLimitReached: reply.RoundLimitReached,
	})
}

type evaluateRequest struct {
	Text json.RawMessage `json:"text"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	// text должен быть непустой строкой; число или null — та же ошибка
	var text string
	if err := json.Unmarshal(body.Text, &text); err != nil || strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "Task text is required.")
		return
	}

	eval, err := s.deps.Evaluator.Evaluate(r.Context(), text)
	if err != nil {
		utils.Error("Failed to evaluate to-do item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"canHandle": false})
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Agent.Reset(r.Context(), id)
	switch {
	case errors.Is(err, state.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"conversationId": id, "reset": true})
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Agent.Usage(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, state.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Mutating    bool           `json:"mutating"`
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	list := make([]toolInfo, 0, len(s.deps.Tools))
	for _, d := range s.deps.Tools {
		list = append(list, toolInfo{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
			Mutating:    d.Mutating,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": list})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Overview == nil {
		writeError(w, http.StatusNotFound, "Overview is not available")
		return
	}
	asOf := r.URL.Query().Get("asOf")
	if asOf == "" {
		asOf = s.deps.Now().Format(hotel.DateLayout)
	}
	if _, err := hotel.ParseDate(asOf); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ov, err := s.deps.Overview.Overview(r.Context(), asOf)
	if err != nil {
		utils.Error("Failed to build overview", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to build overview")
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
