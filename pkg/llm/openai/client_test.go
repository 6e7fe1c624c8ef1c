package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/bellhop/pkg/chain"
	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// fakeAPI — минимальный Chat Completions сервер, отвечающий заготовками по очереди.
type fakeAPI struct {
	mu        sync.Mutex
	responses []string
	requests  []map[string]any
	stream    bool
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.requests = append(f.requests, body)
		if len(f.responses) == 0 {
			f.mu.Unlock()
			http.Error(w, `{"error":{"message":"no more responses","type":"server_error"}}`, http.StatusInternalServerError)
			return
		}
		resp := f.responses[0]
		f.responses = f.responses[1:]
		f.mu.Unlock()

		if f.stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, resp)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}
}

func newTestClient(t *testing.T, api *fakeAPI, def config.ModelDef) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	def.APIKey = "test-key"
	def.BaseURL = srv.URL + "/v1"
	if def.ModelName == "" {
		def.ModelName = "gpt-test"
	}
	return NewClient(def)
}

func catalog() []tools.ToolDefinition {
	return []tools.ToolDefinition{{
		Name:        "getRoomRates",
		Description: "Get current room rates for specified date range",
		Parameters: tools.JSONSchema{
			"type":       "object",
			"properties": map[string]any{"startDate": map[string]any{"type": "string"}},
			"required":   []string{"startDate"},
		},
	}}
}

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-test",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "getRoomRates", "arguments": "{\"startDate\":\"2025-09-29\"}"}}]
    }
  }],
  "usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
}`

const textResponse = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Average rate is $266.67."}}],
  "usage": {"prompt_tokens": 150, "completion_tokens": 10, "total_tokens": 160}
}`

// TestNewClient проверяет создание клиента.
func TestNewClient(t *testing.T) {
	client := NewClient(config.ModelDef{APIKey: "k", ModelName: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 512})
	require.NotNil(t, client)
	assert.Equal(t, "gpt-4o-mini", client.model)
	assert.NotNil(t, client.api)
	require.NotNil(t, client.defaults.Temperature)
	assert.Equal(t, 0.2, *client.defaults.Temperature)
	assert.Equal(t, 512, client.defaults.MaxTokens)
}

// TestClient_InvokeThenContinue проверяет цикл tool call → результат → текст.
func TestClient_InvokeThenContinue(t *testing.T) {
	api := &fakeAPI{responses: []string{toolCallResponse, textResponse}}
	client := newTestClient(t, api, config.ModelDef{
		Pricing: config.ModelPricing{InputPerMillion: 1, OutputPerMillion: 2},
	})
	ctx := context.Background()

	first, err := client.Invoke(ctx, llm.Conversation{
		ID:           "conv-1",
		SystemPrompt: "You are Bellhop.",
		Input:        "What are rates on 2025-09-29?",
	}, catalog())
	require.NoError(t, err)

	require.True(t, first.HasToolCalls())
	assert.Equal(t, "call_1", first.ToolCalls[0].ID)
	assert.Equal(t, "getRoomRates", first.ToolCalls[0].Name)
	assert.JSONEq(t, `{"startDate":"2025-09-29"}`, first.ToolCalls[0].Args)
	assert.Nil(t, first.Text())
	assert.Equal(t, 120, first.Usage.TotalTokens)
	require.NotNil(t, first.Usage.Cost)
	assert.InDelta(t, 0.00014, *first.Usage.Cost, 1e-9)

	second, err := client.Continue(ctx, first.ID, []llm.ToolOutput{
		{CallID: "call_1", Output: `{"rates":[]}`},
	}, catalog())
	require.NoError(t, err)
	require.NotNil(t, second.Text())
	assert.Equal(t, "Average rate is $266.67.", *second.Text())
	assert.NotEqual(t, first.ID, second.ID)

	require.Len(t, api.requests, 2)

	req1 := api.requests[0]
	assert.Equal(t, "gpt-test", req1["model"])
	assert.Equal(t, "auto", req1["tool_choice"])
	assert.Len(t, req1["tools"], 1)
	assert.Len(t, req1["messages"], 2, "system + user")

	msgs := api.requests[1]["messages"].([]any)
	require.Len(t, msgs, 4, "system + user + assistant tool call + tool result")
	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
}

// TestClient_InvokeContinuesPreviousTurn проверяет, что следующий ход видит историю.
func TestClient_InvokeContinuesPreviousTurn(t *testing.T) {
	api := &fakeAPI{responses: []string{textResponse, textResponse}}
	client := newTestClient(t, api, config.ModelDef{})
	ctx := context.Background()

	first, err := client.Invoke(ctx, llm.Conversation{SystemPrompt: "sys", Input: "hi"}, nil)
	require.NoError(t, err)

	_, err = client.Invoke(ctx, llm.Conversation{PreviousResponseID: first.ID, SystemPrompt: "sys", Input: "again"}, nil)
	require.NoError(t, err)

	msgs := api.requests[1]["messages"].([]any)
	assert.Len(t, msgs, 4, "system + user + assistant + user")
	_, hasTools := api.requests[1]["tools"]
	assert.False(t, hasTools)
}

// TestClient_NextTurnAfterUnansweredToolCalls проверяет, что новый ход после
// ответа с невыполненными tool calls не оставляет их без tool-сообщений.
func TestClient_NextTurnAfterUnansweredToolCalls(t *testing.T) {
	api := &fakeAPI{responses: []string{toolCallResponse, textResponse}}
	client := newTestClient(t, api, config.ModelDef{})
	ctx := context.Background()

	first, err := client.Invoke(ctx, llm.Conversation{SystemPrompt: "sys", Input: "rates?"}, catalog())
	require.NoError(t, err)
	require.True(t, first.HasToolCalls())

	_, err = client.Invoke(ctx, llm.Conversation{PreviousResponseID: first.ID, SystemPrompt: "sys", Input: "and tomorrow?"}, catalog())
	require.NoError(t, err)

	msgs := api.requests[1]["messages"].([]any)
	require.Len(t, msgs, 5, "system + user + assistant tool call + tool result + user")
	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.JSONEq(t, skippedToolOutput, toolMsg["content"].(string))
	assert.Equal(t, "user", msgs[4].(map[string]any)["role"])
}

type ratesTool struct{}

func (ratesTool) Definition() tools.ToolDefinition { return catalog()[0] }

func (ratesTool) Execute(context.Context, string) (string, error) {
	return `{"rates":[]}`, nil
}

// requireToolCallsAnswered проверяет, что за каждым assistant с tool_calls
// идут tool-сообщения на все его вызовы.
func requireToolCallsAnswered(t *testing.T, msgs []any) {
	t.Helper()
	for i, raw := range msgs {
		m := raw.(map[string]any)
		calls, _ := m["tool_calls"].([]any)
		if m["role"] != "assistant" || len(calls) == 0 {
			continue
		}
		for j := range calls {
			require.Greater(t, len(msgs), i+1+j, "message %d: tool calls left unanswered", i)
			next := msgs[i+1+j].(map[string]any)
			require.Equal(t, "tool", next["role"], "message %d followed by %v", i, next["role"])
		}
	}
}

// TestClient_TurnsAfterRoundLimit прогоняет два хода разговора, первый из
// которых упирается в лимит раундов.
func TestClient_TurnsAfterRoundLimit(t *testing.T) {
	api := &fakeAPI{responses: []string{toolCallResponse, toolCallResponse, textResponse, textResponse}}
	client := newTestClient(t, api, config.ModelDef{})
	reg, err := tools.NewRegistry(ratesTool{})
	require.NoError(t, err)
	turn, err := chain.NewTurn(client, tools.NewExecutor(reg), chain.WithConfig(chain.Config{MaxRounds: 1}))
	require.NoError(t, err)
	ctx := context.Background()

	out, err := turn.Run(ctx, chain.Input{Conversation: llm.Conversation{ID: "c", SystemPrompt: "sys", Input: "rates?"}})
	require.NoError(t, err)
	assert.True(t, out.RoundLimitReached)
	require.NotNil(t, out.Message)

	_, err = turn.Run(ctx, chain.Input{Conversation: llm.Conversation{ID: "c", PreviousResponseID: out.ResponseID, SystemPrompt: "sys", Input: "and tomorrow?"}})
	require.NoError(t, err)

	require.Len(t, api.requests, 4)
	_, hasTools := api.requests[2]["tools"]
	assert.False(t, hasTools, "wrap-up request offers no tools")
	for i, req := range api.requests {
		t.Run(fmt.Sprintf("request %d", i), func(t *testing.T) {
			requireToolCallsAnswered(t, req["messages"].([]any))
		})
	}
	last := api.requests[3]["messages"].([]any)
	assert.Equal(t, "user", last[len(last)-1].(map[string]any)["role"])
}

func TestClosePendingToolCalls(t *testing.T) {
	call := func(id string) openai.ToolCall {
		return openai.ToolCall{ID: id, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "getRoomRates"}}
	}
	assistant := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: []openai.ToolCall{call("a"), call("b")}}
	answeredA := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, ToolCallID: "a", Content: "{}"}
	text := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "done"}

	tests := []struct {
		name    string
		in      []openai.ChatCompletionMessage
		wantIDs []string
	}{
		{"empty", nil, nil},
		{"text answer", []openai.ChatCompletionMessage{text}, nil},
		{"all pending", []openai.ChatCompletionMessage{assistant}, []string{"a", "b"}},
		{"partly answered", []openai.ChatCompletionMessage{assistant, answeredA}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := closePendingToolCalls(tt.in)
			added := out[len(tt.in):]
			var ids []string
			for _, m := range added {
				assert.Equal(t, openai.ChatMessageRoleTool, m.Role)
				ids = append(ids, m.ToolCallID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClient_ContinueUnknownResponse(t *testing.T) {
	client := newTestClient(t, &fakeAPI{}, config.ModelDef{})

	_, err := client.Continue(context.Background(), "resp_missing", nil, nil)
	assert.True(t, errors.Is(err, ErrUnknownResponse))
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, &fakeAPI{}, config.ModelDef{})

	_, err := client.Invoke(context.Background(), llm.Conversation{Input: "hi"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestClient_CompleteJSON(t *testing.T) {
	api := &fakeAPI{responses: []string{textResponse}}
	client := newTestClient(t, api, config.ModelDef{})

	_, err := client.Complete(context.Background(), "system", "prompt",
		llm.WithFormat("json_object"), llm.WithTemperature(0))
	require.NoError(t, err)

	req := api.requests[0]
	assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])
	assert.Contains(t, req, "temperature")
	assert.Equal(t, 0, client.threads.len(), "one-shot completions are not stored")
}

// TestClient_Stream проверяет сборку потокового ответа и usage из финального чанка.
func TestClient_Stream(t *testing.T) {
	sse := "" +
		`data: {"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Occupancy "}}]}` + "\n\n" +
		`data: {"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"is up."}}]}` + "\n\n" +
		`data: {"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"getOccupancyData","arguments":"{\"startDate\":"}}]}}]}` + "\n\n" +
		`data: {"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"2025-10-01\"}"}}]}}]}` + "\n\n" +
		`data: {"id":"c","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":30,"completion_tokens":7,"total_tokens":37}}` + "\n\n" +
		"data: [DONE]\n\n"

	api := &fakeAPI{responses: []string{sse}, stream: true}
	client := newTestClient(t, api, config.ModelDef{})

	var chunks []llm.StreamChunk
	resp, err := client.Invoke(context.Background(), llm.Conversation{Input: "occupancy?"}, catalog(),
		llm.WithStream(func(c llm.StreamChunk) { chunks = append(chunks, c) }))
	require.NoError(t, err)

	require.NotNil(t, resp.Text())
	assert.Equal(t, "Occupancy is up.", *resp.Text())
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_9", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"startDate":"2025-10-01"}`, resp.ToolCalls[0].Args)
	assert.Equal(t, 37, resp.Usage.TotalTokens)

	assert.Equal(t, true, api.requests[0]["stream"])
	assert.Equal(t, map[string]any{"include_usage": true}, api.requests[0]["stream_options"])

	require.NotEmpty(t, chunks)
	assert.Equal(t, llm.ChunkDone, chunks[len(chunks)-1].Type)
	assert.Equal(t, "Occupancy is up.", chunks[len(chunks)-1].Content)
}

// TestConvertToolsToOpenAI проверяет конвертацию tools.
func TestConvertToolsToOpenAI(t *testing.T) {
	result := convertToolsToOpenAI(catalog())

	require.Len(t, result, 1)
	assert.Equal(t, "function", string(result[0].Type))
	assert.Equal(t, "getRoomRates", result[0].Function.Name)
	assert.NotNil(t, result[0].Function.Parameters)
}

func TestThreadStore_Evicts(t *testing.T) {
	s := newThreadStore(2)
	s.put("a", nil)
	s.put("b", nil)
	s.put("c", nil)

	assert.Equal(t, 2, s.len())
	_, ok := s.get("c")
	assert.True(t, ok)
}
