package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/usage"
)

// scriptedModel отдаёт заранее заданные ответы по порядку.
type scriptedModel struct {
	mu        sync.Mutex
	responses []llm.Response
	err       error
	invokes   int
	continues [][]llm.ToolOutput
	prevIDs   []string
	defsCount []int
	opts      []llm.GenerateOptions
}

func (m *scriptedModel) next() (llm.Response, error) {
	if m.err != nil {
		return llm.Response{}, m.err
	}
	if len(m.responses) == 0 {
		return llm.Response{}, errors.New("script exhausted")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *scriptedModel) Invoke(_ context.Context, _ llm.Conversation, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invokes++
	m.defsCount = append(m.defsCount, len(defs))
	m.opts = append(m.opts, llm.ApplyOptions(llm.GenerateOptions{}, opts...))
	return m.next()
}

func (m *scriptedModel) Continue(_ context.Context, prev string, outputs []llm.ToolOutput, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defsCount = append(m.defsCount, len(defs))
	m.continues = append(m.continues, outputs)
	m.prevIDs = append(m.prevIDs, prev)
	m.opts = append(m.opts, llm.ApplyOptions(llm.GenerateOptions{}, opts...))
	return m.next()
}

func (m *scriptedModel) Complete(context.Context, string, string, ...llm.GenerateOption) (llm.Response, error) {
	return llm.Response{}, errors.New("not scripted")
}

type echoTool struct{ name string }

func (t echoTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        t.name,
		Description: "echo",
		Parameters:  tools.JSONSchema{"type": "object", "properties": map[string]any{}},
	}
}

func (t echoTool) Execute(context.Context, string) (string, error) {
	return `{"tool":"` + t.name + `"}`, nil
}

func newExecutor(t *testing.T) *tools.Executor {
	t.Helper()
	reg, err := tools.NewRegistry(echoTool{"getRoomRates"}, echoTool{"getOccupancyData"})
	require.NoError(t, err)
	return tools.NewExecutor(reg)
}

func toolCallResponse(id string, names ...string) llm.Response {
	resp := llm.Response{ID: id, Usage: usage.Usage{InputTokens: 10, OutputTokens: 2, TotalTokens: 12}}
	for i, n := range names {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{ID: id + "-call-" + string(rune('a'+i)), Name: n, Args: "{}"})
	}
	return resp
}

func textResponse(id string, blocks ...string) llm.Response {
	return llm.Response{ID: id, TextBlocks: blocks, Usage: usage.Usage{InputTokens: 20, OutputTokens: 8, TotalTokens: 28}}
}

func input(text string) Input {
	return Input{Conversation: llm.Conversation{ID: "conv-1", Input: text}}
}

func TestTurn_TwoInvocationLoop(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		toolCallResponse("resp_1", "getRoomRates", "getOccupancyData"),
		textResponse("resp_2", "Rates are steady.", "Occupancy is 72%."),
	}}
	turn, err := NewTurn(model, newExecutor(t))
	require.NoError(t, err)

	out, err := turn.Run(context.Background(), input("How are rates next week?"))
	require.NoError(t, err)

	require.NotNil(t, out.Message)
	assert.Equal(t, "Rates are steady.\nOccupancy is 72%.", *out.Message)
	assert.Equal(t, 1, out.Rounds)
	assert.False(t, out.RoundLimitReached)
	assert.Equal(t, "resp_2", out.ResponseID)
	assert.Equal(t, 40, out.Usage.TotalTokens)

	assert.Equal(t, 1, model.invokes)
	require.Len(t, model.continues, 1)
	assert.Equal(t, []string{"resp_1"}, model.prevIDs)
	outputs := model.continues[0]
	require.Len(t, outputs, 2)
	assert.Equal(t, "resp_1-call-a", outputs[0].CallID)
	assert.JSONEq(t, `{"tool":"getRoomRates"}`, outputs[0].Output)
	assert.Equal(t, "resp_1-call-b", outputs[1].CallID)
}

func TestTurn_NoToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{textResponse("resp_1", "Hello")}}
	turn, err := NewTurn(model, newExecutor(t))
	require.NoError(t, err)

	out, err := turn.Run(context.Background(), input("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", *out.Message)
	assert.Zero(t, out.Rounds)
	assert.Empty(t, model.continues)
}

func TestTurn_NoTextGivesNilMessage(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{{ID: "resp_1"}}}
	turn, err := NewTurn(model, newExecutor(t))
	require.NoError(t, err)

	out, err := turn.Run(context.Background(), input("hi"))
	require.NoError(t, err)
	assert.Nil(t, out.Message)
}

func TestTurn_RoundLimit(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		toolCallResponse("resp_1", "getRoomRates"),
		toolCallResponse("resp_2", "getRoomRates"),
		{ID: "resp_3", TextBlocks: []string{"Still checking"}, ToolCalls: []llm.ToolCall{{ID: "c", Name: "getRoomRates", Args: "{}"}}, Usage: usage.Usage{TotalTokens: 5}},
		{ID: "resp_4", TextBlocks: []string{"Here is what I found so far"}, Usage: usage.Usage{TotalTokens: 7}},
	}}
	turn, err := NewTurn(model, newExecutor(t), WithConfig(Config{MaxRounds: 2}))
	require.NoError(t, err)

	out, err := turn.Run(context.Background(), input("loop"))
	require.NoError(t, err)
	assert.True(t, out.RoundLimitReached)
	assert.Equal(t, 2, out.Rounds)
	assert.Equal(t, "Here is what I found so far", *out.Message)
	assert.Equal(t, "resp_4", out.ResponseID)
	assert.Equal(t, 36, out.Usage.TotalTokens)
	assert.Len(t, out.ToolResults, 2)

	// Невыполненный вызов закрыт ошибкой лимита, инструменты больше не предлагаются
	require.Len(t, model.continues, 3)
	assert.Equal(t, "resp_3", model.prevIDs[2])
	require.Len(t, model.continues[2], 1)
	assert.Equal(t, "c", model.continues[2][0].CallID)
	assert.JSONEq(t, RoundLimitOutput, model.continues[2][0].Output)
	assert.True(t, model.continues[2][0].IsError)
	assert.Equal(t, []int{2, 2, 0}, model.defsCount[1:])
}

func TestTurn_RoundLimitWrapUpFailure(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ID: "resp_1", ToolCalls: []llm.ToolCall{{ID: "a", Name: "getRoomRates", Args: "{}"}}, Usage: usage.Usage{TotalTokens: 10}},
		{ID: "resp_2", ToolCalls: []llm.ToolCall{{ID: "b", Name: "getRoomRates", Args: "{}"}}, Usage: usage.Usage{TotalTokens: 20}},
	}}
	turn, err := NewTurn(model, newExecutor(t), WithConfig(Config{MaxRounds: 1}))
	require.NoError(t, err)

	out, err := turn.Run(context.Background(), input("loop"))
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, PhaseExecutingTools, modelErr.Phase)
	assert.Equal(t, 30, out.Usage.TotalTokens)
}

func TestTurn_EmptyInput(t *testing.T) {
	model := &scriptedModel{}
	turn, err := NewTurn(model, newExecutor(t))
	require.NoError(t, err)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := turn.Run(context.Background(), input(in))
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Zero(t, model.invokes)
}

func TestTurn_ModelFailure(t *testing.T) {
	boom := errors.New("upstream 503")
	model := &scriptedModel{err: boom}
	turn, err := NewTurn(model, newExecutor(t))
	require.NoError(t, err)

	_, err = turn.Run(context.Background(), input("hi"))
	require.ErrorIs(t, err, boom)

	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, PhaseStart, modelErr.Phase)
}

func TestNewTurn_Validation(t *testing.T) {
	exec := newExecutor(t)

	_, err := NewTurn(nil, exec)
	assert.Error(t, err)

	_, err = NewTurn(&scriptedModel{}, nil)
	assert.Error(t, err)

	_, err = NewTurn(&scriptedModel{}, exec, WithConfig(Config{MaxRounds: 11}))
	assert.Error(t, err)

	turn, err := NewTurn(&scriptedModel{}, exec, WithConfig(Config{}))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRounds, turn.cfg.MaxRounds)
}

type phaseRecorder struct {
	BaseObserver
	mu       sync.Mutex
	phases   []Phase
	finished bool
}

func (r *phaseRecorder) OnPhase(_ context.Context, p Phase, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *phaseRecorder) OnFinish(context.Context, Output, error) {
	r.finished = true
}

func TestTurn_ObserversAndEvents(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		toolCallResponse("resp_1", "getRoomRates"),
		textResponse("resp_2", "Done"),
	}}
	rec := &phaseRecorder{}
	turn, err := NewTurn(model, newExecutor(t), WithObserver(rec), WithConfig(Config{MaxRounds: 3, Stream: true}))
	require.NoError(t, err)

	em := events.NewChanEmitter(16)
	_, err = turn.Run(context.Background(), input("go"), NewEmitterObserver(em))
	require.NoError(t, err)
	em.Close()

	assert.Equal(t, []Phase{
		PhaseStart, PhaseModelResponded, PhaseExecutingTools, PhaseModelResponded, PhaseDone,
	}, rec.phases)
	assert.True(t, rec.finished)

	var types []events.EventType
	for ev := range em.Subscribe().Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.EventType{events.EventToolCall, events.EventToolResult, events.EventMessage}, types)

	for _, o := range model.opts {
		assert.NotNil(t, o.OnChunk)
	}
}
