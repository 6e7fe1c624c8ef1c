package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// Turn — оркестратор хода. Не хранит состояние между вызовами Run
// и безопасен для параллельного использования разными разговорами.
type Turn struct {
	model     llm.Model
	executor  Executor
	cfg       Config
	observers []Observer
}

// NewTurn создаёт оркестратор. Конфигурация проверяется сразу.
func NewTurn(model llm.Model, executor Executor, opts ...Option) (*Turn, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}

	t := &Turn{model: model, executor: executor, cfg: NewConfig()}
	for _, opt := range opts {
		opt(t)
	}
	if t.cfg.MaxRounds == 0 {
		t.cfg.MaxRounds = DefaultMaxRounds
	}
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Run выполняет ход. Дополнительные наблюдатели действуют только на этот вызов
// (например, эмиттер SSE-запроса).
func (t *Turn) Run(ctx context.Context, in Input, extra ...Observer) (Output, error) {
	observers := append(append([]Observer(nil), t.observers...), extra...)
	run := &turnRun{turn: t, observers: observers, start: time.Now()}

	out, err := run.execute(ctx, in)
	out.Duration = time.Since(run.start)
	for _, o := range observers {
		o.OnFinish(ctx, out, err)
	}
	return out, err
}

// turnRun — состояние одного вызова Run.
type turnRun struct {
	turn      *Turn
	observers []Observer
	start     time.Time
}

func (r *turnRun) phase(ctx context.Context, p Phase, round int) {
	for _, o := range r.observers {
		o.OnPhase(ctx, p, round)
	}
}

func (r *turnRun) execute(ctx context.Context, in Input) (Output, error) {
	var out Output
	if strings.TrimSpace(in.Conversation.Input) == "" {
		return out, ErrEmptyInput
	}

	defs := r.turn.executor.Registry().Definitions()
	opts := r.generateOptions(ctx)

	// 1. Start
	r.phase(ctx, PhaseStart, 0)
	resp, err := r.turn.model.Invoke(ctx, in.Conversation, defs, opts...)
	if err != nil {
		return out, &ModelError{Phase: PhaseStart, Err: err}
	}
	out.Usage = out.Usage.Add(resp.Usage)
	out.ResponseID = resp.ID
	r.phase(ctx, PhaseModelResponded, 0)

	// 2. Tool rounds
	for resp.HasToolCalls() {
		if out.Rounds >= r.turn.cfg.MaxRounds {
			out.RoundLimitReached = true
			utils.Warn("Turn round limit reached",
				"conversation_id", in.Conversation.ID,
				"max_rounds", r.turn.cfg.MaxRounds,
				"pending_tool_calls", len(resp.ToolCalls))
			break
		}
		out.Rounds++
		r.phase(ctx, PhaseExecutingTools, out.Rounds)

		results := r.executeTools(ctx, resp.ToolCalls, out.Rounds)
		out.ToolResults = append(out.ToolResults, results...)

		outputs := make([]llm.ToolOutput, len(results))
		for i, res := range results {
			outputs[i] = llm.ToolOutput{CallID: res.CallID, Output: res.Output, IsError: res.IsError}
		}

		resp, err = r.turn.model.Continue(ctx, resp.ID, outputs, defs, opts...)
		if err != nil {
			return out, &ModelError{Phase: PhaseExecutingTools, Round: out.Rounds, Err: err}
		}
		out.Usage = out.Usage.Add(resp.Usage)
		out.ResponseID = resp.ID
		r.phase(ctx, PhaseModelResponded, out.Rounds)
	}

	// 3. Лимит: висящие вызовы закрываются, последний запрос без инструментов
	if out.RoundLimitReached {
		resp, err = r.wrapUp(ctx, resp, opts)
		if err != nil {
			return out, &ModelError{Phase: PhaseExecutingTools, Round: out.Rounds, Err: err}
		}
		out.Usage = out.Usage.Add(resp.Usage)
		out.ResponseID = resp.ID
		r.phase(ctx, PhaseModelResponded, out.Rounds)
	}

	// 4. Done
	out.Message = resp.Text()
	r.phase(ctx, PhaseDone, out.Rounds)
	return out, nil
}

// wrapUp отвечает на невыполненные вызовы ошибкой лимита и просит модель
// ответить текстом. Цепочка разговора не должна заканчиваться tool_calls без ответов.
func (r *turnRun) wrapUp(ctx context.Context, resp llm.Response, opts []llm.GenerateOption) (llm.Response, error) {
	outputs := make([]llm.ToolOutput, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		outputs[i] = llm.ToolOutput{CallID: call.ID, Output: RoundLimitOutput, IsError: true}
	}
	return r.turn.model.Continue(ctx, resp.ID, outputs, nil, opts...)
}

func (r *turnRun) executeTools(ctx context.Context, calls []llm.ToolCall, round int) []tools.CallResult {
	reqs := make([]tools.CallRequest, len(calls))
	for i, call := range calls {
		reqs[i] = tools.CallRequest{CallID: call.ID, ToolName: call.Name, Arguments: call.Args}
		for _, o := range r.observers {
			o.OnToolCall(ctx, call, round)
		}
	}

	results := r.turn.executor.ExecuteAll(ctx, reqs)
	for _, res := range results {
		for _, o := range r.observers {
			o.OnToolResult(ctx, res)
		}
	}
	return results
}

// generateOptions добавляет стриминг, если он включён и кто-то слушает порции.
func (r *turnRun) generateOptions(ctx context.Context) []llm.GenerateOption {
	opts := append([]llm.GenerateOption(nil), r.turn.cfg.GenerateOptions...)
	if !r.turn.cfg.Stream {
		return opts
	}
	return append(opts, llm.WithStream(func(chunk llm.StreamChunk) {
		if chunk.Type != llm.ChunkContent {
			return
		}
		for _, o := range r.observers {
			o.OnChunk(ctx, chunk)
		}
	}))
}
