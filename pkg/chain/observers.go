package chain

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// Observer наблюдает за ходом. Сквозные задачи (события UI, логи) живут
// в наблюдателях, а не в цикле хода.
//
// OnToolCall и OnToolResult могут вызываться из одной горутины подряд
// для всех вызовов раунда; OnChunk вызывается из горутины стриминга модели.
type Observer interface {
	OnPhase(ctx context.Context, phase Phase, round int)
	OnToolCall(ctx context.Context, call llm.ToolCall, round int)
	OnToolResult(ctx context.Context, result tools.CallResult)
	OnChunk(ctx context.Context, chunk llm.StreamChunk)
	OnFinish(ctx context.Context, out Output, err error)
}

// BaseObserver — пустая реализация для встраивания.
type BaseObserver struct{}

func (BaseObserver) OnPhase(context.Context, Phase, int) {}
func (BaseObserver) OnToolCall(context.Context, llm.ToolCall, int) {}
func (BaseObserver) OnToolResult(context.Context, tools.CallResult) {}
func (BaseObserver) OnChunk(context.Context, llm.StreamChunk) {}
func (BaseObserver) OnFinish(context.Context, Output, error) {}

// EmitterObserver переводит ход в события pkg/events.
//
// OnFinish отправляет только EventMessage или EventError: EventUsage и
// EventDone отправляет agent, когда расход разговора уже учтён.
type EmitterObserver struct {
	emitter events.Emitter
}

// NewEmitterObserver создаёт наблюдателя; nil-эмиттер заменяется на events.Nop.
func NewEmitterObserver(emitter events.Emitter) *EmitterObserver {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &EmitterObserver{emitter: emitter}
}

func (o *EmitterObserver) OnPhase(context.Context, Phase, int) {}

func (o *EmitterObserver) OnToolCall(ctx context.Context, call llm.ToolCall, round int) {
	o.emitter.Emit(ctx, events.New(events.EventToolCall, events.ToolCallData{
		CallID:   call.ID,
		ToolName: call.Name,
		Args:     call.Args,
		Round:    round,
	}))
}

func (o *EmitterObserver) OnToolResult(ctx context.Context, res tools.CallResult) {
	o.emitter.Emit(ctx, events.New(events.EventToolResult, events.ToolResultData{
		CallID:   res.CallID,
		ToolName: res.ToolName,
		Result:   res.Output,
		IsError:  res.IsError,
		Duration: res.Duration,
	}))
}

func (o *EmitterObserver) OnChunk(ctx context.Context, chunk llm.StreamChunk) {
	o.emitter.Emit(ctx, events.New(events.EventChunk, events.ChunkData{
		Delta:       chunk.Delta,
		Accumulated: chunk.Content,
	}))
}

func (o *EmitterObserver) OnFinish(ctx context.Context, out Output, err error) {
	if err != nil {
		o.emitter.Emit(ctx, events.New(events.EventError, events.ErrorData{Err: err}))
		return
	}
	o.emitter.Emit(ctx, events.New(events.EventMessage, events.MessageData{
		Content:           out.Message,
		RoundLimitReached: out.RoundLimitReached,
	}))
}

// LogObserver пишет ход в лог приложения.
type LogObserver struct {
	BaseObserver
	conversationID string
}

// NewLogObserver создаёт наблюдателя для разговора conversationID.
func NewLogObserver(conversationID string) *LogObserver {
	return &LogObserver{conversationID: conversationID}
}

func (o *LogObserver) OnPhase(_ context.Context, phase Phase, round int) {
	utils.Debug("Turn phase", "conversation_id", o.conversationID, "phase", phase, "round", round)
}

func (o *LogObserver) OnToolCall(_ context.Context, call llm.ToolCall, round int) {
	utils.Info("Tool call requested",
		"conversation_id", o.conversationID,
		"tool", call.Name,
		"call_id", call.ID,
		"round", round)
}

func (o *LogObserver) OnFinish(_ context.Context, out Output, err error) {
	if err != nil {
		utils.Error("Turn failed",
			"conversation_id", o.conversationID,
			"rounds", out.Rounds,
			"error", err)
		return
	}
	utils.Info("Turn finished",
		"conversation_id", o.conversationID,
		"rounds", out.Rounds,
		"round_limit_reached", out.RoundLimitReached,
		"total_tokens", out.Usage.TotalTokens,
		"duration_ms", out.Duration.Milliseconds())
}

var (
	_ Observer = BaseObserver{}
	_ Observer = (*EmitterObserver)(nil)
	_ Observer = (*LogObserver)(nil)
)
