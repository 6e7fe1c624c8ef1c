package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ilkoid/bellhop/pkg/utils"
)

// DefaultToolTimeout — защитный таймаут инструмента, если не задан другой.
const DefaultToolTimeout = 30 * time.Second

// Executor превращает CallRequest в CallResult.
//
// Модель всегда получает корректный JSON-ответ: неизвестный инструмент,
// невалидные аргументы, ошибка, panic и таймаут становятся структурированными
// ошибками. Состояния между вызовами нет.
type Executor struct {
	registry       *Registry
	defaultTimeout time.Duration
	toolTimeouts   map[string]time.Duration
}

// ExecutorOption настраивает Executor.
type ExecutorOption func(*Executor)

// WithDefaultTimeout задаёт таймаут для всех инструментов.
func WithDefaultTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// WithToolTimeout переопределяет таймаут конкретного инструмента.
func WithToolTimeout(name string, d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.toolTimeouts[name] = d
		}
	}
}

// WithToolTimeouts переопределяет таймауты нескольких инструментов.
func WithToolTimeouts(timeouts map[string]time.Duration) ExecutorOption {
	return func(e *Executor) {
		for name, d := range timeouts {
			WithToolTimeout(name, d)(e)
		}
	}
}

// NewExecutor создаёт исполнитель поверх реестра.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:       registry,
		defaultTimeout: DefaultToolTimeout,
		toolTimeouts:   make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry возвращает каталог, с которым работает исполнитель.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Timeout возвращает таймаут для инструмента.
func (e *Executor) Timeout(name string) time.Duration {
	if d, ok := e.toolTimeouts[name]; ok {
		return d
	}
	return e.defaultTimeout
}

// Failure — стандартная форма ошибки инструмента.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FailureJSON сериализует Failure{success:false}.
func FailureJSON(errMsg, details string) string {
	return mustJSON(Failure{Success: false, Error: errMsg, Details: details})
}

// UnknownToolJSON — ответ на вызов инструмента, которого нет в каталоге.
func UnknownToolJSON(name string) string {
	return mustJSON(map[string]string{"error": "Unknown tool: " + name})
}

type validationPayload struct {
	Error            string       `json:"error"`
	ValidationErrors []FieldError `json:"validationErrors"`
}

// Execute выполняет один tool call.
//
// Шаги: resolve → validate → execute (с таймаутом и recover) → serialize.
// Никогда не паникует и не возвращает ошибку: всё оказывается в CallResult.
func (e *Executor) Execute(ctx context.Context, req CallRequest) CallResult {
	start := time.Now()
	result := CallResult{CallID: req.CallID, ToolName: req.ToolName}

	finish := func(output string, isError bool) CallResult {
		result.Output = output
		result.IsError = isError || payloadIsError(output)
		result.Duration = time.Since(start)
		utils.Debug("Tool call finished",
			"tool", req.ToolName,
			"call_id", req.CallID,
			"is_error", result.IsError,
			"duration_ms", result.Duration.Milliseconds())
		return result
	}

	// 1. Resolve
	tool, err := e.registry.Get(req.ToolName)
	if err != nil {
		utils.Warn("Unknown tool requested", "tool", req.ToolName, "call_id", req.CallID)
		return finish(UnknownToolJSON(req.ToolName), true)
	}

	// 2. Validate
	args, err := normalizeArguments(req.Arguments)
	if err != nil {
		return finish(mustJSON(validationPayload{
			Error:            fmt.Sprintf("Invalid arguments for tool %s", req.ToolName),
			ValidationErrors: []FieldError{{Field: rootField, Reason: err.Error()}},
		}), true)
	}
	if fields := e.registry.schemaFor(req.ToolName).Validate(args); len(fields) > 0 {
		utils.Info("Tool arguments rejected",
			"tool", req.ToolName,
			"error", (&ValidationError{Tool: req.ToolName, Fields: fields}).Error())
		return finish(mustJSON(validationPayload{
			Error:            fmt.Sprintf("Invalid arguments for tool %s", req.ToolName),
			ValidationErrors: fields,
		}), true)
	}

	// 3. Execute
	output, execErr := e.run(ctx, tool, req.ToolName, string(args))
	if execErr != nil {
		return finish(execErr.payload(), true)
	}

	// 4. Serialize
	return finish(output, false)
}

// ExecuteAll выполняет tool calls одного раунда конкурентно и ждёт все (barrier).
// Результаты возвращаются в порядке запросов.
func (e *Executor) ExecuteAll(ctx context.Context, reqs []CallRequest) []CallResult {
	results := make([]CallResult, len(reqs))

	if len(reqs) == 1 {
		results[0] = e.Execute(ctx, reqs[0])
		return results
	}

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Execute(ctx, reqs[i])
		}(i)
	}
	wg.Wait()

	return results
}

// execError — сбой на шаге execute.
type execError struct {
	kind    string
	details string
}

func (e *execError) payload() string {
	return FailureJSON(e.kind, e.details)
}

// run запускает инструмент в отдельной goroutine, чтобы зависший инструмент
// не блокировал ход агента дольше таймаута.
func (e *Executor) run(ctx context.Context, tool Tool, name, args string) (string, *execError) {
	timeout := e.Timeout(name)
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		output string
		err    error
		panic  any
	}
	resultChan := make(chan execResult, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				utils.Error("Tool panicked",
					"tool", name,
					"panic", p,
					"stack", string(debug.Stack()))
				resultChan <- execResult{panic: p}
			}
		}()
		out, err := tool.Execute(toolCtx, args)
		resultChan <- execResult{output: out, err: err}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			utils.Warn("Tool execution timeout", "tool", name, "timeout", timeout)
			return "", &execError{
				kind:    "Tool timed out",
				details: fmt.Sprintf("Tool %q exceeded timeout of %v", name, timeout),
			}
		}
		return "", &execError{kind: "Tool cancelled", details: toolCtx.Err().Error()}

	case res := <-resultChan:
		switch {
		case res.panic != nil:
			return "", &execError{kind: "Tool panicked", details: fmt.Sprint(res.panic)}
		case res.err != nil:
			utils.Error("Tool execution failed", "tool", name, "error", res.err)
			return "", &execError{kind: "Tool execution failed", details: res.err.Error()}
		}
		return res.output, nil
	}
}

// normalizeArguments приводит сырые аргументы к JSON-байтам.
// Пустые аргументы считаются пустым объектом.
func normalizeArguments(raw any) ([]byte, error) {
	var s string
	switch v := raw.(type) {
	case nil:
		return []byte("{}"), nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case json.RawMessage:
		s = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("arguments are not JSON-serializable: %w", err)
		}
		return b, nil
	}

	s = utils.CleanJsonBlock(s)
	if s == "" {
		return []byte("{}"), nil
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New("arguments are not valid JSON")
	}
	return []byte(s), nil
}

// payloadIsError распознаёт доменные ошибки в ответе инструмента:
// непустое поле error или success == false.
func payloadIsError(output string) bool {
	var head struct {
		Error   any   `json:"error"`
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(output), &head); err != nil {
		return false
	}
	if head.Success != nil && !*head.Success {
		return true
	}
	switch v := head.Error.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Только для собственных типов пакета, marshal которых не падает
		return `{"success":false,"error":"internal serialization error"}`
	}
	return string(b)
}
