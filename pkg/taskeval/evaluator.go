package taskeval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/prompts"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// ErrEmptyTask — текст задачи пуст.
var ErrEmptyTask = errors.New("task text is required")

// Evaluation — ответ оценки. Summary и StarterQuery заданы только при CanHandle.
type Evaluation struct {
	CanHandle    bool        `json:"canHandle"`
	Summary      string      `json:"summary,omitempty"`
	StarterQuery string      `json:"starterQuery,omitempty"`
	Hint         *Suggestion `json:"hint,omitempty"`
	QuickActions []string    `json:"quickActions,omitempty"`
}

// Evaluator спрашивает модель, может ли Bellhop взяться за задачу.
type Evaluator struct {
	model      llm.Model
	prompts    *prompts.Builder
	defs       []tools.ToolDefinition
	recognizer *Recognizer
}

// NewEvaluator создаёт оценщик. defs — каталог, который видит агент.
func NewEvaluator(model llm.Model, builder *prompts.Builder, defs []tools.ToolDefinition) *Evaluator {
	return &Evaluator{model: model, prompts: builder, defs: defs, recognizer: NewRecognizer()}
}

// Evaluate оценивает задачу.
//
// Ответ модели превращается в {canHandle:false}, если не хватает summary
// или starterQuery. Ошибка возвращается при сбое модели или неразбираемом
// ответе; вызывающий отвечает {canHandle:false}.
func (e *Evaluator) Evaluate(ctx context.Context, text string) (Evaluation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Evaluation{}, ErrEmptyTask
	}

	system, cfg, err := e.prompts.Evaluate(e.defs)
	if err != nil {
		return Evaluation{}, fmt.Errorf("build evaluation prompt: %w", err)
	}

	opts := []llm.GenerateOption{llm.WithTemperature(0), llm.WithFormat("json_object")}
	if cfg.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.Temperature))
	}
	if cfg.Format != "" {
		opts = append(opts, llm.WithFormat(cfg.Format))
	}
	if cfg.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Model))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}

	start := time.Now()
	resp, err := e.model.Complete(ctx, system, prompts.EvaluationPrompt(text), opts...)
	if err != nil {
		utils.Error("Task evaluation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Evaluation{}, fmt.Errorf("evaluate task: %w", err)
	}

	var raw struct {
		CanHandle    bool   `json:"canHandle"`
		Summary      string `json:"summary"`
		StarterQuery string `json:"starterQuery"`
	}
	body := ""
	if t := resp.Text(); t != nil {
		body = utils.ExtractJSON(*t)
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		utils.Error("Task evaluation returned invalid JSON", "error", err, "body", body)
		return Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}

	utils.Info("Task evaluated",
		"can_handle", raw.CanHandle,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)

	if !raw.CanHandle || strings.TrimSpace(raw.Summary) == "" || strings.TrimSpace(raw.StarterQuery) == "" {
		return Evaluation{CanHandle: false}, nil
	}

	eval := Evaluation{CanHandle: true, Summary: raw.Summary, StarterQuery: raw.StarterQuery}
	eval.Hint, eval.QuickActions = e.recognizer.QuickActions(text)
	return eval, nil
}
