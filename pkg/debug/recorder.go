package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/bellhop/pkg/chain"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// RecorderConfig — настройки записи трейсов.
type RecorderConfig struct {
	// LogsDir — директория для файлов трейсов; создаётся при необходимости
	LogsDir string

	// IncludeToolArgs — сохранять аргументы инструментов
	IncludeToolArgs bool

	// IncludeToolResults — сохранять результаты инструментов
	IncludeToolResults bool

	// MaxResultSize обрезает результаты; 0 — без ограничений
	MaxResultSize int
}

// DefaultRecorderConfig пишет аргументы и результаты до 4 КБ.
func DefaultRecorderConfig(dir string) RecorderConfig {
	return RecorderConfig{
		LogsDir:            dir,
		IncludeToolArgs:    true,
		IncludeToolResults: true,
		MaxResultSize:      4096,
	}
}

// Recorder записывает один ход и сохраняет трейс в OnFinish.
//
// Реализует chain.Observer. Потокобезопасен: результаты инструментов
// одного раунда приходят из параллельных горутин.
type Recorder struct {
	chain.BaseObserver

	mu      sync.Mutex
	config  RecorderConfig
	trace   TurnTrace
	started time.Time
	visited map[string]struct{}

	// path — куда записан трейс; пусто до OnFinish
	path string
}

// NewRecorder начинает трейс хода.
func NewRecorder(cfg RecorderConfig, conversationID, input string) *Recorder {
	now := time.Now()
	return &Recorder{
		config: cfg,
		trace: TurnTrace{
			RunID:          fmt.Sprintf("trace_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8]),
			ConversationID: conversationID,
			Timestamp:      now,
			Input:          input,
		},
		started: now,
		visited: make(map[string]struct{}),
	}
}

// Factory возвращает фабрику рекордеров для agent.WithTurnObserver.
func Factory(cfg RecorderConfig) func(conversationID, input string) chain.Observer {
	return func(conversationID, input string) chain.Observer {
		return NewRecorder(cfg, conversationID, input)
	}
}

// round возвращает раунд с номером n, создавая его. Вызывать под mu.
func (r *Recorder) round(n int) *Round {
	for i := range r.trace.Rounds {
		if r.trace.Rounds[i].Number == n {
			return &r.trace.Rounds[i]
		}
	}
	r.trace.Rounds = append(r.trace.Rounds, Round{Number: n})
	return &r.trace.Rounds[len(r.trace.Rounds)-1]
}

func (r *Recorder) OnToolCall(_ context.Context, call llm.ToolCall, round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := ToolCallInfo{ID: call.ID, Name: call.Name}
	if r.config.IncludeToolArgs {
		info.Args = call.Args
	}
	rd := r.round(round)
	rd.ToolCalls = append(rd.ToolCalls, info)
}

func (r *Recorder) OnToolResult(_ context.Context, res tools.CallResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exec := ToolExecution{
		CallID:   res.CallID,
		Name:     res.ToolName,
		Duration: res.Duration.Milliseconds(),
		Success:  !res.IsError,
	}
	if r.config.IncludeToolResults {
		exec.Result, exec.ResultTruncated = truncate(res.Output, r.config.MaxResultSize)
	}
	if res.IsError {
		msg, _ := truncate(res.Output, 200)
		r.trace.Summary.Errors = append(r.trace.Summary.Errors, fmt.Sprintf("tool %s: %s", res.ToolName, msg))
	}

	// Результат относится к раунду, в котором был вызов
	rd := r.lastRoundWithCall(res.CallID)
	rd.ToolsExecuted = append(rd.ToolsExecuted, exec)
	r.visited[res.ToolName] = struct{}{}
}

func (r *Recorder) lastRoundWithCall(callID string) *Round {
	for i := len(r.trace.Rounds) - 1; i >= 0; i-- {
		for _, c := range r.trace.Rounds[i].ToolCalls {
			if c.ID == callID {
				return &r.trace.Rounds[i]
			}
		}
	}
	if len(r.trace.Rounds) == 0 {
		return r.round(1)
	}
	return &r.trace.Rounds[len(r.trace.Rounds)-1]
}

// OnFinish дописывает итог хода и сохраняет файл. Ошибка записи только логируется.
func (r *Recorder) OnFinish(_ context.Context, out chain.Output, err error) {
	path, saveErr := r.Finalize(out, err)
	if saveErr != nil {
		utils.Warn("Failed to save turn trace", "conversation_id", r.trace.ConversationID, "error", saveErr)
		return
	}
	utils.Debug("Turn trace saved", "path", path)
}

// Finalize заполняет итог и записывает трейс. Возвращает путь к файлу.
func (r *Recorder) Finalize(out chain.Output, turnErr error) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trace.Duration = time.Since(r.started).Milliseconds()
	if out.Message != nil {
		r.trace.FinalMessage = *out.Message
	}
	r.trace.RoundLimitReached = out.RoundLimitReached
	r.trace.Usage = out.Usage
	if turnErr != nil {
		r.trace.Error = turnErr.Error()
		r.trace.Summary.Errors = append(r.trace.Summary.Errors, turnErr.Error())
	}
	r.buildSummary()

	data, err := json.MarshalIndent(r.trace, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal turn trace: %w", err)
	}

	dir := r.config.LogsDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create traces directory: %w", err)
	}
	path := filepath.Join(dir, r.trace.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write turn trace: %w", err)
	}
	r.path = path
	return path, nil
}

func (r *Recorder) buildSummary() {
	s := &r.trace.Summary
	s.TotalToolsExecuted = 0
	s.TotalToolDuration = 0
	for _, rd := range r.trace.Rounds {
		for _, exec := range rd.ToolsExecuted {
			s.TotalToolsExecuted++
			s.TotalToolDuration += exec.Duration
		}
	}

	s.VisitedTools = make([]string, 0, len(r.visited))
	for name := range r.visited {
		s.VisitedTools = append(s.VisitedTools, name)
	}
	sort.Strings(s.VisitedTools)
}

// Path возвращает путь к записанному трейсу.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// truncate обрезает строку до maxSize байт (0 — без ограничения).
func truncate(s string, maxSize int) (string, bool) {
	if maxSize <= 0 || len(s) <= maxSize {
		return s, false
	}
	return s[:maxSize] + "... (truncated)", true
}
