// Package openai реализует llm.Model поверх OpenAI-совместимого Chat Completions API.
//
// Поддерживает Function Calling, стриминг с include_usage и цепочки
// ответов по ID (previous response) на стороне клиента.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/usage"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// ErrUnknownResponse — Continue вызван с ID, которого нет в хранилище цепочек.
var ErrUnknownResponse = errors.New("unknown response id")

// Client реализует llm.Model для OpenAI-совместимых API.
type Client struct {
	api      *openai.Client
	model    string
	defaults llm.GenerateOptions
	stream   bool
	timeout  time.Duration
	pricing  usage.Pricing
	threads  *threadStore
}

var _ llm.Model = (*Client)(nil)

// NewClient создает клиент на основе конфигурации модели.
//
// Поддерживает custom BaseURL для OpenAI-совместимых провайдеров.
func NewClient(modelDef config.ModelDef) *Client {
	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}

	defaults := llm.GenerateOptions{
		Model:     modelDef.ModelName,
		MaxTokens: modelDef.MaxTokens,
	}
	if modelDef.Temperature != 0 {
		t := modelDef.Temperature
		defaults.Temperature = &t
	}

	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		model:    modelDef.ModelName,
		defaults: defaults,
		stream:   modelDef.Stream,
		timeout:  modelDef.Timeout,
		pricing: usage.Pricing{
			InputPerMillion:  modelDef.Pricing.InputPerMillion,
			OutputPerMillion: modelDef.Pricing.OutputPerMillion,
		},
		threads: newThreadStore(DefaultMaxThreads),
	}
}

// Invoke отправляет ввод пользователя, продолжая цепочку conv.PreviousResponseID.
//
// Если предыдущий ответ не найден (рестарт процесса, вытеснение),
// разговор начинается заново с системным промптом.
func (c *Client) Invoke(ctx context.Context, conv llm.Conversation, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, error) {
	var messages []openai.ChatCompletionMessage
	if conv.PreviousResponseID != "" {
		prev, ok := c.threads.get(conv.PreviousResponseID)
		if ok {
			messages = closePendingToolCalls(prev)
		} else {
			utils.Warn("Previous response not found, starting new thread",
				"conversation", conv.ID,
				"response_id", conv.PreviousResponseID)
		}
	}
	if len(messages) == 0 && conv.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: conv.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: conv.Input,
	})

	return c.send(ctx, messages, defs, opts...)
}

// skippedToolOutput — ответ на вызов, который так и не был выполнен.
const skippedToolOutput = `{"error":"Tool call was not executed"}`

// closePendingToolCalls дописывает ответы на вызовы последнего сообщения
// assistant, оставшиеся без tool-сообщений. API не принимает user-сообщение
// сразу после tool_calls.
func closePendingToolCalls(messages []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	answered := make(map[string]bool)
	i := len(messages) - 1
	for ; i >= 0 && messages[i].Role == openai.ChatMessageRoleTool; i-- {
		answered[messages[i].ToolCallID] = true
	}
	if i < 0 || messages[i].Role != openai.ChatMessageRoleAssistant {
		return messages
	}
	for _, tc := range messages[i].ToolCalls {
		if answered[tc.ID] {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    skippedToolOutput,
			ToolCallID: tc.ID,
		})
	}
	return messages
}

// Continue добавляет результаты инструментов к ответу previousResponseID.
func (c *Client) Continue(ctx context.Context, previousResponseID string, outputs []llm.ToolOutput, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, error) {
	messages, ok := c.threads.get(previousResponseID)
	if !ok {
		return llm.Response{}, fmt.Errorf("%w: %s", ErrUnknownResponse, previousResponseID)
	}

	for _, out := range outputs {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    out.Output,
			ToolCallID: out.CallID,
		})
	}

	return c.send(ctx, messages, defs, opts...)
}

// Complete выполняет разовый запрос без инструментов. Цепочка не сохраняется.
func (c *Client) Complete(ctx context.Context, system, prompt string, opts ...llm.GenerateOption) (llm.Response, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	resp, _, err := c.call(ctx, messages, nil, opts...)
	return resp, err
}

// send вызывает модель и сохраняет транскрипт под новым ID ответа.
func (c *Client) send(ctx context.Context, messages []openai.ChatCompletionMessage, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, error) {
	resp, assistant, err := c.call(ctx, messages, defs, opts...)
	if err != nil {
		return llm.Response{}, err
	}

	c.threads.put(resp.ID, append(messages, assistant))
	return resp, nil
}

// call выполняет запрос (обычный или потоковый) и маппит ответ.
func (c *Client) call(ctx context.Context, messages []openai.ChatCompletionMessage, defs []tools.ToolDefinition, opts ...llm.GenerateOption) (llm.Response, openai.ChatCompletionMessage, error) {
	startTime := time.Now()
	options := llm.ApplyOptions(c.defaults, opts...)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := c.buildRequest(messages, defs, options)

	utils.Debug("LLM request started",
		"model", req.Model,
		"messages_count", len(messages),
		"tools_count", len(defs),
		"stream", options.OnChunk != nil || c.stream)

	var (
		assistant openai.ChatCompletionMessage
		u         openai.Usage
		err       error
	)
	if options.OnChunk != nil || c.stream {
		assistant, u, err = c.callStream(ctx, req, options.OnChunk)
	} else {
		assistant, u, err = c.callSync(ctx, req)
	}
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Response{}, openai.ChatCompletionMessage{}, err
	}

	result := llm.Response{
		ID: "resp_" + uuid.NewString(),
		Usage: c.pricing.Apply(usage.Usage{
			InputTokens:  u.PromptTokens,
			OutputTokens: u.CompletionTokens,
			TotalTokens:  u.TotalTokens,
		}),
	}
	if assistant.Content != "" {
		result.TextBlocks = append(result.TextBlocks, assistant.Content)
	}
	if assistant.Refusal != "" {
		result.TextBlocks = append(result.TextBlocks, assistant.Refusal)
	}
	for _, tc := range assistant.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: tc.Function.Arguments,
		})
	}

	utils.Info("LLM response received",
		"model", req.Model,
		"response_id", result.ID,
		"tool_calls_count", len(result.ToolCalls),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, assistant, nil
}

func (c *Client) buildRequest(messages []openai.ChatCompletionMessage, defs []tools.ToolDefinition, options llm.GenerateOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if options.Temperature != nil {
		// Temperature с omitempty: ноль не попадёт в запрос
		req.Temperature = float32(*options.Temperature)
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if options.Format == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if len(defs) > 0 {
		req.Tools = convertToolsToOpenAI(defs)
		// LLM сама решает когда вызывать tools
		req.ToolChoice = "auto"
	}
	return req
}

func (c *Client) callSync(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionMessage, openai.Usage, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, openai.Usage{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, openai.Usage{}, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	msg.Role = openai.ChatMessageRoleAssistant
	return msg, resp.Usage, nil
}

// callStream собирает потоковый ответ: текст, фрагменты аргументов tool calls
// по индексу и usage из финального чанка.
func (c *Client) callStream(ctx context.Context, req openai.ChatCompletionRequest, onChunk func(llm.StreamChunk)) (openai.ChatCompletionMessage, openai.Usage, error) {
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, openai.Usage{}, fmt.Errorf("openai stream error: %w", err)
	}
	defer stream.Close()

	emit := func(chunk llm.StreamChunk) {
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	var (
		content strings.Builder
		calls   []openai.ToolCall
		byIndex = make(map[int]int)
		u       openai.Usage
	)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return openai.ChatCompletionMessage{}, openai.Usage{}, fmt.Errorf("openai stream error: %w", err)
		}

		if chunk.Usage != nil {
			u = *chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			emit(llm.StreamChunk{Type: llm.ChunkContent, Delta: delta.Content, Content: content.String()})
		}

		for _, tc := range delta.ToolCalls {
			idx := len(calls)
			if tc.Index != nil {
				idx = *tc.Index
			}
			pos, seen := byIndex[idx]
			if !seen {
				pos = len(calls)
				byIndex[idx] = pos
				calls = append(calls, openai.ToolCall{Type: openai.ToolTypeFunction})
			}
			if tc.ID != "" {
				calls[pos].ID = tc.ID
			}
			if tc.Function.Name != "" {
				calls[pos].Function.Name += tc.Function.Name
				emit(llm.StreamChunk{Type: llm.ChunkToolCall, Delta: tc.Function.Name})
			}
			calls[pos].Function.Arguments += tc.Function.Arguments
		}
	}

	emit(llm.StreamChunk{Type: llm.ChunkDone, Content: content.String()})

	return openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   content.String(),
		ToolCalls: calls,
	}, u, nil
}

// convertToolsToOpenAI конвертирует определения инструментов в формат
// OpenAI Function Calling. Parameters уже являются JSON Schema и передаются как есть.
func convertToolsToOpenAI(defs []tools.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))

	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  map[string]any(def.Parameters),
			},
		}
	}

	return result
}
