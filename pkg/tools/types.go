// Package tools содержит каталог инструментов, доступных модели, и их исполнитель.
//
// Инструмент описывается ToolDefinition (имя, описание, JSON Schema аргументов)
// и реализует Tool: "Raw In, String Out" — на входе проверенный JSON аргументов,
// на выходе JSON-результат.
package tools

import (
	"context"
	"time"
)

// JSONSchema представляет JSON Schema для параметров инструмента.
//
// Формат соответствует JSON Schema, который принимает Function Calling API,
// и одновременно используется для проверки аргументов перед вызовом.
type JSONSchema map[string]any

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`

	// Mutating помечает инструменты, которые пишут в хранилище. Модели не передаётся.
	Mutating bool `json:"-"`
}

// Tool — контракт, который должен реализовать любой инструмент.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// argsJSON уже проверен по схеме из Definition().
	// Возвращает JSON результата. Ошибка означает сбой, который исполнитель
	// превратит в {"success":false,...}.
	Execute(ctx context.Context, argsJSON string) (string, error)
}

// CallRequest — один tool call, запрошенный моделью.
type CallRequest struct {
	CallID   string
	ToolName string

	// Arguments — сырые аргументы: JSON-строка (в том числе в markdown-обёртке),
	// []byte, json.RawMessage или уже разобранное значение.
	Arguments any
}

// CallResult — результат одного tool call для передачи модели.
type CallResult struct {
	CallID   string        `json:"callId"`
	ToolName string        `json:"toolName"`
	Output   string        `json:"output"`
	IsError  bool          `json:"isError"`
	Duration time.Duration `json:"-"`
}
