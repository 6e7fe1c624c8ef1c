package llm

// ChunkType — тип порции потокового ответа.
type ChunkType string

const (
	// ChunkContent — очередная порция текста.
	ChunkContent ChunkType = "content"

	// ChunkToolCall — модель начала вызов инструмента (Delta содержит имя).
	ChunkToolCall ChunkType = "tool_call"

	// ChunkDone — поток завершён.
	ChunkDone ChunkType = "done"
)

// StreamChunk — одна порция потокового ответа.
//
// Delta — новая часть, Content — накопленный текст текущего ответа.
type StreamChunk struct {
	Type    ChunkType
	Delta   string
	Content string
}
