package llm

// GenerateOptions — параметры генерации, переопределяющие значения из config.yaml.
type GenerateOptions struct {
	// Model — идентификатор модели у провайдера.
	Model string

	// Temperature; nil — значение из конфигурации.
	Temperature *float64

	// MaxTokens ограничивает длину ответа; 0 — значение из конфигурации.
	MaxTokens int

	// Format — формат ответа ("json_object" для структурированного вывода).
	Format string

	// OnChunk включает стриминг: вызывается для каждой порции ответа.
	OnChunk func(StreamChunk)
}

// GenerateOption — функциональная опция для GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithModel задаёт модель.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature задаёт температуру.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &temp
	}
}

// WithMaxTokens задаёт лимит токенов ответа.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithFormat задаёт формат ответа, например "json_object".
func WithFormat(format string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = format
	}
}

// WithStream включает стриминг с обработчиком порций.
func WithStream(onChunk func(StreamChunk)) GenerateOption {
	return func(o *GenerateOptions) {
		o.OnChunk = onChunk
	}
}

// ApplyOptions собирает опции поверх базовых значений.
func ApplyOptions(base GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	return base
}
