package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Text(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   *string
	}{
		{"no blocks", nil, nil},
		{"only empty blocks", []string{"", ""}, nil},
		{"single", []string{"Rates updated."}, strPtr("Rates updated.")},
		{"joined with newline", []string{"First.", "", "Second."}, strPtr("First.\nSecond.")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Response{TextBlocks: tt.blocks}.Text()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestApplyOptions(t *testing.T) {
	var chunks []StreamChunk
	opts := ApplyOptions(GenerateOptions{Model: "base", MaxTokens: 100},
		WithTemperature(0),
		WithFormat("json_object"),
		WithStream(func(c StreamChunk) { chunks = append(chunks, c) }),
		nil,
	)

	assert.Equal(t, "base", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.0, *opts.Temperature)
	assert.Equal(t, "json_object", opts.Format)
	require.NotNil(t, opts.OnChunk)

	opts.OnChunk(StreamChunk{Type: ChunkContent, Delta: "a"})
	assert.Len(t, chunks, 1)
}

func strPtr(s string) *string { return &s }
