package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts []ExecutorOption, tools ...Tool) *Executor {
	t.Helper()
	r, err := NewRegistry(tools...)
	require.NoError(t, err)
	return NewExecutor(r, opts...)
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestExecutor_UnknownTool(t *testing.T) {
	e := newTestExecutor(t, nil, newMockTool("getRoomRates", nil))

	res := e.Execute(context.Background(), CallRequest{CallID: "call_1", ToolName: "X"})

	assert.Equal(t, "call_1", res.CallID)
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error":"Unknown tool: X"}`, res.Output)
}

func TestExecutor_ValidationRejectsWrongType(t *testing.T) {
	called := false
	tool := newMockTool("updateRoomRates", func(ctx context.Context, argsJSON string) (string, error) {
		called = true
		return `{"success":true}`, nil
	})
	tool.def.Parameters = adjustmentSchema()
	e := newTestExecutor(t, nil, tool)

	res := e.Execute(context.Background(), CallRequest{
		CallID:    "call_1",
		ToolName:  "updateRoomRates",
		Arguments: `{"startDate":"2025-01-01","endDate":"2025-01-02","adjustment":{"type":"percentage","value":"ten","operation":"increase"}}`,
	})

	assert.False(t, called, "handler must not run on invalid arguments")
	assert.True(t, res.IsError)

	payload := decode(t, res.Output)
	assert.Equal(t, "Invalid arguments for tool updateRoomRates", payload["error"])
	fields := payload["validationErrors"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "adjustment.value", fields[0].(map[string]any)["field"])
}

func TestExecutor_ArgumentForms(t *testing.T) {
	var got atomic.Value
	tool := newMockTool("echo", func(ctx context.Context, argsJSON string) (string, error) {
		got.Store(argsJSON)
		return `{"ok":true}`, nil
	})
	e := newTestExecutor(t, nil, tool)

	tests := []struct {
		name string
		args any
		want string
	}{
		{"nil", nil, `{}`},
		{"empty string", "", `{}`},
		{"markdown fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bytes", []byte(`{"a":2}`), `{"a":2}`},
		{"raw message", json.RawMessage(`{"a":3}`), `{"a":3}`},
		{"decoded map", map[string]any{"a": 4}, `{"a":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Execute(context.Background(), CallRequest{CallID: "c", ToolName: "echo", Arguments: tt.args})
			assert.False(t, res.IsError, res.Output)
			assert.JSONEq(t, tt.want, got.Load().(string))
		})
	}

	res := e.Execute(context.Background(), CallRequest{CallID: "c", ToolName: "echo", Arguments: "{not json"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Output, "arguments are not valid JSON")
}

func TestExecutor_ErrorAndPanicAreNormalized(t *testing.T) {
	failing := newMockTool("failing", func(ctx context.Context, argsJSON string) (string, error) {
		return "", errors.New("db is down")
	})
	panicking := newMockTool("panicking", func(ctx context.Context, argsJSON string) (string, error) {
		panic("boom")
	})
	e := newTestExecutor(t, nil, failing, panicking)

	res := e.Execute(context.Background(), CallRequest{CallID: "1", ToolName: "failing"})
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"success":false,"error":"Tool execution failed","details":"db is down"}`, res.Output)

	res = e.Execute(context.Background(), CallRequest{CallID: "2", ToolName: "panicking"})
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"success":false,"error":"Tool panicked","details":"boom"}`, res.Output)
}

func TestExecutor_Timeout(t *testing.T) {
	slow := newMockTool("slow", func(ctx context.Context, argsJSON string) (string, error) {
		select {
		case <-time.After(5 * time.Second):
			return `{"ok":true}`, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	e := newTestExecutor(t, []ExecutorOption{WithToolTimeout("slow", 50*time.Millisecond)}, slow)

	start := time.Now()
	res := e.Execute(context.Background(), CallRequest{CallID: "1", ToolName: "slow"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.IsError)
	payload := decode(t, res.Output)
	assert.Equal(t, "Tool timed out", payload["error"])
	assert.Contains(t, payload["details"], `Tool "slow" exceeded timeout of 50ms`)
	assert.Equal(t, 50*time.Millisecond, e.Timeout("slow"))
	assert.Equal(t, DefaultToolTimeout, e.Timeout("other"))
}

func TestExecutor_DomainErrorPayloadMarksIsError(t *testing.T) {
	refusing := newMockTool("refusing", func(ctx context.Context, argsJSON string) (string, error) {
		return `{"success":false,"error":"User approval required","actionRequired":"user_confirmation"}`, nil
	})
	e := newTestExecutor(t, nil, refusing)

	res := e.Execute(context.Background(), CallRequest{CallID: "1", ToolName: "refusing"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Output, "user_confirmation")
}

func TestExecutor_ExecuteAllRunsConcurrentlyAndKeepsOrder(t *testing.T) {
	var inFlight, maxInFlight int32
	release := make(chan struct{})

	mk := func(name string) Tool {
		return newMockTool(name, func(ctx context.Context, argsJSON string) (string, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			if n == 3 {
				close(release)
			}
			<-release
			atomic.AddInt32(&inFlight, -1)
			return `{"tool":"` + name + `"}`, nil
		})
	}
	e := newTestExecutor(t, nil, mk("a"), mk("b"), mk("c"))

	results := e.ExecuteAll(context.Background(), []CallRequest{
		{CallID: "1", ToolName: "a"},
		{CallID: "2", ToolName: "b"},
		{CallID: "3", ToolName: "c"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&maxInFlight))
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, results[i].ToolName)
		assert.JSONEq(t, `{"tool":"`+want+`"}`, results[i].Output)
	}
}
