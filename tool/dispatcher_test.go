package tool

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/logging"
)

func newToolContext(t *testing.T) *core.ToolContext {
	t.Helper()
	s := core.NewSession(func(o *core.SessionOptions) {
		o.Prompt = "test task"
	})
	return core.NewToolContext(context.Background(), s, core.NewID(), 0, logging.NoOpLogger{})
}

func newTestDispatcher(t *testing.T, tools ...Tool) *Dispatcher {
	t.Helper()
	registry, err := NewRegistry(tools...)
	require.NoError(t, err)
	d, err := NewDispatcher(registry)
	require.NoError(t, err)
	return d
}

func echoTool() *LocalTool {
	return NewLocalTool("echo", "echoes the input", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "description": "text to echo"},
		},
		"required": []string{"text"},
	}, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["text"], nil
	})
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(echoTool(), echoTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestDispatcher_UnknownToolEnvelope(t *testing.T) {
	d := newTestDispatcher(t, echoTool())

	res := d.Execute(newToolContext(t), "nonexistent", nil)

	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeUnknownTool, res.Error.Code)
}

func TestDispatcher_ValidationErrorEnvelope(t *testing.T) {
	d := newTestDispatcher(t, echoTool())

	res := d.Execute(newToolContext(t), "echo", map[string]any{})

	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeValidation, res.Error.Code)
}

func TestDispatcher_CacheSuppressesRemoteInvocation(t *testing.T) {
	var invocations atomic.Int32
	remote := NewRemoteTool("search", "web search", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "search query"},
		},
		"required": []string{"query"},
	}, InvokerFunc(func(_ context.Context, _ string, params map[string]any) (any, error) {
		invocations.Add(1)
		return "results for " + params["query"].(string), nil
	}))

	d := newTestDispatcher(t, remote)
	toolCtx := newToolContext(t)
	params := map[string]any{"query": "golang"}

	first := d.Execute(toolCtx, "search", params)
	require.True(t, first.Success)
	assert.False(t, first.Cached)

	second := d.Execute(toolCtx, "search", params)
	require.True(t, second.Success)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result, second.Result)

	assert.Equal(t, int32(1), invocations.Load())
	assert.Equal(t, 1, d.CacheSize())

	// different params miss the cache
	d.Execute(toolCtx, "search", map[string]any{"query": "rust"})
	assert.Equal(t, int32(2), invocations.Load())
	assert.Equal(t, 2, d.CacheSize())

	d.ResetCache()
	assert.Equal(t, 0, d.CacheSize())
}

func TestDispatcher_FailedCallsAreNotCached(t *testing.T) {
	var invocations atomic.Int32
	remote := NewRemoteTool("flaky", "fails once", map[string]any{"type": "object", "properties": map[string]any{}},
		InvokerFunc(func(_ context.Context, _ string, _ map[string]any) (any, error) {
			if invocations.Add(1) == 1 {
				return nil, fmt.Errorf("connection refused")
			}
			return "ok", nil
		}))

	d := newTestDispatcher(t, remote)
	toolCtx := newToolContext(t)

	res := d.Execute(toolCtx, "flaky", nil)
	assert.False(t, res.Success)
	assert.Equal(t, CodeTransport, res.Error.Code)
	assert.Equal(t, 0, d.CacheSize())

	res = d.Execute(toolCtx, "flaky", nil)
	assert.True(t, res.Success)
}

func TestDispatcher_OversizeResultDetachedToAttribute(t *testing.T) {
	huge := strings.Repeat("lorem ipsum dolor ", 300)
	remote := NewRemoteTool("scrape", "scrapes a page", map[string]any{"type": "object", "properties": map[string]any{}},
		InvokerFunc(func(_ context.Context, _ string, _ map[string]any) (any, error) {
			return huge, nil
		}))

	d := newTestDispatcher(t, remote)
	toolCtx := newToolContext(t)

	res := d.Execute(toolCtx, "scrape", nil)
	require.True(t, res.Success)
	require.NotNil(t, res.Attribute)
	assert.Equal(t, "result_1", res.Attribute.Name)
	assert.Equal(t, "{{result_1}}", res.Result)
	assert.False(t, res.Attribute.Binary)

	// payload stored once, retrievable by name
	attr, err := toolCtx.Attribute("result_1")
	require.NoError(t, err)
	assert.Equal(t, huge, attr.ResultString)
	assert.Equal(t, len(huge), attr.Size)
}

func TestDispatcher_BinaryResultDetached(t *testing.T) {
	remote := NewRemoteTool("render_chart", "renders a chart", map[string]any{"type": "object", "properties": map[string]any{}},
		InvokerFunc(func(_ context.Context, _ string, _ map[string]any) (any, error) {
			return &BinaryResult{MimeType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}, nil
		}))

	d := newTestDispatcher(t, remote)
	toolCtx := newToolContext(t)

	res := d.Execute(toolCtx, "render_chart", nil)
	require.True(t, res.Success)
	require.NotNil(t, res.Attribute)
	assert.True(t, res.Attribute.Binary)
	assert.Equal(t, "image/png", res.Attribute.MimeType)
	assert.Equal(t, 4, res.Attribute.Size)
	assert.Equal(t, "{{result_1}}", res.Result)
}

func TestDispatcher_SmallTextStaysInline(t *testing.T) {
	d := newTestDispatcher(t, echoTool())
	toolCtx := newToolContext(t)

	res := d.Execute(toolCtx, "echo", map[string]any{"text": "hello"})
	require.True(t, res.Success)
	assert.Nil(t, res.Attribute)
	assert.Equal(t, "hello", res.Result)
	assert.Equal(t, 0, toolCtx.AttributeCount())
}

func TestLocalTool_SentinelClassification(t *testing.T) {
	gated := NewLocalTool("gated", "needs feature flag", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, core.ErrSelfAuthoringDisabled
		})
	duplicate := NewLocalTool("duplicate", "assistance already pending", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, core.ErrAssistancePending
		})

	d := newTestDispatcher(t, gated, duplicate)
	toolCtx := newToolContext(t)

	res := d.Execute(toolCtx, "gated", nil)
	assert.Equal(t, CodeFeatureDisabled, res.Error.Code)

	res = d.Execute(toolCtx, "duplicate", nil)
	assert.Equal(t, CodeAssistancePending, res.Error.Code)
}
