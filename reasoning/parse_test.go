package reasoning

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_StrictJSON(t *testing.T) {
	d, err := ParseDecision(`{"narrative":"searching","tool_calls":[{"name":"search","params":{"query":"golang"}}]}`)
	require.NoError(t, err)

	assert.Equal(t, "searching", d.Narrative)
	require.Len(t, d.ToolCalls, 1)
	assert.Equal(t, "search", d.ToolCalls[0].Name)
	assert.Equal(t, "golang", d.ToolCalls[0].Params["query"])
	// unlabeled calls get ids stamped
	assert.NotEmpty(t, d.ToolCalls[0].ID)
}

func TestParseDecision_FencedJSON(t *testing.T) {
	raw := "```json\n{\"complete\":{\"summary\":\"done\"}}\n```"

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	require.NotNil(t, d.Complete)
	assert.Equal(t, "done", d.Complete.Summary)
}

func TestParseDecision_RepairsMalformedJSON(t *testing.T) {
	// trailing comma and single quotes, typical LLM output
	raw := `{'narrative': 'thinking', 'tool_calls': [{'name': 'read_prompt', 'params': {},},],}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	require.Len(t, d.ToolCalls, 1)
	assert.Equal(t, "read_prompt", d.ToolCalls[0].Name)
}

func TestParseDecision_EmptyAndActionless(t *testing.T) {
	var parseErr *ParseError

	_, err := ParseDecision("   ")
	require.Error(t, err)
	require.ErrorAs(t, err, &parseErr)

	_, err = ParseDecision(`{"narrative":"just musing"}`)
	require.Error(t, err)
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, `{"narrative":"just musing"}`, parseErr.Raw)
}

func TestParseDecision_ProseIsParseError(t *testing.T) {
	_, err := ParseDecision("I think we should search the web first.")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.NotEmpty(t, parseErr.Raw)
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams(`{"query": "golang", "limit": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "golang", params["query"])
	assert.Equal(t, float64(3), params["limit"])

	params, err = ParseParams("")
	require.NoError(t, err)
	assert.Empty(t, params)

	params, err = ParseParams(`{'query': 'repaired'}`)
	require.NoError(t, err)
	assert.Equal(t, "repaired", params["query"])
}

func TestApplyControlCalls(t *testing.T) {
	d := &Decision{
		ToolCalls: []ToolCallRequest{
			{Name: "search", Params: map[string]any{"query": "golang"}},
			{Name: ControlComplete, Params: map[string]any{"summary": "all done"}},
		},
	}

	ApplyControlCalls(d)

	require.Len(t, d.ToolCalls, 1)
	assert.Equal(t, "search", d.ToolCalls[0].Name)
	assert.NotEmpty(t, d.ToolCalls[0].ID)
	require.NotNil(t, d.Complete)
	assert.Equal(t, "all done", d.Complete.Summary)
	assert.Nil(t, d.Failed)
}

func TestApplyControlCalls_Failure(t *testing.T) {
	d := &Decision{
		ToolCalls: []ToolCallRequest{
			{Name: ControlFailed, Params: map[string]any{"reason": "no data source available"}},
		},
	}

	ApplyControlCalls(d)

	assert.Empty(t, d.ToolCalls)
	require.NotNil(t, d.Failed)
	assert.Equal(t, "no data source available", d.Failed.Reason)
}

func TestRenderContext_BoundedSnapshot(t *testing.T) {
	req := Request{
		Prompt:         "summarize the dataset",
		Iteration:      2,
		IterationsLeft: 8,
	}
	req.Snapshot.Scratchpad = "step 1 done"
	req.Snapshot.TotalEntries = 100

	out := RenderContext(req)
	assert.Contains(t, out, "summarize the dataset")
	assert.Contains(t, out, "Iteration 2 (8 remaining)")
	assert.Contains(t, out, "step 1 done")
}

func TestParseErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Raw: "x", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "unparseable decision")
}
