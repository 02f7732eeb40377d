// Package openai adapts the OpenAI Chat Completions API (with function/tool
// calling) to the reasoning.Collaborator interface. Dispatchable tools and
// the reserved terminal signals are exposed as functions; a plain-text
// answer falls back to tolerant JSON decision parsing.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/freeagent/reasoning"
)

// Options configure the OpenAI collaborator adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Collaborator wraps the OpenAI Chat Completions API behind
// reasoning.Collaborator.
type Collaborator struct {
	client *openai.Client
	opts   Options
}

// New creates a collaborator using the default client (API key from the
// environment).
func New(optFns ...func(o *Options)) *Collaborator {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a collaborator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Collaborator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Collaborator{client: client, opts: opts}
}

// Decide implements reasoning.Collaborator via a non-streaming completion.
func (c *Collaborator) Decide(ctx context.Context, req reasoning.Request) (*reasoning.Decision, error) {
	params := c.buildParams(req)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		return reasoning.ParseDecision(msg.Content)
	}

	decision := &reasoning.Decision{Narrative: msg.Content}
	for _, tc := range msg.ToolCalls {
		call := reasoning.ToolCallRequest{ID: tc.ID, Name: tc.Function.Name}
		call.Params, err = reasoning.ParseParams(tc.Function.Arguments)
		if err != nil {
			return nil, err
		}
		decision.ToolCalls = append(decision.ToolCalls, call)
	}
	reasoning.ApplyControlCalls(decision)

	return decision, nil
}

// buildParams assembles the request including tool and signal definitions.
func (c *Collaborator) buildParams(req reasoning.Request) openai.ChatCompletionNewParams {
	model := c.opts.Model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(reasoning.RenderContext(req)),
		},
		Model:               model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}

	defs := append(req.Tools, reasoning.ControlDefinitions()...)
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	params.Tools = tools

	return params
}
