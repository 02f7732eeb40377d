// Package anthropic adapts the Anthropic Messages API (with tool use) to the
// reasoning.Collaborator interface.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/freeagent/reasoning"
)

// Options configure the Anthropic collaborator adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Collaborator wraps the Anthropic Messages API behind
// reasoning.Collaborator.
type Collaborator struct {
	client *anthropic.Client
	opts   Options
}

// New creates a collaborator using the official client.
func New(optFns ...func(o *Options)) *Collaborator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Collaborator{client: &client, opts: opts}
}

// NewFromClient creates a collaborator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Collaborator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Collaborator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Decide implements reasoning.Collaborator via a non-streaming message.
func (c *Collaborator) Decide(ctx context.Context, req reasoning.Request) (*reasoning.Decision, error) {
	model := c.opts.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: req.Instructions}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(reasoning.RenderContext(req))),
		},
		Tools: buildTools(append(req.Tools, reasoning.ControlDefinitions()...)),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	decision := &reasoning.Decision{}
	var text string

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			call := reasoning.ToolCallRequest{ID: toolBlock.ID, Name: toolBlock.Name}
			if toolBlock.Input != nil {
				args, err := json.Marshal(toolBlock.Input)
				if err != nil {
					return nil, fmt.Errorf("marshal tool input: %w", err)
				}
				call.Params, err = reasoning.ParseParams(string(args))
				if err != nil {
					return nil, err
				}
			}
			decision.ToolCalls = append(decision.ToolCalls, call)
		}
	}

	if len(decision.ToolCalls) == 0 {
		return reasoning.ParseDecision(text)
	}

	decision.Narrative = text
	reasoning.ApplyControlCalls(decision)

	return decision, nil
}

// buildTools converts neutral tool declarations to the Anthropic format.
func buildTools(defs []reasoning.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if def.Parameters != nil {
			if properties, ok := def.Parameters["properties"]; ok {
				schema.Properties = properties
			}
			schema.Required = requiredNames(def.Parameters["required"])
		}
		tools[i] = anthropic.ToolUnionParamOfTool(schema, def.Name)
	}
	return tools
}

// requiredNames tolerates both []string and decoded-JSON []any shapes.
func requiredNames(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
