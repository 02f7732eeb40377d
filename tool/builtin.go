package tool

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hupe1980/freeagent/core"
)

// BuiltinOptions configure the built-in local tool set.
type BuiltinOptions struct {
	// ArtifactStore backs export_artifact. When nil the tool reports an
	// execution error instead of being omitted, so the tool surface stays
	// stable across configurations.
	ArtifactStore core.ArtifactStore
	// MaxChildren bounds a single spawn request.
	MaxChildren int
}

// DefaultMaxChildren bounds the children of one spawn call.
const DefaultMaxChildren = 5

// BuiltinTools returns the local tool set every session is equipped with:
// memory access, prompt and file reads, artifact production, assistance,
// self-authoring and spawn.
func BuiltinTools(optFns ...func(o *BuiltinOptions)) []Tool {
	opts := BuiltinOptions{MaxChildren: DefaultMaxChildren}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxChildren <= 0 {
		opts.MaxChildren = DefaultMaxChildren
	}

	return []Tool{
		newReadBlackboardTool(),
		newWriteBlackboardTool(),
		newReadScratchpadTool(),
		newWriteScratchpadTool(),
		newReadPromptTool(),
		newReadFileTool(),
		newGetAttributesTool(),
		newProduceArtifactTool(),
		newExportArtifactTool(opts.ArtifactStore),
		newRequestAssistanceTool(),
		newReadSelfTool(),
		newWriteSelfTool(),
		newSpawnTool(opts.MaxChildren),
	}
}

func newReadBlackboardTool() *LocalTool {
	return NewLocalTool(
		"read_blackboard",
		"Read recent blackboard entries. Returns the last `limit` entries, or all entries when limit is omitted.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of most recent entries to return",
				},
			},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			limit := argInt(args, "limit", 0)
			entries := toolCtx.Blackboard(limit)
			return map[string]any{
				"entries": entries,
				"count":   len(entries),
			}, nil
		},
	)
}

func newWriteBlackboardTool() *LocalTool {
	return NewLocalTool(
		"write_blackboard",
		"Append an entry to the blackboard. Entries are permanent and cannot be edited or removed.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{
					"type":        "string",
					"description": "Entry category",
					"enum":        []string{"observation", "insight", "question", "decision", "plan", "artifact", "error"},
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Entry content",
				},
			},
			"required": []string{"category", "content"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			category := core.Category(argString(args, "category"))
			content := argString(args, "content")
			entry, err := toolCtx.AppendBlackboard(category, content)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": entry.ID, "iteration": entry.Iteration}, nil
		},
	)
}

func newReadScratchpadTool() *LocalTool {
	return NewLocalTool(
		"read_scratchpad",
		"Read the current scratchpad content.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
			return toolCtx.Scratchpad(), nil
		},
	)
}

func newWriteScratchpadTool() *LocalTool {
	return NewLocalTool(
		"write_scratchpad",
		"Write to the scratchpad, either appending to or replacing the current content.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode": map[string]any{
					"type":        "string",
					"description": "Write mode",
					"enum":        []string{"append", "replace"},
				},
				"text": map[string]any{
					"type":        "string",
					"description": "Text to write",
				},
			},
			"required": []string{"mode", "text"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			mode := core.ScratchpadMode(argString(args, "mode"))
			if err := toolCtx.WriteScratchpad(mode, argString(args, "text")); err != nil {
				return nil, err
			}
			return "scratchpad updated", nil
		},
	)
}

func newReadPromptTool() *LocalTool {
	return NewLocalTool(
		"read_prompt",
		"Read the original task prompt and the list of uploaded input files.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
			files := toolCtx.Files()
			names := make([]map[string]any, 0, len(files))
			for _, f := range files {
				names = append(names, map[string]any{
					"name":      f.Name,
					"mime_type": f.MimeType,
					"size":      len(f.Content),
				})
			}
			return map[string]any{
				"prompt": toolCtx.Prompt(),
				"files":  names,
			}, nil
		},
	)
}

func newReadFileTool() *LocalTool {
	return NewLocalTool(
		"read_file",
		"Read an uploaded input file by name. Text files return their content directly; binary files return base64.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "File name as listed by read_prompt",
				},
			},
			"required": []string{"name"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			f, err := toolCtx.File(argString(args, "name"))
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"name":      f.Name,
				"mime_type": f.MimeType,
				"size":      len(f.Content),
			}
			if strings.HasPrefix(f.MimeType, "text/") || f.MimeType == "application/json" {
				out["content"] = string(f.Content)
			} else {
				out["content"] = base64.StdEncoding.EncodeToString(f.Content)
				out["encoding"] = "base64"
			}
			return out, nil
		},
	)
}

func newGetAttributesTool() *LocalTool {
	return NewLocalTool(
		"get_attributes",
		"Without names: list metadata for all stored tool result attributes. With names: return the full payload of each named attribute.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"names": map[string]any{
					"type":        "array",
					"description": "Attribute names to fetch payloads for",
					"items":       map[string]any{"type": "string"},
				},
			},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			names := argStringSlice(args, "names")
			if len(names) == 0 {
				return map[string]any{"attributes": toolCtx.AttributeIndex()}, nil
			}
			out := make(map[string]any, len(names))
			for _, name := range names {
				attr, err := toolCtx.Attribute(name)
				if err != nil {
					return nil, err
				}
				out[name] = attr
			}
			return out, nil
		},
	)
}

func newProduceArtifactTool() *LocalTool {
	return NewLocalTool(
		"produce_artifact",
		"Produce a durable output artifact visible to the user. Artifacts are immutable once created.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type":        "string",
					"description": "Artifact type",
					"enum":        []string{"text", "file", "image", "data", "audio"},
				},
				"title": map[string]any{
					"type":        "string",
					"description": "Artifact title, unique within the session",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Artifact content (base64 or data-URI for binary types)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional human-readable description",
				},
				"mime_type": map[string]any{
					"type":        "string",
					"description": "Optional mime type for file payloads",
				},
			},
			"required": []string{"type", "title", "content"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			typ := core.ArtifactType(argString(args, "type"))
			if !typ.Valid() {
				return nil, fmt.Errorf("unknown artifact type %q", typ)
			}
			a := core.NewArtifact(toolCtx.Iteration(), typ, argString(args, "title"), argString(args, "content"))
			a.Description = argString(args, "description")
			a.MimeType = argString(args, "mime_type")
			stored := toolCtx.AddArtifact(a)

			if _, err := toolCtx.AppendBlackboard(core.CategoryArtifact, fmt.Sprintf("produced artifact %q (%s)", stored.Title, stored.Type)); err != nil {
				return nil, err
			}

			return map[string]any{"id": stored.ID, "title": stored.Title}, nil
		},
	)
}

func newExportArtifactTool(store core.ArtifactStore) *LocalTool {
	return NewLocalTool(
		"export_artifact",
		"Export an existing artifact to durable external storage, by artifact id or title.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"artifact": map[string]any{
					"type":        "string",
					"description": "Artifact id or title",
				},
			},
			"required": []string{"artifact"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			if store == nil {
				return nil, fmt.Errorf("no artifact store configured")
			}
			ref := argString(args, "artifact")
			a, ok := toolCtx.FindArtifact(ref)
			if !ok {
				return nil, fmt.Errorf("artifact %q not found", ref)
			}
			if err := store.Save(core.ExportArtifact(toolCtx.SessionID(), a)); err != nil {
				return nil, fmt.Errorf("export artifact %q: %w", a.Title, err)
			}
			return map[string]any{"id": a.ID, "title": a.Title, "exported": true}, nil
		},
	)
}

func newRequestAssistanceTool() *LocalTool {
	return NewLocalTool(
		"request_assistance",
		"Ask the human operator a blocking question. The session pauses until the operator responds. Only one request may be pending at a time.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "Optional context explaining why the answer is needed",
				},
				"input_type": map[string]any{
					"type":        "string",
					"description": "Expected answer kind",
					"enum":        []string{"text", "choice", "file"},
				},
				"choices": map[string]any{
					"type":        "array",
					"description": "Options when input_type is choice",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []string{"question"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			req, err := toolCtx.RequestAssistance(
				argString(args, "question"),
				argString(args, "context"),
				core.AssistanceInputType(argString(args, "input_type")),
				argStringSlice(args, "choices"),
			)
			if err != nil {
				return nil, err
			}
			return map[string]any{"request_id": req.ID, "status": "pending"}, nil
		},
	)
}

func newReadSelfTool() *LocalTool {
	return NewLocalTool(
		"read_self",
		"Read the current instruction sections, including disabled ones.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
			sections, err := toolCtx.Sections()
			if err != nil {
				return nil, err
			}
			return map[string]any{"sections": sections}, nil
		},
	)
}

func newWriteSelfTool() *LocalTool {
	return NewLocalTool(
		"write_self",
		"Edit an instruction section. Edits are queued and take effect at the next iteration boundary, never mid-iteration.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"op": map[string]any{
					"type":        "string",
					"description": "Edit operation",
					"enum":        []string{"set_content", "enable", "disable", "reorder"},
				},
				"section": map[string]any{
					"type":        "string",
					"description": "Section id",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "New content for set_content",
				},
				"order": map[string]any{
					"type":        "integer",
					"description": "New position for reorder",
				},
			},
			"required": []string{"op", "section"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			edit := core.SelfEdit{
				Op:      core.SelfEditOp(argString(args, "op")),
				Section: argString(args, "section"),
				Content: argString(args, "content"),
				Order:   argInt(args, "order", 0),
			}
			if err := toolCtx.QueueSelfEdit(edit); err != nil {
				return nil, err
			}
			return map[string]any{"queued": true, "section": edit.Section, "op": string(edit.Op)}, nil
		},
	)
}

func newSpawnTool(maxChildren int) *LocalTool {
	return NewLocalTool(
		"spawn",
		"Spawn child sessions to work subtasks in parallel. The current session suspends until the completion threshold is met, then resumes with the children's results.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"children": map[string]any{
					"type":        "array",
					"description": "Child session specifications",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name": map[string]any{
								"type":        "string",
								"description": "Child name, unique within this request",
							},
							"task": map[string]any{
								"type":        "string",
								"description": "Task prompt for the child",
							},
							"max_iterations": map[string]any{
								"type":        "integer",
								"description": "Optional iteration budget override",
							},
						},
						"required": []string{"name", "task"},
					},
				},
				"completion_threshold": map[string]any{
					"type":        "integer",
					"description": "Number of children that must finish before resuming. Zero or omitted means all.",
				},
			},
			"required": []string{"children"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			spec, err := decodeSpawnSpec(args)
			if err != nil {
				return nil, err
			}
			if err := spec.Validate(maxChildren); err != nil {
				return nil, err
			}
			if err := toolCtx.RequestSpawn(spec); err != nil {
				return nil, err
			}
			return map[string]any{
				"children":  len(spec.Children),
				"threshold": spec.EffectiveThreshold(),
				"status":    "spawning",
			}, nil
		},
	)
}

// decodeSpawnSpec converts the generic JSON argument shape into a SpawnSpec.
func decodeSpawnSpec(args map[string]any) (core.SpawnSpec, error) {
	raw, ok := args["children"].([]any)
	if !ok {
		return core.SpawnSpec{}, fmt.Errorf("children must be an array of objects")
	}
	spec := core.SpawnSpec{
		CompletionThreshold: argInt(args, "completion_threshold", 0),
	}
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return core.SpawnSpec{}, fmt.Errorf("child %d is not an object", i)
		}
		spec.Children = append(spec.Children, core.ChildSpec{
			Name:          argString(obj, "name"),
			Task:          argString(obj, "task"),
			MaxIterations: argInt(obj, "max_iterations", 0),
		})
	}
	return spec, nil
}

// argString extracts an optional string argument.
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt extracts an optional integer argument, tolerating the float64 shape
// JSON decoding produces.
func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// argStringSlice extracts an optional string array argument.
func argStringSlice(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
