package engine

import (
	"strings"

	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/internal/util"
)

// defaultInstructions is used when a session carries no instruction sections.
const defaultInstructions = `You are an autonomous agent working a task across multiple iterations.
Each iteration you see your working memory and decide the next tool calls.
Record observations, insights and decisions on the blackboard as you go.
Use the scratchpad for working notes. Produce artifacts for durable outputs.
Call task_complete with a summary once the task is done, or task_failed when
no further progress is possible.`

// effectiveInstructions assembles the reasoning system prompt from the
// session's enabled instruction sections, in order. Section content may use
// template variables ({{.Prompt}}, {{.Iteration}}); content referencing
// stored attribute placeholders is used verbatim so the placeholders survive
// untouched, and a malformed template falls back to the raw content rather
// than failing the iteration.
func (e *Engine) effectiveInstructions(s *core.Session) string {
	sections := s.Sections()
	if len(sections) == 0 {
		return defaultInstructions
	}

	vars := map[string]any{
		"Prompt":        s.Prompt(),
		"Iteration":     s.Iteration(),
		"MaxIterations": s.MaxIterations(),
	}

	attrNames := make([]string, 0)
	for _, info := range s.Memory().AttributeIndex() {
		attrNames = append(attrNames, "{{"+info.Name+"}}")
	}

	var parts []string
	for _, section := range sections {
		if !section.Enabled {
			continue
		}
		content := section.Content
		if !referencesAny(content, attrNames) {
			if rendered, err := util.RenderTemplate(content, vars); err == nil {
				content = rendered
			} else {
				e.logger.Warn("engine.instructions.template_failed", "session_id", s.ID(), "section", section.ID, "error", err.Error())
			}
		}
		if section.Title != "" {
			parts = append(parts, "## "+section.Title+"\n\n"+content)
		} else {
			parts = append(parts, content)
		}
	}

	if len(parts) == 0 {
		return defaultInstructions
	}
	return strings.Join(parts, "\n\n")
}

// referencesAny reports whether text contains one of the given tokens.
func referencesAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
