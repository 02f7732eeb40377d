package tool

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/freeagent/core"
)

// DefaultMaxInlineChars is the largest rendered result that stays inline in
// the audit record and reasoning input.
const DefaultMaxInlineChars = 2048

// binaryMimePrefixes classify payloads that must never be echoed inline.
var binaryMimePrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"application/pdf",
	"application/octet-stream",
}

// AttributePolicy decides, after every successful tool call, whether the
// result is inlined or detached into a named ToolResultAttribute. Detached
// results are replaced by their placeholder token so payload bytes are stored
// exactly once per attribute regardless of reference count.
type AttributePolicy struct {
	// MaxInlineChars bounds the rendered result length kept inline.
	MaxInlineChars int
}

// NewAttributePolicy returns a policy with the given inline bound
// (<= 0 selects DefaultMaxInlineChars).
func NewAttributePolicy(maxInlineChars int) *AttributePolicy {
	if maxInlineChars <= 0 {
		maxInlineChars = DefaultMaxInlineChars
	}
	return &AttributePolicy{MaxInlineChars: maxInlineChars}
}

// Apply inspects a successful result and either returns it unchanged or
// registers an attribute and returns the placeholder token in its place.
func (p *AttributePolicy) Apply(toolCtx *core.ToolContext, toolName string, result any) (any, *core.ToolResultAttribute, error) {
	rendered := renderResult(result)
	binary, mimeType := detectBinary(result, rendered)

	if !binary && len(rendered) <= p.MaxInlineChars {
		return result, nil, nil
	}

	attr := core.ToolResultAttribute{
		ID:           core.NewID(),
		Name:         nextAttributeName(toolCtx),
		Tool:         toolName,
		Iteration:    toolCtx.Iteration(),
		Size:         payloadSize(result, rendered),
		Binary:       binary,
		MimeType:     mimeType,
		Value:        result,
		ResultString: rendered,
	}
	if err := toolCtx.PutAttribute(attr); err != nil {
		return nil, nil, fmt.Errorf("detach result for %s: %w", toolName, err)
	}

	return attr.Placeholder(), &attr, nil
}

// nextAttributeName picks the first free result_<n> slot. Names are unique
// for the session lifetime, so re-running a tool yields a fresh attribute.
func nextAttributeName(toolCtx *core.ToolContext) string {
	n := toolCtx.AttributeCount() + 1
	for {
		name := fmt.Sprintf("result_%d", n)
		if !toolCtx.HasAttribute(name) {
			return name
		}
		n++
	}
}

// renderResult produces the string form used for inline display and size
// checks.
func renderResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case *BinaryResult:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("[%s, %d bytes]", v.MimeType, len(v.Data))
	case BinaryResult:
		return fmt.Sprintf("[%s, %d bytes]", v.MimeType, len(v.Data))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// payloadSize reports the stored payload size in bytes.
func payloadSize(result any, rendered string) int {
	switch v := result.(type) {
	case *BinaryResult:
		if v == nil {
			return 0
		}
		return len(v.Data)
	case BinaryResult:
		return len(v.Data)
	default:
		return len(rendered)
	}
}

// detectBinary classifies a result as binary and reports its mime type.
// Typed BinaryResult payloads are authoritative; string results fall back to
// data-URI and base64 heuristics.
func detectBinary(result any, rendered string) (bool, string) {
	switch v := result.(type) {
	case *BinaryResult:
		if v == nil {
			return false, ""
		}
		return true, v.MimeType
	case BinaryResult:
		return true, v.MimeType
	case []byte:
		return true, "application/octet-stream"
	}

	if mime, ok := dataURIMime(rendered); ok {
		return binaryMime(mime), mime
	}
	if looksLikeBase64(rendered) {
		return true, "application/octet-stream"
	}
	return false, ""
}

// binaryMime reports whether a mime type falls under the binary prefixes.
func binaryMime(mime string) bool {
	for _, prefix := range binaryMimePrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

// dataURIMime extracts the mime type from a data: URI payload.
func dataURIMime(s string) (string, bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", false
	}
	rest := s[len("data:"):]
	end := strings.IndexAny(rest, ";,")
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}

// looksLikeBase64 flags long unbroken base64 runs, the typical shape of raw
// encoded media leaking through an untyped transport.
func looksLikeBase64(s string) bool {
	if len(s) < 512 || strings.ContainsAny(s, " \t\n") {
		return false
	}
	trimmed := strings.TrimRight(s, "=")
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
		default:
			return false
		}
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
