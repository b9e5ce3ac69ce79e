package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no json object in response")

// DecodeJSON pulls the JSON object out of a model response. Reasoning blocks
// and markdown fences are removed and anything outside the outermost braces
// is ignored.
func DecodeJSON(raw string, v any) error {
	content := stripCodeFence(stripThinkBlock(raw))
	content = extractJSONObject(content)
	if content == "" {
		return errNoJSON
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}

// extractJSONObject returns the first '{' through the last '}'
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// stripThinkBlock removes a <think>...</think> preamble
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
