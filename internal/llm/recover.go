// Recovery pipeline for malformed deliberative output. Models asked for
// JSON return prose preambles, trailing commas, and markdown fences
// often enough that strict parsing alone throws away usable decisions.
// Each stage is side-effect free; if every stage fails the caller gets
// an empty list, never an error.
package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/talgya/swarmsim/internal/types"
)

var trailingSeparators = regexp.MustCompile(`,\s*([}\]])`)

// DecodeActions extracts a list of actions from raw generator output.
// Stages, in order: strict parse; strip trailing separators and retry;
// first balanced object-like substring (with the same retry); line
// oriented key: value extraction. Empty result means the deliberative
// path produced nothing usable.
func DecodeActions(raw string) []types.Action {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	if actions, ok := parseStrict(text); ok {
		return actions
	}
	if actions, ok := parseStrict(stripSeparators(text)); ok {
		return actions
	}
	if sub := firstBalanced(text); sub != "" {
		if actions, ok := parseStrict(sub); ok {
			return actions
		}
		if actions, ok := parseStrict(stripSeparators(sub)); ok {
			return actions
		}
	}
	return parseLines(text)
}

// wireAction is the shape deliberative output is asked to produce.
type wireAction struct {
	Type       string         `json:"type"`
	Action     string         `json:"action"` // accepted alias for type
	Target     string         `json:"target"`
	Content    map[string]any `json:"content"`
	Confidence float64        `json:"confidence"`
}

func (w wireAction) toAction() (types.Action, bool) {
	kind := w.Type
	if kind == "" {
		kind = w.Action
	}
	if kind == "" {
		return types.Action{}, false
	}
	return types.Action{
		Type:       kind,
		Target:     w.Target,
		Content:    w.Content,
		Confidence: w.Confidence,
	}, true
}

// parseStrict accepts the three shapes models actually produce: a bare
// array, an {"actions": [...]} wrapper, or a single object.
func parseStrict(text string) ([]types.Action, bool) {
	data := []byte(text)

	var list []wireAction
	if err := json.Unmarshal(data, &list); err == nil {
		return collect(list), true
	}

	var wrapper struct {
		Actions []wireAction `json:"actions"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Actions != nil {
		return collect(wrapper.Actions), true
	}

	var single wireAction
	if err := json.Unmarshal(data, &single); err == nil {
		if a, ok := single.toAction(); ok {
			return []types.Action{a}, true
		}
	}
	return nil, false
}

func collect(list []wireAction) []types.Action {
	var out []types.Action
	for _, w := range list {
		if a, ok := w.toAction(); ok {
			out = append(out, a)
		}
	}
	return out
}

func stripSeparators(text string) string {
	return trailingSeparators.ReplaceAllString(text, "$1")
}

// firstBalanced returns the first balanced {...} or [...] substring,
// respecting string literals and escapes. "" when none closes.
func firstBalanced(text string) string {
	start := -1
	for i, r := range text {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// parseLines is the last resort: best-effort key: value extraction with
// boolean and numeric literal coercion, yielding at most one action.
func parseLines(text string) []types.Action {
	fields := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), ",-*"))
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.Trim(strings.TrimSpace(line[:idx]), `"'`))
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"',`)
		if key == "" || value == "" || strings.ContainsAny(key, " \t{}[]") {
			continue
		}
		fields[key] = coerce(value)
	}

	w := wireAction{}
	if t, ok := fields["type"].(string); ok {
		w.Type = t
	}
	if t, ok := fields["action"].(string); ok && w.Type == "" {
		w.Action = t
	}
	if t, ok := fields["target"].(string); ok {
		w.Target = t
	}
	if c, ok := fields["confidence"].(float64); ok {
		w.Confidence = c
	}
	for key, v := range fields {
		switch key {
		case "type", "action", "target", "confidence":
		default:
			if w.Content == nil {
				w.Content = make(map[string]any)
			}
			w.Content[key] = v
		}
	}

	a, ok := w.toAction()
	if !ok {
		return nil
	}
	return []types.Action{a}
}

func coerce(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}
