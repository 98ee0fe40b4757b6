// Package rationale extracts and formats the decision log kept for every
// reasoning step.
package rationale

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

const (
	PrefixToolCall = "[TOOL_CALL]"
	PrefixDirect   = "[DIRECT]"

	snippetLen = 80
)

var tagPattern = regexp.MustCompile(`(?s)<reasoning>(.*?)</reasoning>`)

// Extract returns the text of the first <reasoning> tag and the content with
// every such tag removed. Without a tag the content is returned unchanged.
func Extract(content string) (reasoning, cleaned string) {
	m := tagPattern.FindStringSubmatch(content)
	if m == nil {
		return "", content
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(tagPattern.ReplaceAllString(content, ""))
}

// Format builds one rationale entry. cleaned is the reply with reasoning
// tags already stripped.
func Format(calls []llm.ToolCall, reasoning, cleaned string) string {
	if len(calls) > 0 {
		names := make([]string, 0, len(calls))
		for _, c := range calls {
			names = append(names, c.Function.Name)
		}
		joined := strings.Join(names, ", ")
		if reasoning != "" {
			return fmt.Sprintf("%s %s: %s", PrefixToolCall, joined, reasoning)
		}
		summaries := make([]string, 0, len(calls))
		for _, c := range calls {
			summaries = append(summaries, summarizeCall(c))
		}
		return fmt.Sprintf("%s %s: %s", PrefixToolCall, joined, strings.Join(summaries, "; "))
	}
	if reasoning != "" {
		return PrefixDirect + " " + reasoning
	}
	return PrefixDirect + " " + truncate(cleaned, snippetLen)
}

// summarizeCall renders name(k='v', ...) with keys sorted.
func summarizeCall(c llm.ToolCall) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
		return c.Function.Name + "()"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, repr(args[k])))
	}
	return fmt.Sprintf("%s(%s)", c.Function.Name, strings.Join(parts, ", "))
}

func repr(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + t + "'"
	case nil:
		return "None"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
