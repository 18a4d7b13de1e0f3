// Package extract turns raw text-generation output into a validated JSON
// object. Generator output is adversarial-by-accident: it may be wrapped in
// prose, fenced in a markdown code block, carry trailing commentary, or be
// slightly malformed. Parse applies an ordered ladder of tiers, each strictly
// more permissive than the last, and stops at the first success.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// rawPreviewLimit bounds how much generator output a ParseError carries so
// log lines stay readable.
const rawPreviewLimit = 2000

// ParseError reports that no tier could coerce the output into an object.
// Raw holds a truncated copy of the offending output for diagnosis.
type ParseError struct {
	Attempted []string
	Raw       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON object recoverable from generator output (tried %s)",
		strings.Join(e.Attempted, ", "))
}

// tier is a pure text -> (object, ok) attempt. Tiers never return partial
// results: ok is true only when a complete object was decoded.
type tier struct {
	name string
	fn   func(string) (map[string]any, bool)
}

// The ladder is ordered by increasing risk of false-positive matches: a
// direct parse can never spuriously succeed, while the repair tier can, in
// pathological inputs, fabricate structure. Exhausting the ladder is a hard
// failure, never a silent empty object.
var ladder = []tier{
	{"direct", direct},
	{"fenced", fenced},
	{"bracket", bracket},
	{"repair", repair},
}

// Parse decodes raw generator output into a JSON object using the tier
// ladder. Returns *ParseError when every tier fails.
func Parse(raw string) (map[string]any, error) {
	obj, _, err := ParseDetailed(raw)
	return obj, err
}

// ParseDetailed is Parse plus the name of the tier that succeeded, for
// callers that track how often the permissive tiers are needed.
func ParseDetailed(raw string) (map[string]any, string, error) {
	attempted := make([]string, 0, len(ladder))
	for _, t := range ladder {
		attempted = append(attempted, t.name)
		if obj, ok := t.fn(raw); ok {
			return obj, t.name, nil
		}
	}
	return nil, "", &ParseError{Attempted: attempted, Raw: truncate(raw, rawPreviewLimit)}
}

// direct attempts to parse the entire trimmed output as one object.
func direct(raw string) (map[string]any, bool) {
	return tryUnmarshal(strings.TrimSpace(raw))
}

// fenced extracts the contents of the first ``` code block (optional language
// tag) and direct-parses that substring.
func fenced(raw string) (map[string]any, bool) {
	const marker = "```"
	start := strings.Index(raw, marker)
	if start < 0 {
		return nil, false
	}
	rest := raw[start+len(marker):]
	// Skip an optional language tag on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.HasPrefix(firstLine, "{") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, marker)
	if end < 0 {
		return nil, false
	}
	return tryUnmarshal(strings.TrimSpace(rest[:end]))
}

// bracket spans from the first '{' to the last '}' and direct-parses the
// substring. Tolerates leading and trailing prose; can in pathological inputs
// span unrelated braces, which is acceptable as a late tier.
func bracket(raw string) (map[string]any, bool) {
	candidate, ok := bracketSpan(raw)
	if !ok {
		return nil, false
	}
	return tryUnmarshal(candidate)
}

// repair runs the bracket span through jsonrepair to fix near-JSON (trailing
// commas, unquoted keys, truncated tails) before a final parse attempt. It
// operates on the span only, so output with no object boundaries still fails.
func repair(raw string) (map[string]any, bool) {
	candidate, ok := bracketSpan(raw)
	if !ok {
		return nil, false
	}
	fixed, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}
	return tryUnmarshal(fixed)
}

func bracketSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func tryUnmarshal(candidate string) (map[string]any, bool) {
	if candidate == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
