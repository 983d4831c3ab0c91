package generator

import (
	"encoding/json"
	"strings"
)

// Tier identifies which rung of the extraction ladder produced a structured
// result.
type Tier string

const (
	// TierRaw means the response parsed as JSON directly.
	TierRaw Tier = "raw"

	// TierFenced means the JSON was recovered from the first fenced code block.
	TierFenced Tier = "fenced"

	// TierBraces means the JSON was recovered from a balanced-brace substring.
	TierBraces Tier = "braces"

	// TierSentinel means no JSON could be recovered and the sentinel map was
	// returned instead.
	TierSentinel Tier = "sentinel"
)

// KeyParseError marks a sentinel map produced when every extraction tier
// failed. Callers check for it before trusting any other key.
const KeyParseError = "_parse_error"

// Sentinel builds the degraded-output map for unparseable model text: the
// raw text becomes the narrative, the mood is neutral, and KeyParseError is
// set so downstream code can tell recovery from real output.
func Sentinel(raw string) map[string]any {
	return map[string]any{
		"narrative":   raw,
		"mood":        "neutral",
		KeyParseError: true,
	}
}

// ExtractJSON parses raw model output into a JSON object, trying in order:
// a direct parse, the content of the first fenced code block, and every
// balanced-brace substring from the earliest opening brace. If all fail it
// returns the sentinel map. The second return value reports which tier
// succeeded.
func ExtractJSON(raw string) (map[string]any, Tier) {
	trimmed := strings.TrimSpace(raw)

	if m, ok := tryParse(trimmed); ok {
		return m, TierRaw
	}
	if body, ok := firstFencedBlock(trimmed); ok {
		if m, ok := tryParse(body); ok {
			return m, TierFenced
		}
	}
	if m, ok := widestBalancedObject(trimmed); ok {
		return m, TierBraces
	}
	return Sentinel(raw), TierSentinel
}

func tryParse(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	if m == nil {
		return nil, false
	}
	return m, true
}

// firstFencedBlock returns the content between the first pair of ``` fences,
// with any language tag on the opening fence stripped.
func firstFencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	fenceEnd := strings.Index(rest, "```")
	if fenceEnd < 0 {
		return "", false
	}
	body := rest[:fenceEnd]
	// Drop a language tag like "json" on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body), true
}

// widestBalancedObject scans opening braces left to right and, for each,
// finds its balanced closing brace by depth counting (string literals and
// escapes respected). The first candidate that parses as an object wins, so
// the earliest brace yields the widest recoverable span.
func widestBalancedObject(s string) (map[string]any, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		end, ok := matchBrace(s, start)
		if !ok {
			continue
		}
		if m, ok := tryParse(s[start : end+1]); ok {
			return m, true
		}
	}
	return nil, false
}

// matchBrace returns the index of the brace closing s[open].
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
