package normalization

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model responses are free text: the JSON we asked for may arrive wrapped in
// prose, fenced in markdown, quoted as a string literal, or with small syntax
// defects. ExtractJSON runs a fixed sequence of narrowly targeted fixups and
// returns a string meant for a strict JSON parser. It does not guarantee the
// result parses; a parse failure after extraction is a terminal condition the
// caller reports. New failure patterns get a new step here, existing steps are
// never generalized.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	// Already-clean payloads pass through untouched so the repairs below can
	// never corrupt valid output.
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return s
	}
	if inner, ok := FencedBlock(s); ok {
		s = inner
	} else {
		s = OuterObjectSlice(s)
	}
	s = StripWrappingQuotes(s)
	s = UnescapeLiteralEscapes(s)
	s = RemoveTrailingCommas(s)
	s = InsertObjectCommas(s)
	s = InsertArrayCommas(s)
	return s
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// FencedBlock returns the interior of the first markdown code fence that
// contains a JSON object. A matching fence takes priority over any other
// extraction heuristic.
func FencedBlock(s string) (string, bool) {
	for _, m := range fencedBlockRe.FindAllStringSubmatch(s, -1) {
		inner := strings.TrimSpace(m[1])
		if strings.Contains(inner, "{") && strings.Contains(inner, "}") {
			return inner, true
		}
	}
	return "", false
}

// OuterObjectSlice slices from the first '{' to the last '}' inclusive,
// dropping any prose wrapping. Without a brace pair the input is returned
// unchanged and will fail downstream parsing, which is the expected terminal
// failure mode.
func OuterObjectSlice(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// StripWrappingQuotes removes one matching pair of single quotes wrapping the
// whole payload.
func StripWrappingQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

var literalEscapes = strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\'`, "'")

// UnescapeLiteralEscapes handles the model emitting JSON as a doubly-escaped
// string literal rather than raw JSON. Payloads that already parse are left
// alone: a legitimate \" inside a valid JSON string is not a defect.
func UnescapeLiteralEscapes(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}
	if !strings.Contains(s, `\n`) && !strings.Contains(s, `\"`) && !strings.Contains(s, `\'`) {
		return s
	}
	return literalEscapes.Replace(s)
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// RemoveTrailingCommas drops a comma sitting directly before a closing brace
// or bracket. Idempotent.
func RemoveTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

var objectGapRe = regexp.MustCompile(`}\s*{`)

// InsertObjectCommas joins two adjacent object literals with a comma. Idempotent.
func InsertObjectCommas(s string) string {
	return objectGapRe.ReplaceAllString(s, "},{")
}

var arrayGapRe = regexp.MustCompile(`]\s*\[`)

// InsertArrayCommas joins two adjacent array literals with a comma. Idempotent.
func InsertArrayCommas(s string) string {
	return arrayGapRe.ReplaceAllString(s, "],[")
}
