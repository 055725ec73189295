package pipeline

import (
	"strconv"
	"strings"
)

// Helpers for reading loosely-typed model payloads. Each stage adapter maps
// the known alternate key spellings onto one canonical field here, in one
// place, instead of scattering tolerance logic around.

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func firstStringSlice(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if mm, ok := v.(map[string]any); ok && len(mm) > 0 {
				return mm
			}
		}
	}
	return nil
}

func firstSlice(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.([]any); ok && len(s) > 0 {
				return s
			}
		}
	}
	return nil
}

// unwrapStageKey applies the wrapped-or-not tolerance: when the payload nests
// the answer under the stage's well-known key, return the nested object,
// otherwise the payload itself is the answer.
func unwrapStageKey(m map[string]any, stage Stage) map[string]any {
	key, ok := stageKeys[stage]
	if !ok {
		return m
	}
	if nested, ok := m[key].(map[string]any); ok {
		return nested
	}
	return m
}
