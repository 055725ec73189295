package pipeline

import (
	"fmt"
	"sort"
)

// Hook is a single attention-grabbing opener bound to one angle.
type Hook struct {
	HookID   string `json:"hook_id"`
	Text     string `json:"hook_text"`
	Category string `json:"hook_category"`
	AngleID  string `json:"angle_id"`
}

// HooksByAngle holds all hooks generated for one angle, keyed by hook
// category (curiosity, pain, bold_claim, ...). Category keys are kept so the
// scripts prompt can mirror the structure back to the model.
type HooksByAngle struct {
	AngleID    string            `json:"angle_id"`
	Categories map[string][]Hook `json:"categories"`
}

// HookSet is the hooks stage result.
type HookSet struct {
	Angles []HooksByAngle `json:"hooks_by_angle"`
}

func (HookSet) ResultStage() Stage { return StageHooks }

// All returns every hook, angles in set order, categories in sorted order.
func (h HookSet) All() []Hook {
	var out []Hook
	for _, byAngle := range h.Angles {
		for _, cat := range sortedKeys(byAngle.Categories) {
			out = append(out, byAngle.Categories[cat]...)
		}
	}
	return out
}

// Select returns the subset of hooks whose ids appear in ids.
func (h HookSet) Select(ids []string) []Hook {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Hook
	for _, hook := range h.All() {
		if want[hook.HookID] {
			out = append(out, hook)
		}
	}
	return out
}

// HookSetFromPayload adapts the hooks_by_angle payload. The payload maps
// angle id to a map of category name to hook entries. Entries may be
// structured objects or bare strings; bare strings get a synthetic id of the
// form "<angle_id>_<position>" where position is a running counter per angle
// across its categories in sorted order.
func HookSetFromPayload(payload map[string]any) (HookSet, []string, error) {
	// The wrap key doubles as the result field here, so the generic stage-key
	// unwrap would swallow it. Look for the field directly; a payload without
	// it is already the angle map.
	byAngle := firstMap(payload, "hooks_by_angle", "hooks")
	if byAngle == nil {
		byAngle = payload
	}

	var out HookSet
	var missing []string
	for _, angleID := range sortedKeys(byAngle) {
		catsRaw, ok := byAngle[angleID].(map[string]any)
		if !ok {
			missing = append(missing, fmt.Sprintf("hooks_by_angle.%s", angleID))
			continue
		}
		entry := HooksByAngle{AngleID: angleID, Categories: map[string][]Hook{}}
		pos := 0
		for _, cat := range sortedKeys(catsRaw) {
			items, ok := catsRaw[cat].([]any)
			if !ok {
				missing = append(missing, fmt.Sprintf("hooks_by_angle.%s.%s", angleID, cat))
				continue
			}
			for _, item := range items {
				pos++
				hook := adaptHook(item, angleID, cat, pos)
				if hook.Text == "" {
					missing = append(missing, fmt.Sprintf("hooks_by_angle.%s.%s[%d]", angleID, cat, pos-1))
					continue
				}
				entry.Categories[cat] = append(entry.Categories[cat], hook)
			}
		}
		if len(entry.Categories) > 0 {
			out.Angles = append(out.Angles, entry)
		}
	}
	if len(out.Angles) == 0 {
		return HookSet{}, nil, fmt.Errorf("hooks_by_angle contained no usable entries")
	}
	return out, missing, nil
}

func adaptHook(item any, angleID, category string, pos int) Hook {
	switch v := item.(type) {
	case string:
		return Hook{
			HookID:   fmt.Sprintf("%s_%d", angleID, pos),
			Text:     v,
			Category: category,
			AngleID:  angleID,
		}
	case map[string]any:
		hook := Hook{
			HookID:   firstString(v, "hook_id", "id"),
			Text:     firstString(v, "hook_text", "text", "hook"),
			Category: firstString(v, "hook_category", "category"),
			AngleID:  angleID,
		}
		if hook.HookID == "" {
			hook.HookID = fmt.Sprintf("%s_%d", angleID, pos)
		}
		if hook.Category == "" {
			hook.Category = category
		}
		return hook
	default:
		return Hook{}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
