package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// ScriptRecord is one generated ad script. ScriptID encodes the full lineage
// angle -> hook -> variant; AngleID and HookID are derived prefixes kept for
// direct lookup.
type ScriptRecord struct {
	ScriptID      string `json:"script_id"`
	Content       string `json:"content"`
	CTA           string `json:"cta"`
	TargetEmotion string `json:"target_emotion"`
	AngleID       string `json:"angle_id"`
	HookID        string `json:"hook_id"`
}

// ScriptSet is the scripts stage result: a flat list in generation order.
type ScriptSet struct {
	Scripts []ScriptRecord `json:"scripts"`
}

func (ScriptSet) ResultStage() Stage { return StageScripts }

// FormatScriptID builds the canonical script id from its lineage parts.
func FormatScriptID(angle, hook, variant int) string {
	return fmt.Sprintf("angle_%d_%d_%d", angle, hook, variant)
}

// ParseScriptID splits a script id into its angle and hook prefixes. The id
// must carry at least four underscore-separated tokens ("angle", angle number,
// hook number, variant number); extra trailing tokens are tolerated. The hook
// and variant tokens must be numeric; the angle token may be anything, since
// angle ids are grouping keys first and their number is only recovered for
// sorting, defaulting to 0 when the token is not numeric.
func ParseScriptID(id string) (angleID, hookID string, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return "", "", fmt.Errorf("script id %q: want at least 4 tokens, got %d", id, len(parts))
	}
	for _, p := range parts[2:4] {
		if _, convErr := strconv.Atoi(p); convErr != nil {
			return "", "", fmt.Errorf("script id %q: token %q is not numeric", id, p)
		}
	}
	return strings.Join(parts[:2], "_"), strings.Join(parts[:3], "_"), nil
}

// ScriptSetFromPayload adapts the flat scripts payload. Records whose ids do
// not parse are kept; lineage fields stay empty and are resolved or skipped
// later during restructuring.
func ScriptSetFromPayload(payload map[string]any) (ScriptSet, []string, error) {
	m := unwrapStageKey(payload, StageScripts)

	items := firstSlice(m, "scripts", "ad_scripts")
	if items == nil {
		return ScriptSet{}, nil, fmt.Errorf("missing required field scripts")
	}

	var out ScriptSet
	var missing []string
	for i, item := range items {
		sm, ok := item.(map[string]any)
		if !ok {
			missing = append(missing, fmt.Sprintf("scripts[%d]", i))
			continue
		}
		rec := ScriptRecord{
			ScriptID:      firstString(sm, "script_id", "id"),
			Content:       firstString(sm, "content", "script", "script_content"),
			CTA:           firstString(sm, "cta", "call_to_action"),
			TargetEmotion: firstString(sm, "target_emotion", "emotion"),
		}
		if rec.ScriptID == "" || rec.Content == "" {
			missing = append(missing, fmt.Sprintf("scripts[%d]", i))
			continue
		}
		if angleID, hookID, err := ParseScriptID(rec.ScriptID); err == nil {
			rec.AngleID = angleID
			rec.HookID = hookID
		}
		if rec.CTA == "" {
			missing = append(missing, fmt.Sprintf("scripts[%d].cta", i))
		}
		out.Scripts = append(out.Scripts, rec)
	}
	if len(out.Scripts) == 0 {
		return ScriptSet{}, nil, fmt.Errorf("scripts contained no usable entries")
	}
	return out, missing, nil
}
