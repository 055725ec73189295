package pipeline

import (
	"strconv"
	"strings"

	"github.com/adforge/adforge-backend/internal/logger"
)

// HookGroup collects the script variants written against one hook.
type HookGroup struct {
	HookID  string         `json:"hook_id"`
	Scripts []ScriptRecord `json:"scripts"`
}

// AngleTree is the angle -> hook -> scripts view of a flat script list,
// the shape the media and publishing layers consume.
type AngleTree struct {
	AngleID     string      `json:"angle_id"`
	AngleNumber int         `json:"angle_number"`
	Hooks       []HookGroup `json:"hooks"`
}

// Restructure groups a flat script list by its id lineage. Angles come out
// sorted by id string; within an angle, hooks keep first-seen order and each
// hook's scripts keep input order. Records whose ids do not parse are logged
// and skipped, never dropped silently.
func Restructure(flat []ScriptRecord, log *logger.Logger) []AngleTree {
	byAngle := map[string]*AngleTree{}
	hookIndex := map[string]map[string]int{}

	for _, rec := range flat {
		angleID, hookID := rec.AngleID, rec.HookID
		if angleID == "" || hookID == "" {
			var err error
			angleID, hookID, err = ParseScriptID(rec.ScriptID)
			if err != nil {
				log.Warn("skipping script with malformed id", "script_id", rec.ScriptID, "error", err)
				continue
			}
			rec.AngleID, rec.HookID = angleID, hookID
		}

		tree, ok := byAngle[angleID]
		if !ok {
			tree = &AngleTree{AngleID: angleID, AngleNumber: angleNumber(angleID)}
			byAngle[angleID] = tree
			hookIndex[angleID] = map[string]int{}
		}
		idx, ok := hookIndex[angleID][hookID]
		if !ok {
			idx = len(tree.Hooks)
			tree.Hooks = append(tree.Hooks, HookGroup{HookID: hookID})
			hookIndex[angleID][hookID] = idx
		}
		tree.Hooks[idx].Scripts = append(tree.Hooks[idx].Scripts, rec)
	}

	out := make([]AngleTree, 0, len(byAngle))
	for _, id := range sortedKeys(byAngle) {
		out = append(out, *byAngle[id])
	}
	return out
}

// angleNumber extracts the numeric suffix of an angle id, 0 when absent.
func angleNumber(angleID string) int {
	parts := strings.Split(angleID, "_")
	if len(parts) < 2 {
		return 0
	}
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return n
}
