package pipeline

import (
	"reflect"
	"testing"

	"github.com/adforge/adforge-backend/internal/logger"
)

func flatScripts() []ScriptRecord {
	// two angles, two hooks on angle_1, deliberately out of angle order
	return []ScriptRecord{
		{ScriptID: "angle_2_1_1", Content: "c"},
		{ScriptID: "angle_1_1_1", Content: "a1"},
		{ScriptID: "angle_1_2_1", Content: "b1"},
		{ScriptID: "angle_1_1_2", Content: "a2"},
	}
}

func TestRestructurePreservesEveryWellFormedScript(t *testing.T) {
	trees := Restructure(flatScripts(), logger.NewNop())

	if len(trees) != 2 {
		t.Fatalf("angles: got=%d", len(trees))
	}
	total := 0
	for _, tree := range trees {
		for _, hg := range tree.Hooks {
			total += len(hg.Scripts)
		}
	}
	if total != 4 {
		t.Fatalf("scripts preserved: got=%d want=4", total)
	}
}

func TestRestructureAnglesSortedHooksInsertionOrdered(t *testing.T) {
	trees := Restructure(flatScripts(), logger.NewNop())

	if trees[0].AngleID != "angle_1" || trees[1].AngleID != "angle_2" {
		t.Fatalf("angle order: %q %q", trees[0].AngleID, trees[1].AngleID)
	}
	if trees[0].AngleNumber != 1 || trees[1].AngleNumber != 2 {
		t.Fatalf("angle numbers: %d %d", trees[0].AngleNumber, trees[1].AngleNumber)
	}
	// angle_1_1 seen before angle_1_2 in the flat list
	hooks := trees[0].Hooks
	if len(hooks) != 2 || hooks[0].HookID != "angle_1_1" || hooks[1].HookID != "angle_1_2" {
		t.Fatalf("hook order: %+v", hooks)
	}
	// within a hook, scripts keep input order
	if hooks[0].Scripts[0].ScriptID != "angle_1_1_1" || hooks[0].Scripts[1].ScriptID != "angle_1_1_2" {
		t.Fatalf("script order: %+v", hooks[0].Scripts)
	}
}

func TestRestructureDeterministic(t *testing.T) {
	first := Restructure(flatScripts(), logger.NewNop())
	for i := 0; i < 20; i++ {
		again := Restructure(flatScripts(), logger.NewNop())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestRestructureSkipsMalformedIDs(t *testing.T) {
	flat := append(flatScripts(),
		ScriptRecord{ScriptID: "angle_1", Content: "too short"},
		ScriptRecord{ScriptID: "oops", Content: "no lineage"},
	)
	trees := Restructure(flat, logger.NewNop())

	total := 0
	for _, tree := range trees {
		for _, hg := range tree.Hooks {
			total += len(hg.Scripts)
		}
	}
	if total != 4 {
		t.Fatalf("malformed leaked in: got=%d", total)
	}
}

func TestRestructureNonNumericAngleSuffix(t *testing.T) {
	flat := []ScriptRecord{
		{ScriptID: "angle_1_1_1", Content: "x", AngleID: "angle_x", HookID: "angle_x_1"},
	}
	trees := Restructure(flat, logger.NewNop())
	if len(trees) != 1 || trees[0].AngleNumber != 0 {
		t.Fatalf("fallback angle number: %+v", trees)
	}
}

func TestRestructureEmptyInput(t *testing.T) {
	trees := Restructure(nil, logger.NewNop())
	if len(trees) != 0 {
		t.Fatalf("expected empty output, got=%+v", trees)
	}
}

func TestRestructureGroupsNonNumericAngleWithZeroNumber(t *testing.T) {
	trees := Restructure([]ScriptRecord{
		{ScriptID: "angle_x_2_1", Content: "offbeat id"},
	}, logger.NewNop())
	if len(trees) != 1 {
		t.Fatalf("trees: got=%d want=1", len(trees))
	}
	tree := trees[0]
	if tree.AngleID != "angle_x" || tree.AngleNumber != 0 {
		t.Fatalf("angle node: id=%q number=%d", tree.AngleID, tree.AngleNumber)
	}
	if len(tree.Hooks) != 1 || tree.Hooks[0].HookID != "angle_x_2" {
		t.Fatalf("hook grouping: %+v", tree.Hooks)
	}
}
