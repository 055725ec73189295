package pipeline

import (
	"encoding/json"
	"testing"
)

func testProduct() ProductDescription {
	return ProductDescription{
		Name:        "SleepWell Tea",
		Description: "Herbal blend for deeper sleep",
	}
}

func TestContextAppendRejectsDuplicateStage(t *testing.T) {
	ctx := NewContext(testProduct())
	if err := ctx.Append(AvatarAnalysis{PainPoints: []string{"insomnia"}}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := ctx.Append(AvatarAnalysis{PainPoints: []string{"stress"}}); err == nil {
		t.Fatalf("expected duplicate-stage error, got nil")
	}
	avatar, ok := ctx.Avatar()
	if !ok {
		t.Fatalf("avatar result missing")
	}
	if got := avatar.PainPoints[0]; got != "insomnia" {
		t.Fatalf("stored result mutated: got=%q", got)
	}
}

func TestContextStagesKeepAppendOrder(t *testing.T) {
	ctx := NewContext(testProduct())
	if err := ctx.Append(AvatarAnalysis{PainPoints: []string{"a"}}); err != nil {
		t.Fatalf("append avatar: %v", err)
	}
	if err := ctx.Append(JourneyMap{Stages: []JourneyStage{{Name: "aware"}}}); err != nil {
		t.Fatalf("append journey: %v", err)
	}
	got := ctx.Stages()
	if len(got) != 2 || got[0] != StageAvatar || got[1] != StageJourney {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestContextJSONRoundTrip(t *testing.T) {
	ctx := NewContext(testProduct())
	if err := ctx.Append(AvatarAnalysis{PainPoints: []string{"insomnia"}}); err != nil {
		t.Fatalf("append avatar: %v", err)
	}
	if err := ctx.Append(AngleSet{
		Supportive: []MarketingAngle{{AngleID: "angle_1", Number: 1, Category: "social_proof", Concept: "trusted by 10k sleepers", Polarity: PolarityPositive}},
	}); err != nil {
		t.Fatalf("append angles: %v", err)
	}

	raw, err := json.Marshal(ctx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rebuilt Context
	if err := json.Unmarshal(raw, &rebuilt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rebuilt.Product().Name != "SleepWell Tea" {
		t.Fatalf("product lost: got=%q", rebuilt.Product().Name)
	}
	angles, ok := rebuilt.Angles()
	if !ok {
		t.Fatalf("angles result lost")
	}
	if angles.Supportive[0].AngleID != "angle_1" {
		t.Fatalf("angle lost: got=%+v", angles)
	}
	got := rebuilt.Stages()
	if len(got) != 2 || got[0] != StageAvatar || got[1] != StageAngles {
		t.Fatalf("stage order lost: %v", got)
	}
}

func TestContextDropFromRemovesStageAndSuccessors(t *testing.T) {
	ctx := NewContext(testProduct())
	if err := ctx.Append(AngleSet{
		Supportive: []MarketingAngle{{AngleID: "angle_1", Number: 1}},
	}); err != nil {
		t.Fatalf("append angles: %v", err)
	}
	if err := ctx.Append(HookSet{
		Angles: []HooksByAngle{{AngleID: "angle_1", Categories: map[string][]Hook{
			"curiosity": {{HookID: "angle_1_1", Text: "Tired?", AngleID: "angle_1"}},
		}}},
	}); err != nil {
		t.Fatalf("append hooks: %v", err)
	}
	if err := ctx.Append(ScriptSet{
		Scripts: []ScriptRecord{{ScriptID: "angle_1_1_1", Content: "script"}},
	}); err != nil {
		t.Fatalf("append scripts: %v", err)
	}

	ctx.DropFrom(StageHooks)

	if got := ctx.Stages(); len(got) != 1 || got[0] != StageAngles {
		t.Fatalf("stages after drop: %v", got)
	}
	if _, ok := ctx.Hooks(); ok {
		t.Fatalf("hooks result survived drop")
	}
	if _, ok := ctx.Result(StageScripts); ok {
		t.Fatalf("scripts result survived drop")
	}

	// the stage slot is free again, so a regenerated result appends cleanly
	if err := ctx.Append(HookSet{
		Angles: []HooksByAngle{{AngleID: "angle_1", Categories: map[string][]Hook{
			"pain": {{HookID: "angle_1_1", Text: "Still awake at 3am?", AngleID: "angle_1"}},
		}}},
	}); err != nil {
		t.Fatalf("re-append hooks: %v", err)
	}
}

func TestContextDropFromUnknownStageIsNoop(t *testing.T) {
	ctx := NewContext(testProduct())
	if err := ctx.Append(AvatarAnalysis{PainPoints: []string{"insomnia"}}); err != nil {
		t.Fatalf("append avatar: %v", err)
	}
	ctx.DropFrom(StageScripts)
	if got := ctx.Stages(); len(got) != 1 || got[0] != StageAvatar {
		t.Fatalf("stages after noop drop: %v", got)
	}
}
