package pipeline

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("test payload invalid: %v", err)
	}
	return m
}

func TestAvatarAnalysisFromPayloadWrapped(t *testing.T) {
	payload := decodePayload(t, `{
		"avatar_analysis": {
			"demographics": {"age": "30-45"},
			"pain_points": ["wakes up tired"],
			"desires": ["deep sleep"]
		}
	}`)
	out, missing, err := AvatarAnalysisFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if out.PainPoints[0] != "wakes up tired" {
		t.Fatalf("pain_points: got=%v", out.PainPoints)
	}
	// fears, beliefs, day_in_life, buying_triggers absent
	if len(missing) != 4 {
		t.Fatalf("missing optional fields: got=%v", missing)
	}
}

func TestAvatarAnalysisFromPayloadUnwrapped(t *testing.T) {
	payload := decodePayload(t, `{"pain_points": ["stress"]}`)
	out, _, err := AvatarAnalysisFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.PainPoints) != 1 {
		t.Fatalf("pain_points: got=%v", out.PainPoints)
	}
}

func TestAvatarAnalysisRequiresPainPoints(t *testing.T) {
	payload := decodePayload(t, `{"desires": ["x"]}`)
	if _, _, err := AvatarAnalysisFromPayload(payload); err == nil {
		t.Fatalf("expected error for missing pain_points")
	}
}

func TestJourneyMapFromPayloadAlternateSpellings(t *testing.T) {
	payload := decodePayload(t, `{
		"customer_journey": {
			"journey_stages": [
				{"stage": "unaware", "emotion": "frustrated", "thoughts": "why am I so tired"},
				{"name": "solution_aware", "emotional_state": "hopeful"}
			]
		}
	}`)
	out, missing, err := JourneyMapFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Stages) != 2 {
		t.Fatalf("stages: got=%d", len(out.Stages))
	}
	if out.Stages[0].Name != "unaware" || out.Stages[0].EmotionalState != "frustrated" {
		t.Fatalf("alternate keys not folded: %+v", out.Stages[0])
	}
	if out.Stages[0].InternalDialogue != "why am I so tired" {
		t.Fatalf("thoughts not folded: %+v", out.Stages[0])
	}
	if len(missing) != 1 || missing[0] != "stages[1].internal_dialogue" {
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestJourneyMapUnnamedStageGetsPositionalName(t *testing.T) {
	payload := decodePayload(t, `{"stages": [{"emotional_state": "curious", "internal_dialogue": "hm"}]}`)
	out, _, err := JourneyMapFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if out.Stages[0].Name != "stage_1" {
		t.Fatalf("name: got=%q", out.Stages[0].Name)
	}
}

func TestObjectionsFromPayloadMixedShapes(t *testing.T) {
	payload := decodePayload(t, `{
		"objections_analysis": {
			"objections": [
				{"objection": "too expensive", "rebuttal": "costs less than one takeout coffee a week"},
				"does it actually work",
				{"text": "tastes bad", "response": "naturally sweetened with honeybush"}
			]
		}
	}`)
	out, missing, err := ObjectionsAnalysisFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Objections) != 3 {
		t.Fatalf("objections: got=%d", len(out.Objections))
	}
	if out.Objections[1].Objection != "does it actually work" {
		t.Fatalf("bare string not adapted: %+v", out.Objections[1])
	}
	if out.Objections[2].Rebuttal != "naturally sweetened with honeybush" {
		t.Fatalf("response alternate not folded: %+v", out.Objections[2])
	}
	if len(missing) != 0 {
		// bare-string objection carries no rebuttal but is not indexed as missing
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestObjectionsFromPayloadEmptyFails(t *testing.T) {
	payload := decodePayload(t, `{"objections": []}`)
	if _, _, err := ObjectionsAnalysisFromPayload(payload); err == nil {
		t.Fatalf("expected error for empty objections")
	}
}
