package pipeline

import "testing"

func TestScriptIDRoundTrip(t *testing.T) {
	id := FormatScriptID(2, 3, 1)
	if id != "angle_2_3_1" {
		t.Fatalf("format: got=%q", id)
	}
	angleID, hookID, err := ParseScriptID(id)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if angleID != "angle_2" || hookID != "angle_2_3" {
		t.Fatalf("lineage: angle=%q hook=%q", angleID, hookID)
	}
}

func TestParseScriptIDToleratesExtraTokens(t *testing.T) {
	angleID, hookID, err := ParseScriptID("angle_1_2_3_final")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if angleID != "angle_1" || hookID != "angle_1_2" {
		t.Fatalf("lineage: angle=%q hook=%q", angleID, hookID)
	}
}

func TestParseScriptIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "angle_1", "angle_1_2", "angle_1_x_3", "angle_1_2_x"} {
		if _, _, err := ParseScriptID(id); err == nil {
			t.Fatalf("expected error for %q", id)
		}
	}
}

func TestParseScriptIDKeepsNonNumericAngleToken(t *testing.T) {
	angleID, hookID, err := ParseScriptID("angle_x_2_1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if angleID != "angle_x" || hookID != "angle_x_2" {
		t.Fatalf("lineage: angle=%q hook=%q", angleID, hookID)
	}
}

func TestScriptSetFromPayload(t *testing.T) {
	payload := decodePayload(t, `{
		"scripts": [
			{"script_id": "angle_1_1_1", "content": "Ever wake up more tired...", "cta": "Try it tonight", "target_emotion": "hope"},
			{"script_id": "angle_1_1_2", "script": "You brush your teeth every night...", "call_to_action": "Order now", "emotion": "urgency"}
		]
	}`)
	out, missing, err := ScriptSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Scripts) != 2 {
		t.Fatalf("scripts: got=%d", len(out.Scripts))
	}
	second := out.Scripts[1]
	if second.Content == "" || second.CTA != "Order now" || second.TargetEmotion != "urgency" {
		t.Fatalf("alternates not folded: %+v", second)
	}
	if second.AngleID != "angle_1" || second.HookID != "angle_1_1" {
		t.Fatalf("lineage not derived: %+v", second)
	}
	if len(missing) != 0 {
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestScriptSetKeepsUnparseableIDs(t *testing.T) {
	payload := decodePayload(t, `{
		"scripts": [
			{"script_id": "freestyle", "content": "some copy", "cta": "go"}
		]
	}`)
	out, _, err := ScriptSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	rec := out.Scripts[0]
	if rec.ScriptID != "freestyle" || rec.AngleID != "" || rec.HookID != "" {
		t.Fatalf("record: %+v", rec)
	}
}

func TestScriptSetSkipsEmptyRecords(t *testing.T) {
	payload := decodePayload(t, `{
		"scripts": [
			{"script_id": "angle_1_1_1"},
			{"script_id": "angle_1_1_2", "content": "real copy", "cta": "buy"}
		]
	}`)
	out, missing, err := ScriptSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Scripts) != 1 {
		t.Fatalf("scripts: got=%d", len(out.Scripts))
	}
	if len(missing) != 1 || missing[0] != "scripts[0]" {
		t.Fatalf("missing: got=%v", missing)
	}
}
