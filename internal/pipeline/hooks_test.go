package pipeline

import "testing"

func TestHookSetFromPayloadStructured(t *testing.T) {
	payload := decodePayload(t, `{
		"hooks_by_angle": {
			"angle_1": {
				"curiosity": [
					{"hook_id": "angle_1_1", "hook_text": "The 9pm mistake ruining your sleep", "hook_category": "curiosity"}
				],
				"pain": [
					{"hook_id": "angle_1_2", "hook_text": "Tired of being tired?"}
				]
			}
		}
	}`)
	out, missing, err := HookSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Angles) != 1 {
		t.Fatalf("angles: got=%d", len(out.Angles))
	}
	all := out.All()
	if len(all) != 2 {
		t.Fatalf("hooks: got=%d", len(all))
	}
	for _, h := range all {
		if h.AngleID != "angle_1" {
			t.Fatalf("angle binding lost: %+v", h)
		}
	}
	// category backfilled from the enclosing key
	pain := out.Angles[0].Categories["pain"][0]
	if pain.Category != "pain" {
		t.Fatalf("category: got=%q", pain.Category)
	}
	if len(missing) != 0 {
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestHookSetBareStringsGetSyntheticIDs(t *testing.T) {
	payload := decodePayload(t, `{
		"hooks_by_angle": {
			"angle_2": {
				"bold_claim": ["Sleep like a log tonight", "No more 3am stares"],
				"curiosity": ["What your doctor never tells you"]
			}
		}
	}`)
	out, _, err := HookSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	// categories iterate in sorted order, counter runs per angle
	bold := out.Angles[0].Categories["bold_claim"]
	cur := out.Angles[0].Categories["curiosity"]
	if bold[0].HookID != "angle_2_1" || bold[1].HookID != "angle_2_2" {
		t.Fatalf("bold_claim ids: got=%q %q", bold[0].HookID, bold[1].HookID)
	}
	if cur[0].HookID != "angle_2_3" {
		t.Fatalf("curiosity id: got=%q", cur[0].HookID)
	}
}

func TestHookSetDeterministicAcrossRepeats(t *testing.T) {
	raw := `{
		"hooks_by_angle": {
			"angle_3": {"pain": ["a", "b"], "curiosity": ["c"]},
			"angle_1": {"pain": ["d"]}
		}
	}`
	first, _, err := HookSetFromPayload(decodePayload(t, raw))
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, _, err := HookSetFromPayload(decodePayload(t, raw))
		if err != nil {
			t.Fatalf("adapt repeat %d: %v", i, err)
		}
		a, b := first.All(), again.All()
		if len(a) != len(b) {
			t.Fatalf("repeat %d: lengths differ", i)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("repeat %d: hook %d differs: %+v vs %+v", i, j, a[j], b[j])
			}
		}
	}
}

func TestHookSetAcceptsBareAngleMap(t *testing.T) {
	wrapped := decodePayload(t, `{
		"hooks_by_angle": {
			"angle_1": {"curiosity": [{"hook_id": "angle_1_1", "hook_text": "Tired?"}]}
		}
	}`)
	bare := decodePayload(t, `{
		"angle_1": {"curiosity": [{"hook_id": "angle_1_1", "hook_text": "Tired?"}]}
	}`)
	fromWrapped, _, err := HookSetFromPayload(wrapped)
	if err != nil {
		t.Fatalf("wrapped form: %v", err)
	}
	fromBare, _, err := HookSetFromPayload(bare)
	if err != nil {
		t.Fatalf("bare form: %v", err)
	}
	a, b := fromWrapped.All(), fromBare.All()
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("forms disagree: %+v vs %+v", a, b)
	}
}

func TestHookSetMissingTopLevelFails(t *testing.T) {
	payload := decodePayload(t, `{"not_hooks": {}}`)
	if _, _, err := HookSetFromPayload(payload); err == nil {
		t.Fatalf("expected error for missing hooks_by_angle")
	}
}

func TestHookSetSelect(t *testing.T) {
	set := HookSet{Angles: []HooksByAngle{{
		AngleID: "angle_1",
		Categories: map[string][]Hook{
			"pain": {{HookID: "angle_1_1", Text: "a"}, {HookID: "angle_1_2", Text: "b"}},
		},
	}}}
	got := set.Select([]string{"angle_1_2"})
	if len(got) != 1 || got[0].HookID != "angle_1_2" {
		t.Fatalf("select: got=%+v", got)
	}
}
