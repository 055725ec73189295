package pipeline

import "testing"

func TestAngleSetFromPayload(t *testing.T) {
	payload := decodePayload(t, `{
		"marketing_angles": {
			"supportive_angles": [
				{"angle_number": 1, "angle_id": "angle_1", "angle_category": "transformation", "angle_concept": "wake up actually rested"},
				{"angle_number": 2, "angle_id": "angle_2", "angle_category": "social_proof", "angle_concept": "10k verified sleepers", "angle_type": "positive"}
			],
			"counter_angles": [
				{"angle_number": 3, "angle_id": "angle_3", "angle_category": "against_melatonin", "angle_concept": "melatonin leaves you groggy"}
			]
		}
	}`)
	out, missing, err := AngleSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Supportive) != 2 || len(out.Counter) != 1 {
		t.Fatalf("buckets: supportive=%d counter=%d", len(out.Supportive), len(out.Counter))
	}
	if out.Supportive[0].Polarity != PolarityPositive {
		t.Fatalf("missing angle_type should default to bucket polarity, got=%q", out.Supportive[0].Polarity)
	}
	if out.Counter[0].Polarity != PolarityNegative {
		t.Fatalf("counter polarity: got=%q", out.Counter[0].Polarity)
	}
	if len(missing) != 0 {
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestAngleSetSynthesizesIDFromNumber(t *testing.T) {
	payload := decodePayload(t, `{
		"supportive_angles": [
			{"angle_number": 4, "angle_category": "urgency", "angle_concept": "limited harvest"}
		]
	}`)
	out, _, err := AngleSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if out.Supportive[0].AngleID != "angle_4" {
		t.Fatalf("angle_id: got=%q", out.Supportive[0].AngleID)
	}
}

func TestAngleSetSkipsUnusableEntries(t *testing.T) {
	payload := decodePayload(t, `{
		"supportive_angles": [
			{"angle_number": 1, "angle_id": "angle_1", "angle_category": "a", "angle_concept": "ok"},
			{"angle_category": "b"}
		]
	}`)
	out, missing, err := AngleSetFromPayload(payload)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if len(out.Supportive) != 1 {
		t.Fatalf("supportive: got=%d", len(out.Supportive))
	}
	if len(missing) != 1 || missing[0] != "supportive_angles[1]" {
		t.Fatalf("missing: got=%v", missing)
	}
}

func TestAngleSetBothBucketsEmptyFails(t *testing.T) {
	payload := decodePayload(t, `{"something_else": true}`)
	if _, _, err := AngleSetFromPayload(payload); err == nil {
		t.Fatalf("expected error for missing buckets")
	}
}

func TestAngleSetSelect(t *testing.T) {
	set := AngleSet{
		Supportive: []MarketingAngle{{AngleID: "angle_1"}, {AngleID: "angle_2"}},
		Counter:    []MarketingAngle{{AngleID: "angle_3"}},
	}
	got := set.Select([]string{"angle_3", "angle_1", "angle_9"})
	if len(got) != 2 || got[0].AngleID != "angle_1" || got[1].AngleID != "angle_3" {
		t.Fatalf("select: got=%+v", got)
	}
}
