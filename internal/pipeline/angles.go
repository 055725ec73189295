package pipeline

import (
	"fmt"
)

// Polarity values for marketing angles.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
)

// MarketingAngle is one persuasion strategy, identified by the stable
// composite id "angle_<n>".
type MarketingAngle struct {
	AngleID  string `json:"angle_id"`
	Number   int    `json:"angle_number"`
	Category string `json:"angle_category"`
	Concept  string `json:"angle_concept"`
	Polarity string `json:"angle_type"`
}

// AngleSet is the angles stage result: supportive angles sell the outcome,
// counter angles attack an alternative or belief.
type AngleSet struct {
	Supportive []MarketingAngle `json:"supportive_angles"`
	Counter    []MarketingAngle `json:"counter_angles"`
}

func (AngleSet) ResultStage() Stage { return StageAngles }

// All returns both buckets in order, supportive first.
func (a AngleSet) All() []MarketingAngle {
	out := make([]MarketingAngle, 0, len(a.Supportive)+len(a.Counter))
	out = append(out, a.Supportive...)
	out = append(out, a.Counter...)
	return out
}

// Select returns the subset of angles whose ids appear in ids, preserving the
// set's order. Unknown ids are ignored.
func (a AngleSet) Select(ids []string) []MarketingAngle {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []MarketingAngle
	for _, angle := range a.All() {
		if want[angle.AngleID] {
			out = append(out, angle)
		}
	}
	return out
}

// AngleSetFromPayload adapts the two-bucket angles payload. Each raw item is
// re-keyed 1:1 into MarketingAngle; a missing angle_type defaults to the
// bucket's implied polarity rather than failing.
func AngleSetFromPayload(payload map[string]any) (AngleSet, []string, error) {
	m := unwrapStageKey(payload, StageAngles)

	supportiveRaw := firstSlice(m, "supportive_angles", "positive_angles")
	counterRaw := firstSlice(m, "counter_angles", "counter_positioning_angles", "negative_angles")
	if len(supportiveRaw) == 0 && len(counterRaw) == 0 {
		return AngleSet{}, nil, fmt.Errorf("missing required fields supportive_angles/counter_angles")
	}

	var out AngleSet
	var missing []string
	out.Supportive, missing = adaptAngleBucket(supportiveRaw, PolarityPositive, "supportive_angles", missing)
	out.Counter, missing = adaptAngleBucket(counterRaw, PolarityNegative, "counter_angles", missing)

	if len(out.Supportive) == 0 && len(out.Counter) == 0 {
		return AngleSet{}, nil, fmt.Errorf("angle buckets contained no usable entries")
	}
	return out, missing, nil
}

func adaptAngleBucket(items []any, polarity, bucket string, missing []string) ([]MarketingAngle, []string) {
	var out []MarketingAngle
	for i, item := range items {
		am, ok := item.(map[string]any)
		if !ok {
			continue
		}
		angle := MarketingAngle{
			AngleID:  firstString(am, "angle_id", "id"),
			Number:   firstInt(am, "angle_number", "number"),
			Category: firstString(am, "angle_category", "category"),
			Concept:  firstString(am, "angle_concept", "concept"),
			Polarity: firstString(am, "angle_type", "polarity"),
		}
		if angle.Polarity == "" {
			angle.Polarity = polarity
		}
		if angle.AngleID == "" && angle.Number > 0 {
			angle.AngleID = fmt.Sprintf("angle_%d", angle.Number)
		}
		if angle.AngleID == "" || angle.Concept == "" {
			missing = append(missing, fmt.Sprintf("%s[%d]", bucket, i))
			continue
		}
		if angle.Category == "" {
			missing = append(missing, fmt.Sprintf("%s[%d].angle_category", bucket, i))
		}
		out = append(out, angle)
	}
	return out, missing
}
