package pipeline

import (
	"fmt"
)

// AvatarAnalysis is the customer-avatar stage result.
type AvatarAnalysis struct {
	Demographics   map[string]any `json:"demographics,omitempty"`
	PainPoints     []string       `json:"pain_points"`
	Desires        []string       `json:"desires,omitempty"`
	Fears          []string       `json:"fears,omitempty"`
	Beliefs        []string       `json:"beliefs,omitempty"`
	DayInLife      string         `json:"day_in_life,omitempty"`
	BuyingTriggers []string       `json:"buying_triggers,omitempty"`
}

func (AvatarAnalysis) ResultStage() Stage { return StageAvatar }

// AvatarAnalysisFromPayload adapts the decoded model payload. A sparse result
// is usable, just lower quality: only pain_points is required; every other
// missing field is reported back for warning-level logging.
func AvatarAnalysisFromPayload(payload map[string]any) (AvatarAnalysis, []string, error) {
	m := unwrapStageKey(payload, StageAvatar)
	out := AvatarAnalysis{
		Demographics:   firstMap(m, "demographics", "demographic_profile"),
		PainPoints:     firstStringSlice(m, "pain_points", "pains"),
		Desires:        firstStringSlice(m, "desires", "desired_outcomes"),
		Fears:          firstStringSlice(m, "fears"),
		Beliefs:        firstStringSlice(m, "beliefs", "current_beliefs"),
		DayInLife:      firstString(m, "day_in_life", "day_in_the_life"),
		BuyingTriggers: firstStringSlice(m, "buying_triggers", "triggers"),
	}
	if len(out.PainPoints) == 0 {
		return AvatarAnalysis{}, nil, fmt.Errorf("missing required field pain_points")
	}
	var missing []string
	if len(out.Demographics) == 0 {
		missing = append(missing, "demographics")
	}
	if len(out.Desires) == 0 {
		missing = append(missing, "desires")
	}
	if len(out.Fears) == 0 {
		missing = append(missing, "fears")
	}
	if len(out.Beliefs) == 0 {
		missing = append(missing, "beliefs")
	}
	if out.DayInLife == "" {
		missing = append(missing, "day_in_life")
	}
	if len(out.BuyingTriggers) == 0 {
		missing = append(missing, "buying_triggers")
	}
	return out, missing, nil
}

// JourneyStage is one phase of the customer journey.
type JourneyStage struct {
	Name             string   `json:"name"`
	EmotionalState   string   `json:"emotional_state,omitempty"`
	InternalDialogue string   `json:"internal_dialogue,omitempty"`
	Touchpoints      []string `json:"touchpoints,omitempty"`
	ContentNeeds     []string `json:"content_needs,omitempty"`
}

// JourneyMap is the customer-journey stage result.
type JourneyMap struct {
	Stages []JourneyStage `json:"stages"`
}

func (JourneyMap) ResultStage() Stage { return StageJourney }

func JourneyMapFromPayload(payload map[string]any) (JourneyMap, []string, error) {
	m := unwrapStageKey(payload, StageJourney)
	items := firstSlice(m, "stages", "journey_stages")
	if len(items) == 0 {
		return JourneyMap{}, nil, fmt.Errorf("missing required field stages")
	}
	var out JourneyMap
	var missing []string
	for i, item := range items {
		sm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		stage := JourneyStage{
			Name:             firstString(sm, "name", "stage", "stage_name"),
			EmotionalState:   firstString(sm, "emotional_state", "emotion"),
			InternalDialogue: firstString(sm, "internal_dialogue", "dialogue", "thoughts"),
			Touchpoints:      firstStringSlice(sm, "touchpoints", "touch_points"),
			ContentNeeds:     firstStringSlice(sm, "content_needs"),
		}
		if stage.Name == "" {
			stage.Name = fmt.Sprintf("stage_%d", i+1)
		}
		if stage.EmotionalState == "" {
			missing = append(missing, fmt.Sprintf("stages[%d].emotional_state", i))
		}
		if stage.InternalDialogue == "" {
			missing = append(missing, fmt.Sprintf("stages[%d].internal_dialogue", i))
		}
		out.Stages = append(out.Stages, stage)
	}
	if len(out.Stages) == 0 {
		return JourneyMap{}, nil, fmt.Errorf("stages contained no objects")
	}
	return out, missing, nil
}

// Objection is one customer objection with its rebuttal.
type Objection struct {
	Objection string `json:"objection"`
	Category  string `json:"category,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Rebuttal  string `json:"rebuttal,omitempty"`
}

// ObjectionsAnalysis is the objections stage result.
type ObjectionsAnalysis struct {
	Objections []Objection `json:"objections"`
}

func (ObjectionsAnalysis) ResultStage() Stage { return StageObjections }

func ObjectionsAnalysisFromPayload(payload map[string]any) (ObjectionsAnalysis, []string, error) {
	m := unwrapStageKey(payload, StageObjections)
	items := firstSlice(m, "objections")
	if len(items) == 0 {
		return ObjectionsAnalysis{}, nil, fmt.Errorf("missing required field objections")
	}
	var out ObjectionsAnalysis
	var missing []string
	for i, item := range items {
		om, ok := item.(map[string]any)
		if !ok {
			// tolerate bare-string objections
			if s, ok := item.(string); ok && s != "" {
				out.Objections = append(out.Objections, Objection{Objection: s})
			}
			continue
		}
		obj := Objection{
			Objection: firstString(om, "objection", "text"),
			Category:  firstString(om, "category", "objection_category"),
			Severity:  firstString(om, "severity"),
			Rebuttal:  firstString(om, "rebuttal", "response", "counter"),
		}
		if obj.Objection == "" {
			continue
		}
		if obj.Rebuttal == "" {
			missing = append(missing, fmt.Sprintf("objections[%d].rebuttal", i))
		}
		out.Objections = append(out.Objections, obj)
	}
	if len(out.Objections) == 0 {
		return ObjectionsAnalysis{}, nil, fmt.Errorf("objections contained no usable entries")
	}
	return out, missing, nil
}
