package pipeline

import (
	"encoding/json"
	"fmt"
)

// Context is the accumulated state of one pipeline run: an ordered,
// append-only mapping from stage to its result, owned exclusively by that
// run. Stage N's prompt construction may read any result appended before it
// and never mutates what is already stored.
type Context struct {
	product ProductDescription
	order   []Stage
	results map[Stage]StageResult
}

func NewContext(product ProductDescription) *Context {
	return &Context{
		product: product,
		results: make(map[Stage]StageResult),
	}
}

func (c *Context) Product() ProductDescription {
	return c.product
}

// Append stores a completed stage result. A stage can only be appended once.
func (c *Context) Append(result StageResult) error {
	stage := result.ResultStage()
	if _, exists := c.results[stage]; exists {
		return fmt.Errorf("stage %s already present in context", stage)
	}
	c.order = append(c.order, stage)
	c.results[stage] = result
	return nil
}

// DropFrom removes stage and every stage appended after it, so a
// continuation stage can be regenerated. Dropping a stage that is not in the
// context is a no-op.
func (c *Context) DropFrom(stage Stage) {
	idx := -1
	for i, s := range c.order {
		if s == stage {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for _, s := range c.order[idx:] {
		delete(c.results, s)
	}
	c.order = c.order[:idx]
}

func (c *Context) Result(stage Stage) (StageResult, bool) {
	res, ok := c.results[stage]
	return res, ok
}

// Stages returns the completed stages in append order.
func (c *Context) Stages() []Stage {
	out := make([]Stage, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Context) Avatar() (AvatarAnalysis, bool) {
	res, ok := c.results[StageAvatar]
	if !ok {
		return AvatarAnalysis{}, false
	}
	typed, ok := res.(AvatarAnalysis)
	return typed, ok
}

func (c *Context) Angles() (AngleSet, bool) {
	res, ok := c.results[StageAngles]
	if !ok {
		return AngleSet{}, false
	}
	typed, ok := res.(AngleSet)
	return typed, ok
}

func (c *Context) Hooks() (HookSet, bool) {
	res, ok := c.results[StageHooks]
	if !ok {
		return HookSet{}, false
	}
	typed, ok := res.(HookSet)
	return typed, ok
}

func (c *Context) Scripts() (ScriptSet, bool) {
	res, ok := c.results[StageScripts]
	if !ok {
		return ScriptSet{}, false
	}
	typed, ok := res.(ScriptSet)
	return typed, ok
}

type contextEnvelope struct {
	Product ProductDescription `json:"product"`
	Stages  []stageEnvelope    `json:"stages"`
}

type stageEnvelope struct {
	Stage  Stage           `json:"stage"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON serializes the context for caching and persistence.
func (c *Context) MarshalJSON() ([]byte, error) {
	env := contextEnvelope{Product: c.product}
	for _, stage := range c.order {
		raw, err := json.Marshal(c.results[stage])
		if err != nil {
			return nil, err
		}
		env.Stages = append(env.Stages, stageEnvelope{Stage: stage, Result: raw})
	}
	return json.Marshal(env)
}

// UnmarshalJSON rebuilds a context, decoding each stage payload into its
// typed result.
func (c *Context) UnmarshalJSON(data []byte) error {
	var env contextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	rebuilt := NewContext(env.Product)
	for _, se := range env.Stages {
		result, err := DecodeStageResult(se.Stage, se.Result)
		if err != nil {
			return err
		}
		if err := rebuilt.Append(result); err != nil {
			return err
		}
	}
	*c = *rebuilt
	return nil
}

// DecodeStageResult decodes a serialized stage payload into its typed form.
func DecodeStageResult(stage Stage, raw json.RawMessage) (StageResult, error) {
	switch stage {
	case StageAvatar:
		var v AvatarAnalysis
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case StageJourney:
		var v JourneyMap
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case StageObjections:
		var v ObjectionsAnalysis
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case StageAngles:
		var v AngleSet
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case StageHooks:
		var v HookSet
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case StageScripts:
		var v ScriptSet
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}
