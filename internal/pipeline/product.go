package pipeline

import (
	"encoding/json"
)

// ProductDescription is the immutable input to a pipeline run, created once
// from user input and never mutated.
type ProductDescription struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	TargetAudience  string `json:"target_audience"`
	Price           string `json:"price,omitempty"`
	ProblemSolved   string `json:"problem_solved"`
	Differentiation string `json:"differentiation"`
	Extras          string `json:"extras,omitempty"`
}

// Render returns the JSON form used inside prompts. Full fidelity over token
// economy: the product is dumped verbatim, never summarized.
func (p ProductDescription) Render() string {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}
