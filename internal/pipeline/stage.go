package pipeline

// Stage is one phase of the generation pipeline. Stages run strictly in
// order: each stage's prompt is built from the accumulated results of every
// stage before it.
type Stage string

const (
	StageAvatar     Stage = "avatar"
	StageJourney    Stage = "journey"
	StageObjections Stage = "objections"
	StageAngles     Stage = "angles"
	StageHooks      Stage = "hooks"
	StageScripts    Stage = "scripts"
)

// CoreStages is the initial analysis run. Hooks and scripts form a separate
// continuation entered later with the user's selected angles.
var CoreStages = []Stage{StageAvatar, StageJourney, StageObjections, StageAngles}

var ContinuationStages = []Stage{StageHooks, StageScripts}

// stageKeys maps each stage to the optional top-level key the model may wrap
// its answer in. Both wrapped and unwrapped payloads are accepted.
var stageKeys = map[Stage]string{
	StageAvatar:     "avatar_analysis",
	StageJourney:    "customer_journey",
	StageObjections: "objections_analysis",
	StageAngles:     "marketing_angles",
	StageHooks:      "hooks_by_angle",
	StageScripts:    "scripts",
}

// StageResult is the typed output of one completed stage.
type StageResult interface {
	ResultStage() Stage
}
