package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adforge/adforge-backend/internal/clients/completion"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/normalization"
	"github.com/adforge/adforge-backend/internal/prompts"
)

// Usage reports one stage's completion token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Truncated    bool
}

// StageHook is called after each stage result is appended to the context.
// Callers use it to persist intermediate results and push progress events;
// a nil hook is allowed.
type StageHook func(ctx context.Context, stage Stage, result StageResult, usage Usage)

// Runner drives the generation pipeline: for each stage it assembles a
// prompt from the accumulated context, sends one completion request, repairs
// and parses the response, and appends the typed result.
type Runner struct {
	log    *logger.Logger
	llm    completion.Client
	store  *prompts.Store
	tracer trace.Tracer
}

func NewRunner(llm completion.Client, store *prompts.Store, log *logger.Logger) *Runner {
	return &Runner{
		log:    log.With("service", "PipelineRunner"),
		llm:    llm,
		store:  store,
		tracer: otel.Tracer("pipeline"),
	}
}

// RunCore executes the four analysis stages in order against a fresh or
// resumed context. Attachments (product PDFs, packaging shots) ride along on
// every core stage request. Stages already present in the context are
// skipped, which makes re-running after a mid-pipeline failure safe.
func (r *Runner) RunCore(ctx context.Context, pctx *Context, attachments []completion.Attachment, hook StageHook) error {
	for _, stage := range CoreStages {
		if _, done := pctx.Result(stage); done {
			r.log.Info("Stage already complete, skipping", "stage", stage)
			continue
		}
		if err := r.runStage(ctx, pctx, stage, "", attachments, hook); err != nil {
			return err
		}
	}
	return nil
}

// RunHooks executes the hooks continuation for the given selected angle ids.
// The core stages must have completed; an empty selection means all angles.
func (r *Runner) RunHooks(ctx context.Context, pctx *Context, angleIDs []string, hook StageHook) error {
	angles, ok := pctx.Angles()
	if !ok {
		return &StageError{Stage: StageHooks, Err: fmt.Errorf("angles stage has not completed")}
	}
	selected := angles.All()
	if len(angleIDs) > 0 {
		selected = angles.Select(angleIDs)
		if len(selected) == 0 {
			return &StageError{Stage: StageHooks, Err: fmt.Errorf("none of the selected angle ids %v exist", angleIDs)}
		}
	}
	extra := selectionSection("Generate hooks only for these selected angles:", func(b *strings.Builder) {
		for _, a := range selected {
			fmt.Fprintf(b, "- %s (%s): %s\n", a.AngleID, a.Category, a.Concept)
		}
	})
	return r.runStage(ctx, pctx, StageHooks, extra, nil, hook)
}

// RunScripts executes the scripts continuation for the given selected hook
// ids. The hooks stage must have completed; an empty selection means all
// hooks.
func (r *Runner) RunScripts(ctx context.Context, pctx *Context, hookIDs []string, hook StageHook) error {
	hooks, ok := pctx.Hooks()
	if !ok {
		return &StageError{Stage: StageScripts, Err: fmt.Errorf("hooks stage has not completed")}
	}
	selected := hooks.All()
	if len(hookIDs) > 0 {
		selected = hooks.Select(hookIDs)
		if len(selected) == 0 {
			return &StageError{Stage: StageScripts, Err: fmt.Errorf("none of the selected hook ids %v exist", hookIDs)}
		}
	}
	extra := selectionSection("Write scripts only for these selected hooks:", func(b *strings.Builder) {
		for _, h := range selected {
			fmt.Fprintf(b, "- %s (%s, angle %s): %s\n", h.HookID, h.Category, h.AngleID, h.Text)
		}
	})
	return r.runStage(ctx, pctx, StageScripts, extra, nil, hook)
}

func selectionSection(heading string, body func(*strings.Builder)) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	body(&b)
	return b.String()
}

func (r *Runner) runStage(ctx context.Context, pctx *Context, stage Stage, extra string, attachments []completion.Attachment, hook StageHook) error {
	ctx, span := r.tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(attribute.String("pipeline.stage", string(stage))))
	defer span.End()

	tpl := r.store.Get(string(stage))
	system, user, err := r.buildPrompt(tpl, pctx, extra)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}

	res, err := r.llm.Complete(ctx, completion.Request{
		System:          system,
		User:            user,
		MaxOutputTokens: tpl.MaxOutputTokens,
		Attachments:     attachments,
	})
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	if res.Truncated {
		r.log.Warn("Completion hit the output token limit, response may be incomplete",
			"stage", stage, "output_tokens", res.OutputTokens)
	}

	result, err := ParseStageOutput(stage, res.Text, r.log)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	if err := pctx.Append(result); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	span.SetAttributes(
		attribute.Int("completion.input_tokens", res.InputTokens),
		attribute.Int("completion.output_tokens", res.OutputTokens),
	)
	r.log.Info("Stage complete", "stage", stage,
		"input_tokens", res.InputTokens, "output_tokens", res.OutputTokens)

	if hook != nil {
		hook(ctx, stage, result, Usage{InputTokens: res.InputTokens, OutputTokens: res.OutputTokens, Truncated: res.Truncated})
	}
	return nil
}

// buildPrompt assembles a stage's system and user prompts: the template's
// role becomes the system prompt; the user prompt stacks instructions, the
// product description, every prior stage result as verbatim JSON, any
// selection constraints, the template's extra sections, and the required
// output format.
func (r *Runner) buildPrompt(tpl prompts.Template, pctx *Context, extra string) (string, string, error) {
	var b strings.Builder
	if s := strings.TrimSpace(tpl.Instructions); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	b.WriteString("## Product\n")
	b.WriteString(pctx.Product().Render())
	b.WriteString("\n")

	for _, prior := range pctx.Stages() {
		res, _ := pctx.Result(prior)
		raw, err := json.Marshal(res)
		if err != nil {
			return "", "", fmt.Errorf("serializing %s result for prompt: %w", prior, err)
		}
		fmt.Fprintf(&b, "\n## Prior analysis: %s\n%s\n", prior, raw)
	}

	if s := strings.TrimSpace(extra); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	for _, name := range sortedKeys(tpl.Sections) {
		fmt.Fprintf(&b, "\n## %s\n%s\n", name, strings.TrimSpace(tpl.Sections[name]))
	}
	if s := strings.TrimSpace(tpl.OutputFormat.Text()); s != "" {
		b.WriteString("\n## Output format\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return strings.TrimSpace(tpl.Role), b.String(), nil
}

// ParseStageOutput repairs a raw model response into JSON, decodes it, and
// adapts it into the stage's typed result. Parse failures carry a truncated
// preview of the original response for diagnosis.
func ParseStageOutput(stage Stage, raw string, log *logger.Logger) (StageResult, error) {
	cleaned := normalization.ExtractJSON(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, newMalformedOutputError(stage, raw, fmt.Errorf("response is not a JSON object: %w", err))
	}

	result, missing, err := adaptStagePayload(stage, payload)
	if err != nil {
		return nil, newMalformedOutputError(stage, raw, err)
	}
	if len(missing) > 0 {
		log.Warn("Stage output missing optional fields", "stage", stage, "fields", missing)
	}
	return result, nil
}

func adaptStagePayload(stage Stage, payload map[string]any) (StageResult, []string, error) {
	switch stage {
	case StageAvatar:
		return wrapAdapt(AvatarAnalysisFromPayload(payload))
	case StageJourney:
		return wrapAdapt(JourneyMapFromPayload(payload))
	case StageObjections:
		return wrapAdapt(ObjectionsAnalysisFromPayload(payload))
	case StageAngles:
		return wrapAdapt(AngleSetFromPayload(payload))
	case StageHooks:
		return wrapAdapt(HookSetFromPayload(payload))
	case StageScripts:
		return wrapAdapt(ScriptSetFromPayload(payload))
	default:
		return nil, nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func wrapAdapt[T StageResult](result T, missing []string, err error) (StageResult, []string, error) {
	if err != nil {
		return nil, nil, err
	}
	return result, missing, nil
}
