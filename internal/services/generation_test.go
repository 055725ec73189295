package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/completion"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/prompts"
	"github.com/adforge/adforge-backend/internal/types"
)

type fakeCompletionClient struct {
	responses []completion.Result
	requests  []completion.Request
}

func (f *fakeCompletionClient) Complete(_ context.Context, req completion.Request) (completion.Result, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return completion.Result{}, fmt.Errorf("fake llm: no responses left")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res, nil
}

type fakeCampaignRepo struct {
	statuses []string
}

func (f *fakeCampaignRepo) Create(context.Context, *gorm.DB, *types.Campaign) (*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignRepo) GetByID(context.Context, *gorm.DB, uuid.UUID) (*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignRepo) ListByUserID(context.Context, *gorm.DB, uuid.UUID) ([]*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uuid.UUID, updates map[string]interface{}) error {
	if status, ok := updates["status"].(string); ok {
		f.statuses = append(f.statuses, status)
	}
	return nil
}

func (f *fakeCampaignRepo) Delete(context.Context, *gorm.DB, uuid.UUID) error {
	return fmt.Errorf("not implemented")
}

func generationPromptStore(t *testing.T) *prompts.Store {
	t.Helper()
	dir := t.TempDir()
	for _, stage := range []pipeline.Stage{pipeline.StageHooks, pipeline.StageScripts} {
		tpl := fmt.Sprintf("stage: %s\nrole: You are a direct response copywriter.\ninstructions: Generate %s.\noutput_format:\n  format: Return a single JSON object.\n", stage, stage)
		if err := os.WriteFile(filepath.Join(dir, string(stage)+".yaml"), []byte(tpl), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	store, err := prompts.LoadDir(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	return store
}

func seededAngles() pipeline.AngleSet {
	return pipeline.AngleSet{
		Supportive: []pipeline.MarketingAngle{{
			AngleID:  "angle_1",
			Number:   1,
			Category: "transformation",
			Concept:  "rested mornings",
			Polarity: pipeline.PolarityPositive,
		}},
	}
}

func seededHooks() pipeline.HookSet {
	return pipeline.HookSet{
		Angles: []pipeline.HooksByAngle{{AngleID: "angle_1", Categories: map[string][]pipeline.Hook{
			"curiosity": {{HookID: "angle_1_1", Text: "First pass", AngleID: "angle_1"}},
		}}},
	}
}

type generationFixture struct {
	campaignID uuid.UUID
	llm        *fakeCompletionClient
	repo       *fakeStageRunRepo
	service    GenerationService
}

func newGenerationFixture(t *testing.T, responses ...completion.Result) *generationFixture {
	t.Helper()
	campaignID := uuid.New()
	campaign := &types.Campaign{ID: campaignID, Status: types.CampaignStatusComplete}
	campaigns := &fakeCampaignService{campaign: campaign, product: storeProduct()}
	repo := &fakeStageRunRepo{}
	llm := &fakeCompletionClient{responses: responses}
	runner := pipeline.NewRunner(llm, generationPromptStore(t), logger.NewNop())
	ctxStore := NewContextStore(logger.NewNop(), newFakeCache(), repo)
	service := NewGenerationService(
		nil, logger.NewNop(), runner, campaigns, ctxStore,
		repo, &fakeCampaignRepo{}, nil, nil, nil,
	)
	return &generationFixture{campaignID: campaignID, llm: llm, repo: repo, service: service}
}

func hooksResponse(text string) completion.Result {
	return completion.Result{
		Text:         fmt.Sprintf(`{"hooks_by_angle": {"angle_1": {"curiosity": [{"hook_id": "angle_1_1", "hook_text": %q}]}}}`, text),
		InputTokens:  10,
		OutputTokens: 20,
	}
}

func TestGenerateHooksReplacesPriorHooksAndScripts(t *testing.T) {
	fx := newGenerationFixture(t, hooksResponse("Regenerated hook"))
	fx.repo.runs = append(fx.repo.runs,
		stageRunFor(t, fx.campaignID, string(pipeline.StageAngles), seededAngles()),
		stageRunFor(t, fx.campaignID, string(pipeline.StageHooks), seededHooks()),
		stageRunFor(t, fx.campaignID, string(pipeline.StageScripts), pipeline.ScriptSet{
			Scripts: []pipeline.ScriptRecord{{ScriptID: "angle_1_1_1", Content: "old script", CTA: "buy"}},
		}),
	)

	if err := fx.service.GenerateHooks(context.Background(), fx.campaignID, []string{"angle_1"}); err != nil {
		t.Fatalf("regenerate hooks: %v", err)
	}

	hooksRun, err := fx.repo.GetByCampaignAndStage(context.Background(), nil, fx.campaignID, string(pipeline.StageHooks))
	if err != nil || hooksRun == nil {
		t.Fatalf("hooks run after regenerate: run=%v err=%v", hooksRun, err)
	}
	if !strings.Contains(string(hooksRun.Payload), "Regenerated hook") {
		t.Fatalf("hooks payload not replaced: %s", hooksRun.Payload)
	}
	scriptsRun, err := fx.repo.GetByCampaignAndStage(context.Background(), nil, fx.campaignID, string(pipeline.StageScripts))
	if err != nil {
		t.Fatalf("scripts lookup: %v", err)
	}
	if scriptsRun != nil {
		t.Fatalf("stale scripts run survived hook regeneration: %+v", scriptsRun)
	}
	anglesRun, err := fx.repo.GetByCampaignAndStage(context.Background(), nil, fx.campaignID, string(pipeline.StageAngles))
	if err != nil || anglesRun == nil {
		t.Fatalf("angles run lost during regeneration: run=%v err=%v", anglesRun, err)
	}
}

func TestGenerateHooksRunsBackToBack(t *testing.T) {
	fx := newGenerationFixture(t, hooksResponse("Take one"), hooksResponse("Take two"))
	fx.repo.runs = append(fx.repo.runs,
		stageRunFor(t, fx.campaignID, string(pipeline.StageAngles), seededAngles()),
	)

	if err := fx.service.GenerateHooks(context.Background(), fx.campaignID, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := fx.service.GenerateHooks(context.Background(), fx.campaignID, nil); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(fx.llm.requests) != 2 {
		t.Fatalf("llm requests: got=%d want=2", len(fx.llm.requests))
	}
	run, err := fx.repo.GetByCampaignAndStage(context.Background(), nil, fx.campaignID, string(pipeline.StageHooks))
	if err != nil || run == nil {
		t.Fatalf("hooks run after second pass: run=%v err=%v", run, err)
	}
	if !strings.Contains(string(run.Payload), "Take two") {
		t.Fatalf("second run did not win: %s", run.Payload)
	}
}

func TestGenerateScriptsReplacesPriorScripts(t *testing.T) {
	fx := newGenerationFixture(t, completion.Result{
		Text:         `{"scripts": [{"script_id": "angle_1_1_1", "content": "fresh script", "cta": "order now", "target_emotion": "relief"}]}`,
		InputTokens:  10,
		OutputTokens: 20,
	})
	fx.repo.runs = append(fx.repo.runs,
		stageRunFor(t, fx.campaignID, string(pipeline.StageAngles), seededAngles()),
		stageRunFor(t, fx.campaignID, string(pipeline.StageHooks), seededHooks()),
		stageRunFor(t, fx.campaignID, string(pipeline.StageScripts), pipeline.ScriptSet{
			Scripts: []pipeline.ScriptRecord{{ScriptID: "angle_1_1_1", Content: "old script", CTA: "buy"}},
		}),
	)

	if err := fx.service.GenerateScripts(context.Background(), fx.campaignID, nil); err != nil {
		t.Fatalf("regenerate scripts: %v", err)
	}
	run, err := fx.repo.GetByCampaignAndStage(context.Background(), nil, fx.campaignID, string(pipeline.StageScripts))
	if err != nil || run == nil {
		t.Fatalf("scripts run after regenerate: run=%v err=%v", run, err)
	}
	if !strings.Contains(string(run.Payload), "fresh script") {
		t.Fatalf("scripts payload not replaced: %s", run.Payload)
	}
}
