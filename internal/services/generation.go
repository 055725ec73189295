package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/bucket"
	"github.com/adforge/adforge-backend/internal/clients/completion"
	redisclient "github.com/adforge/adforge-backend/internal/clients/redis"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/sse"
	"github.com/adforge/adforge-backend/internal/types"
)

// GenerationService drives the content pipeline for a campaign: the core
// analysis run, then hook and script generation against selected angles.
type GenerationService interface {
	RunAnalysis(ctx context.Context, campaignID uuid.UUID, attachments []completion.Attachment) error
	GenerateHooks(ctx context.Context, campaignID uuid.UUID, angleIDs []string) error
	GenerateScripts(ctx context.Context, campaignID uuid.UUID, hookIDs []string) error

	GetStageResults(ctx context.Context, campaignID uuid.UUID) ([]*types.StageRun, error)
	GetAngleTrees(ctx context.Context, campaignID uuid.UUID) ([]pipeline.AngleTree, error)
}

type generationService struct {
	db           *gorm.DB
	log          *logger.Logger
	runner       *pipeline.Runner
	campaigns    CampaignService
	contextStore ContextStore
	stageRunRepo repos.StageRunRepo
	campaignRepo repos.CampaignRepo
	store        bucket.Service
	hub          *sse.SSEHub
	bus          redisclient.SSEBus
}

func NewGenerationService(
	db *gorm.DB,
	log *logger.Logger,
	runner *pipeline.Runner,
	campaigns CampaignService,
	contextStore ContextStore,
	stageRunRepo repos.StageRunRepo,
	campaignRepo repos.CampaignRepo,
	store bucket.Service,
	hub *sse.SSEHub,
	bus redisclient.SSEBus,
) GenerationService {
	serviceLog := log.With("service", "GenerationService")
	return &generationService{
		db:           db,
		log:          serviceLog,
		runner:       runner,
		campaigns:    campaigns,
		contextStore: contextStore,
		stageRunRepo: stageRunRepo,
		campaignRepo: campaignRepo,
		store:        store,
		hub:          hub,
		bus:          bus,
	}
}

func (gs *generationService) RunAnalysis(ctx context.Context, campaignID uuid.UUID, attachments []completion.Attachment) error {
	campaign, pctx, err := gs.loadCampaignContext(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := gs.setStatus(ctx, campaign.ID, types.CampaignStatusAnalyzing, ""); err != nil {
		return err
	}

	if doc := gs.stagedDocument(ctx, campaign); doc != nil {
		attachments = append(attachments, *doc)
	}
	if err := gs.runner.RunCore(ctx, pctx, attachments, gs.stageHook(campaign.ID, pctx)); err != nil {
		gs.failCampaign(ctx, campaign.ID, err)
		return err
	}
	if err := gs.setStatus(ctx, campaign.ID, types.CampaignStatusAnalyzed, ""); err != nil {
		return err
	}
	gs.emit(ctx, sse.SSEMessage{
		Channel: sse.CampaignChannel(campaign.ID),
		Event:   sse.SSEEventAnalysisComplete,
		Data:    map[string]any{"campaign_id": campaign.ID},
	})
	return nil
}

func (gs *generationService) GenerateHooks(ctx context.Context, campaignID uuid.UUID, angleIDs []string) error {
	campaign, pctx, err := gs.loadCampaignContext(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := gs.setStatus(ctx, campaign.ID, types.CampaignStatusGenerating, ""); err != nil {
		return err
	}
	if err := gs.resetContinuation(ctx, campaign.ID, pctx, pipeline.StageHooks); err != nil {
		return err
	}
	if err := gs.runner.RunHooks(ctx, pctx, angleIDs, gs.stageHook(campaign.ID, pctx)); err != nil {
		gs.failCampaign(ctx, campaign.ID, err)
		return err
	}
	return nil
}

func (gs *generationService) GenerateScripts(ctx context.Context, campaignID uuid.UUID, hookIDs []string) error {
	campaign, pctx, err := gs.loadCampaignContext(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := gs.resetContinuation(ctx, campaign.ID, pctx, pipeline.StageScripts); err != nil {
		return err
	}
	if err := gs.runner.RunScripts(ctx, pctx, hookIDs, gs.stageHook(campaign.ID, pctx)); err != nil {
		gs.failCampaign(ctx, campaign.ID, err)
		return err
	}
	if err := gs.setStatus(ctx, campaign.ID, types.CampaignStatusComplete, ""); err != nil {
		return err
	}
	gs.emit(ctx, sse.SSEMessage{
		Channel: sse.CampaignChannel(campaign.ID),
		Event:   sse.SSEEventScriptsComplete,
		Data:    map[string]any{"campaign_id": campaign.ID},
	})
	return nil
}

func (gs *generationService) GetStageResults(ctx context.Context, campaignID uuid.UUID) ([]*types.StageRun, error) {
	campaign, err := gs.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return gs.stageRunRepo.GetByCampaignID(ctx, nil, campaign.ID)
}

func (gs *generationService) GetAngleTrees(ctx context.Context, campaignID uuid.UUID) ([]pipeline.AngleTree, error) {
	_, pctx, err := gs.loadCampaignContext(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	scripts, ok := pctx.Scripts()
	if !ok {
		return nil, fmt.Errorf("scripts have not been generated yet")
	}
	return pipeline.Restructure(scripts.Scripts, gs.log), nil
}

// resetContinuation clears stage and everything after it so re-selecting
// angles or hooks regenerates instead of colliding with the prior run. The
// persisted runs for the dropped stages are removed and the cached context
// invalidated before the new run starts.
func (gs *generationService) resetContinuation(ctx context.Context, campaignID uuid.UUID, pctx *pipeline.Context, stage pipeline.Stage) error {
	if _, present := pctx.Result(stage); !present {
		return nil
	}
	dropped := false
	for _, s := range pipeline.ContinuationStages {
		if s == stage {
			dropped = true
		}
		if !dropped {
			continue
		}
		if _, ok := pctx.Result(s); !ok {
			continue
		}
		if err := gs.stageRunRepo.DeleteByCampaignAndStage(ctx, nil, campaignID, string(s)); err != nil {
			return fmt.Errorf("clear %s stage run: %w", s, err)
		}
	}
	pctx.DropFrom(stage)
	if err := gs.contextStore.Invalidate(ctx, campaignID); err != nil {
		gs.log.Warn("Failed to invalidate context cache", "campaign_id", campaignID, "error", err)
	}
	return nil
}

// stagedDocument loads the campaign's attached product document, if any.
// A missing or unreadable document degrades to a warning since the
// structured description alone is enough to run the analysis.
func (gs *generationService) stagedDocument(ctx context.Context, campaign *types.Campaign) *completion.Attachment {
	if campaign.DocumentBucketKey == "" || gs.store == nil {
		return nil
	}
	data, err := gs.store.Download(ctx, campaign.DocumentBucketKey)
	if err != nil {
		gs.log.Warn("Could not load product document, analyzing without it", "campaign_id", campaign.ID, "key", campaign.DocumentBucketKey, "error", err)
		return nil
	}
	kind := completion.AttachmentKindPDF
	if strings.HasPrefix(campaign.DocumentMediaType, "image/") {
		kind = completion.AttachmentKindImage
	}
	return &completion.Attachment{
		Kind:      kind,
		MediaType: campaign.DocumentMediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}
}

func (gs *generationService) loadCampaignContext(ctx context.Context, campaignID uuid.UUID) (*types.Campaign, *pipeline.Context, error) {
	campaign, err := gs.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	product, err := gs.campaigns.ProductOf(campaign)
	if err != nil {
		return nil, nil, err
	}
	pctx, err := gs.contextStore.Load(ctx, campaign, product)
	if err != nil {
		return nil, nil, err
	}
	return campaign, pctx, nil
}

// stageHook persists each completed stage and pushes a progress event. The
// hook must not fail the pipeline: persistence errors are logged, the model
// output itself is already safe in the in-memory context.
func (gs *generationService) stageHook(campaignID uuid.UUID, pctx *pipeline.Context) pipeline.StageHook {
	return func(ctx context.Context, stage pipeline.Stage, result pipeline.StageResult, usage pipeline.Usage) {
		payload, err := json.Marshal(result)
		if err != nil {
			gs.log.Error("Failed to encode stage result", "stage", stage, "error", err)
			return
		}
		_, err = gs.stageRunRepo.UpsertByCampaignAndStage(ctx, nil, &types.StageRun{
			CampaignID:   campaignID,
			Stage:        string(stage),
			Status:       types.StageRunStatusSucceeded,
			Payload:      datatypes.JSON(payload),
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			Truncated:    usage.Truncated,
		})
		if err != nil {
			gs.log.Error("Failed to persist stage run", "stage", stage, "campaign_id", campaignID, "error", err)
		}
		if err := gs.contextStore.Save(ctx, campaignID, pctx); err != nil {
			gs.log.Warn("Failed to update context cache", "campaign_id", campaignID, "error", err)
		}
		gs.emit(ctx, sse.SSEMessage{
			Channel: sse.CampaignChannel(campaignID),
			Event:   sse.SSEEventStageCompleted,
			Data: map[string]any{
				"campaign_id":   campaignID,
				"stage":         stage,
				"input_tokens":  usage.InputTokens,
				"output_tokens": usage.OutputTokens,
			},
		})
	}
}

func (gs *generationService) setStatus(ctx context.Context, campaignID uuid.UUID, status, errMsg string) error {
	return gs.campaignRepo.UpdateFields(ctx, nil, campaignID, map[string]interface{}{
		"status": status,
		"error":  errMsg,
	})
}

func (gs *generationService) failCampaign(ctx context.Context, campaignID uuid.UUID, cause error) {
	if err := gs.setStatus(ctx, campaignID, types.CampaignStatusFailed, cause.Error()); err != nil {
		gs.log.Error("Failed to mark campaign failed", "campaign_id", campaignID, "error", err)
	}
	var stage pipeline.Stage
	var stageErr *pipeline.StageError
	if errors.As(cause, &stageErr) {
		stage = stageErr.Stage
	}
	gs.emit(ctx, sse.SSEMessage{
		Channel: sse.CampaignChannel(campaignID),
		Event:   sse.SSEEventGenerationFailed,
		Data: map[string]any{
			"campaign_id": campaignID,
			"stage":       stage,
			"error":       cause.Error(),
		},
	})
}

// emit fans the event out through redis when configured, or straight into
// the local hub otherwise.
func (gs *generationService) emit(ctx context.Context, msg sse.SSEMessage) {
	if gs.bus != nil {
		if err := gs.bus.Publish(ctx, msg); err != nil {
			gs.log.Warn("Failed to publish SSE event to redis, broadcasting locally", "error", err)
			gs.hub.Broadcast(msg)
		}
		return
	}
	if gs.hub != nil {
		gs.hub.Broadcast(msg)
	}
}
