package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/adforge/adforge-backend/internal/clients/redis"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/types"
)

// ContextStore materializes a campaign's pipeline context. Redis holds the
// hot copy; on a miss the context is rebuilt from the campaign's persisted
// stage runs, so losing the cache only costs a rebuild.
type ContextStore interface {
	Load(ctx context.Context, campaign *types.Campaign, product pipeline.ProductDescription) (*pipeline.Context, error)
	Save(ctx context.Context, campaignID uuid.UUID, pctx *pipeline.Context) error
	Invalidate(ctx context.Context, campaignID uuid.UUID) error
}

type contextStore struct {
	log          *logger.Logger
	cache        redisclient.Cache
	stageRunRepo repos.StageRunRepo
	ttl          time.Duration
}

func NewContextStore(log *logger.Logger, cache redisclient.Cache, stageRunRepo repos.StageRunRepo) ContextStore {
	return &contextStore{
		log:          log.With("service", "ContextStore"),
		cache:        cache,
		stageRunRepo: stageRunRepo,
		ttl:          24 * time.Hour,
	}
}

func contextCacheKey(campaignID uuid.UUID) string {
	return "pipeline_ctx:" + campaignID.String()
}

func (s *contextStore) Load(ctx context.Context, campaign *types.Campaign, product pipeline.ProductDescription) (*pipeline.Context, error) {
	if campaign == nil {
		return nil, fmt.Errorf("campaign required")
	}

	if s.cache != nil {
		var cached pipeline.Context
		hit, err := s.cache.GetJSON(ctx, contextCacheKey(campaign.ID), &cached)
		if err != nil {
			s.log.Warn("Context cache read failed, rebuilding from postgres", "campaign_id", campaign.ID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	pctx, err := s.rebuild(ctx, campaign, product)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, campaign.ID, pctx); err != nil {
		s.log.Warn("Failed to warm context cache", "campaign_id", campaign.ID, "error", err)
	}
	return pctx, nil
}

// rebuild replays succeeded stage runs in pipeline order.
func (s *contextStore) rebuild(ctx context.Context, campaign *types.Campaign, product pipeline.ProductDescription) (*pipeline.Context, error) {
	runs, err := s.stageRunRepo.GetByCampaignID(ctx, nil, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("load stage runs: %w", err)
	}
	byStage := make(map[pipeline.Stage]*types.StageRun, len(runs))
	for _, run := range runs {
		if run.Status == types.StageRunStatusSucceeded {
			byStage[pipeline.Stage(run.Stage)] = run
		}
	}

	pctx := pipeline.NewContext(product)
	ordered := append(append([]pipeline.Stage{}, pipeline.CoreStages...), pipeline.ContinuationStages...)
	for _, stage := range ordered {
		run, ok := byStage[stage]
		if !ok {
			continue
		}
		result, err := pipeline.DecodeStageResult(stage, json.RawMessage(run.Payload))
		if err != nil {
			return nil, fmt.Errorf("decode %s stage run: %w", stage, err)
		}
		if err := pctx.Append(result); err != nil {
			return nil, err
		}
	}
	return pctx, nil
}

func (s *contextStore) Save(ctx context.Context, campaignID uuid.UUID, pctx *pipeline.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.SetJSON(ctx, contextCacheKey(campaignID), pctx, s.ttl)
}

func (s *contextStore) Invalidate(ctx context.Context, campaignID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, contextCacheKey(campaignID))
}
