package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/bucket"
	"github.com/adforge/adforge-backend/internal/clients/elevenlabs"
	"github.com/adforge/adforge-backend/internal/clients/hedra"
	redisclient "github.com/adforge/adforge-backend/internal/clients/redis"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/sse"
	"github.com/adforge/adforge-backend/internal/types"
)

// MediaService turns generated scripts into finished ad videos: voiceover
// synthesis, avatar rendering, and staging of both artifacts in the bucket.
type MediaService interface {
	// ProduceVideos renders every selected script concurrently. A script's
	// failure marks its asset failed without aborting its siblings.
	ProduceVideos(ctx context.Context, campaignID uuid.UUID, scriptIDs []string) ([]*types.VideoAsset, error)
	ListAssets(ctx context.Context, campaignID uuid.UUID) ([]*types.VideoAsset, error)
	AssetDownloadURL(ctx context.Context, assetID uuid.UUID) (string, error)
}

type mediaService struct {
	db         *gorm.DB
	log        *logger.Logger
	campaigns  CampaignService
	generation GenerationService
	tts        elevenlabs.Client
	renderer   hedra.Client
	store      bucket.Service
	assetRepo  repos.VideoAssetRepo
	hub        *sse.SSEHub
	bus        redisclient.SSEBus

	maxConcurrent int
	httpClient    *http.Client
}

func NewMediaService(
	db *gorm.DB,
	log *logger.Logger,
	campaigns CampaignService,
	generation GenerationService,
	tts elevenlabs.Client,
	renderer hedra.Client,
	store bucket.Service,
	assetRepo repos.VideoAssetRepo,
	hub *sse.SSEHub,
	bus redisclient.SSEBus,
) MediaService {
	serviceLog := log.With("service", "MediaService")
	return &mediaService{
		db:            db,
		log:           serviceLog,
		campaigns:     campaigns,
		generation:    generation,
		tts:           tts,
		renderer:      renderer,
		store:         store,
		assetRepo:     assetRepo,
		hub:           hub,
		bus:           bus,
		maxConcurrent: 4,
		httpClient:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (ms *mediaService) ProduceVideos(ctx context.Context, campaignID uuid.UUID, scriptIDs []string) ([]*types.VideoAsset, error) {
	campaign, err := ms.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	scripts, err := ms.selectScripts(ctx, campaign.ID, scriptIDs)
	if err != nil {
		return nil, err
	}

	assets := make([]*types.VideoAsset, len(scripts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ms.maxConcurrent)
	for i, script := range scripts {
		g.Go(func() error {
			asset, err := ms.produceOne(gctx, campaign.ID, script)
			if err != nil {
				ms.log.Error("Video production failed", "campaign_id", campaign.ID, "script_id", script.ScriptID, "error", err)
			}
			assets[i] = asset
			return nil
		})
	}
	// workers report their own failures through asset status
	_ = g.Wait()

	out := assets[:0]
	for _, a := range assets {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (ms *mediaService) selectScripts(ctx context.Context, campaignID uuid.UUID, scriptIDs []string) ([]pipeline.ScriptRecord, error) {
	trees, err := ms.generation.GetAngleTrees(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(scriptIDs))
	for _, id := range scriptIDs {
		want[id] = true
	}
	var selected []pipeline.ScriptRecord
	for _, tree := range trees {
		for _, hg := range tree.Hooks {
			for _, script := range hg.Scripts {
				if len(want) == 0 || want[script.ScriptID] {
					selected = append(selected, script)
				}
			}
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no scripts matched the selection")
	}
	return selected, nil
}

// produceOne runs one script through the full media chain. The asset row is
// created first and its status advanced after each step, so a crash leaves a
// diagnosable trail.
func (ms *mediaService) produceOne(ctx context.Context, campaignID uuid.UUID, script pipeline.ScriptRecord) (*types.VideoAsset, error) {
	asset, err := ms.assetRepo.Create(ctx, nil, &types.VideoAsset{
		CampaignID: campaignID,
		ScriptID:   script.ScriptID,
		Status:     types.VideoAssetStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create video asset: %w", err)
	}

	fail := func(cause error) (*types.VideoAsset, error) {
		_ = ms.assetRepo.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
			"status": types.VideoAssetStatusFailed,
			"error":  cause.Error(),
		})
		asset.Status = types.VideoAssetStatusFailed
		asset.Error = cause.Error()
		ms.emit(ctx, sse.SSEMessage{
			Channel: sse.CampaignChannel(campaignID),
			Event:   sse.SSEEventVideoAssetFailed,
			Data:    map[string]any{"asset_id": asset.ID, "script_id": script.ScriptID, "error": cause.Error()},
		})
		return asset, cause
	}

	speech, err := ms.tts.Synthesize(ctx, elevenlabs.SynthesizeRequest{Text: script.Content})
	if err != nil {
		return fail(fmt.Errorf("synthesize voiceover: %w", err))
	}
	audioKey := fmt.Sprintf("campaigns/%s/audio/%s.mp3", campaignID, script.ScriptID)
	if err := ms.store.Upload(ctx, audioKey, speech.ContentType, bytes.NewReader(speech.Audio), int64(len(speech.Audio))); err != nil {
		return fail(fmt.Errorf("stage voiceover: %w", err))
	}
	if err := ms.assetRepo.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
		"status":           types.VideoAssetStatusAudioReady,
		"audio_bucket_key": audioKey,
	}); err != nil {
		return fail(err)
	}

	audioURL, err := ms.store.PresignedURL(ctx, audioKey, time.Hour)
	if err != nil {
		return fail(fmt.Errorf("presign voiceover: %w", err))
	}
	jobID, err := ms.renderer.CreateRender(ctx, hedra.RenderRequest{AudioURL: audioURL})
	if err != nil {
		return fail(fmt.Errorf("create render: %w", err))
	}
	if err := ms.assetRepo.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
		"status":        types.VideoAssetStatusRendering,
		"render_job_id": jobID,
	}); err != nil {
		return fail(err)
	}

	status, err := ms.renderer.WaitForRender(ctx, jobID)
	if err != nil {
		return fail(fmt.Errorf("wait for render: %w", err))
	}
	if status.State != hedra.RenderStateComplete {
		return fail(fmt.Errorf("render failed: %s", status.Error))
	}

	video, err := ms.fetch(ctx, status.VideoURL)
	if err != nil {
		return fail(fmt.Errorf("download rendered video: %w", err))
	}
	videoKey := fmt.Sprintf("campaigns/%s/video/%s.mp4", campaignID, script.ScriptID)
	if err := ms.store.Upload(ctx, videoKey, "video/mp4", bytes.NewReader(video), int64(len(video))); err != nil {
		return fail(fmt.Errorf("stage rendered video: %w", err))
	}
	if err := ms.assetRepo.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
		"status":           types.VideoAssetStatusReady,
		"video_bucket_key": videoKey,
	}); err != nil {
		return fail(err)
	}
	asset.Status = types.VideoAssetStatusReady
	asset.AudioBucketKey = audioKey
	asset.VideoBucketKey = videoKey
	asset.RenderJobID = jobID

	ms.log.Info("Video asset ready", "campaign_id", campaignID, "script_id", script.ScriptID, "asset_id", asset.ID)
	ms.emit(ctx, sse.SSEMessage{
		Channel: sse.CampaignChannel(campaignID),
		Event:   sse.SSEEventVideoAssetReady,
		Data:    map[string]any{"asset_id": asset.ID, "script_id": script.ScriptID},
	})
	return asset, nil
}

func (ms *mediaService) ListAssets(ctx context.Context, campaignID uuid.UUID) ([]*types.VideoAsset, error) {
	campaign, err := ms.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return ms.assetRepo.ListByCampaignID(ctx, nil, campaign.ID)
}

func (ms *mediaService) AssetDownloadURL(ctx context.Context, assetID uuid.UUID) (string, error) {
	asset, err := ms.assetRepo.GetByID(ctx, nil, assetID)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", fmt.Errorf("asset not found")
	}
	if _, err := ms.campaigns.GetCampaign(ctx, asset.CampaignID); err != nil {
		return "", err
	}
	if asset.VideoBucketKey == "" {
		return "", fmt.Errorf("asset has no rendered video")
	}
	return ms.store.PresignedURL(ctx, asset.VideoBucketKey, time.Hour)
}

func (ms *mediaService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := ms.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (ms *mediaService) emit(ctx context.Context, msg sse.SSEMessage) {
	if ms.bus != nil {
		if err := ms.bus.Publish(ctx, msg); err != nil {
			ms.log.Warn("Failed to publish SSE event to redis, broadcasting locally", "error", err)
			ms.hub.Broadcast(msg)
		}
		return
	}
	if ms.hub != nil {
		ms.hub.Broadcast(msg)
	}
}
