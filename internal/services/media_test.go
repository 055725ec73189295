package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/completion"
	"github.com/adforge/adforge-backend/internal/clients/elevenlabs"
	"github.com/adforge/adforge-backend/internal/clients/hedra"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/types"
)

type fakeCampaignService struct {
	campaign *types.Campaign
	product  pipeline.ProductDescription
}

func (f *fakeCampaignService) CreateCampaign(context.Context, string, pipeline.ProductDescription) (*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignService) GetCampaign(_ context.Context, campaignID uuid.UUID) (*types.Campaign, error) {
	if f.campaign == nil || f.campaign.ID != campaignID {
		return nil, fmt.Errorf("campaign not found")
	}
	return f.campaign, nil
}

func (f *fakeCampaignService) ListCampaigns(context.Context) ([]*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignService) DeleteCampaign(context.Context, uuid.UUID) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeCampaignService) AttachProductDocument(context.Context, uuid.UUID, string, []byte) (*types.Campaign, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCampaignService) ProductOf(*types.Campaign) (pipeline.ProductDescription, error) {
	return f.product, nil
}

type fakeGenerationService struct {
	trees []pipeline.AngleTree
}

func (f *fakeGenerationService) RunAnalysis(context.Context, uuid.UUID, []completion.Attachment) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeGenerationService) GenerateHooks(context.Context, uuid.UUID, []string) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeGenerationService) GenerateScripts(context.Context, uuid.UUID, []string) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeGenerationService) GetStageResults(context.Context, uuid.UUID) ([]*types.StageRun, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeGenerationService) GetAngleTrees(context.Context, uuid.UUID) ([]pipeline.AngleTree, error) {
	return f.trees, nil
}

type fakeTTS struct {
	mu       sync.Mutex
	failText string
	calls    []string
}

func (f *fakeTTS) Synthesize(_ context.Context, req elevenlabs.SynthesizeRequest) (elevenlabs.SynthesizeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Text)
	f.mu.Unlock()
	if f.failText != "" && req.Text == f.failText {
		return elevenlabs.SynthesizeResult{}, fmt.Errorf("voice model unavailable")
	}
	return elevenlabs.SynthesizeResult{Audio: []byte("mp3:" + req.Text), ContentType: "audio/mpeg"}, nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	videoURL string
	next     int
}

func (f *fakeRenderer) CreateRender(_ context.Context, req hedra.RenderRequest) (string, error) {
	if req.AudioURL == "" {
		return "", fmt.Errorf("audio url required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("job-%d", f.next), nil
}

func (f *fakeRenderer) PollRender(_ context.Context, jobID string) (hedra.RenderStatus, error) {
	return hedra.RenderStatus{JobID: jobID, State: hedra.RenderStateComplete, VideoURL: f.videoURL}, nil
}

func (f *fakeRenderer) WaitForRender(ctx context.Context, jobID string) (hedra.RenderStatus, error) {
	return f.PollRender(ctx, jobID)
}

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}}
}

func (b *memBucket) Upload(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[key] = data
	b.mu.Unlock()
	return nil
}

func (b *memBucket) Download(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

func (b *memBucket) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.test/presigned/" + key, nil
}

func (b *memBucket) PublicURL(key string) string {
	return "https://bucket.test/" + key
}

type fakeAssetRepo struct {
	mu     sync.Mutex
	assets map[uuid.UUID]*types.VideoAsset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: map[uuid.UUID]*types.VideoAsset{}}
}

func (f *fakeAssetRepo) Create(_ context.Context, _ *gorm.DB, asset *types.VideoAsset) (*types.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	stored := *asset
	f.assets[asset.ID] = &stored
	return asset, nil
}

func (f *fakeAssetRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return nil, nil
	}
	copied := *asset
	return &copied, nil
}

func (f *fakeAssetRepo) ListByCampaignID(_ context.Context, _ *gorm.DB, campaignID uuid.UUID) ([]*types.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.VideoAsset
	for _, asset := range f.assets {
		if asset.CampaignID == campaignID {
			copied := *asset
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAssetRepo) GetByCampaignAndScript(_ context.Context, _ *gorm.DB, campaignID uuid.UUID, scriptID string) (*types.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.CampaignID == campaignID && asset.ScriptID == scriptID {
			copied := *asset
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAssetRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return fmt.Errorf("asset %s not found", id)
	}
	for key, value := range updates {
		switch key {
		case "status":
			asset.Status = value.(string)
		case "audio_bucket_key":
			asset.AudioBucketKey = value.(string)
		case "video_bucket_key":
			asset.VideoBucketKey = value.(string)
		case "render_job_id":
			asset.RenderJobID = value.(string)
		case "error":
			asset.Error = value.(string)
		}
	}
	return nil
}

type mediaFixture struct {
	service   *mediaService
	campaign  *types.Campaign
	tts       *fakeTTS
	bucket    *memBucket
	assetRepo *fakeAssetRepo
	videoSrv  *httptest.Server
}

func newMediaFixture(t *testing.T, trees []pipeline.AngleTree) *mediaFixture {
	t.Helper()
	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("rendered-bytes"))
	}))
	t.Cleanup(videoSrv.Close)

	campaign := &types.Campaign{ID: uuid.New(), Name: "launch", Status: types.CampaignStatusComplete}
	tts := &fakeTTS{}
	store := newMemBucket()
	assetRepo := newFakeAssetRepo()
	svc := NewMediaService(
		nil,
		logger.NewNop(),
		&fakeCampaignService{campaign: campaign},
		&fakeGenerationService{trees: trees},
		tts,
		&fakeRenderer{videoURL: videoSrv.URL + "/render.mp4"},
		store,
		assetRepo,
		nil,
		nil,
	).(*mediaService)
	return &mediaFixture{
		service:   svc,
		campaign:  campaign,
		tts:       tts,
		bucket:    store,
		assetRepo: assetRepo,
		videoSrv:  videoSrv,
	}
}

func mediaTrees() []pipeline.AngleTree {
	return []pipeline.AngleTree{
		{
			AngleID:     "angle_1",
			AngleNumber: 1,
			Hooks: []pipeline.HookGroup{
				{HookID: "angle_1_1", Scripts: []pipeline.ScriptRecord{
					{ScriptID: "angle_1_1_1", Content: "Tired every morning?", AngleID: "angle_1", HookID: "angle_1_1"},
					{ScriptID: "angle_1_1_2", Content: "Your sleep deserves better.", AngleID: "angle_1", HookID: "angle_1_1"},
				}},
			},
		},
	}
}

func TestProduceVideosFullChain(t *testing.T) {
	fx := newMediaFixture(t, mediaTrees())

	assets, err := fx.service.ProduceVideos(context.Background(), fx.campaign.ID, nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(assets))
	}
	for _, asset := range assets {
		if asset.Status != types.VideoAssetStatusReady {
			t.Fatalf("asset %s status=%q, want ready (error=%q)", asset.ScriptID, asset.Status, asset.Error)
		}
		wantAudio := fmt.Sprintf("campaigns/%s/audio/%s.mp3", fx.campaign.ID, asset.ScriptID)
		wantVideo := fmt.Sprintf("campaigns/%s/video/%s.mp4", fx.campaign.ID, asset.ScriptID)
		if asset.AudioBucketKey != wantAudio {
			t.Fatalf("audio key got=%q want=%q", asset.AudioBucketKey, wantAudio)
		}
		if asset.VideoBucketKey != wantVideo {
			t.Fatalf("video key got=%q want=%q", asset.VideoBucketKey, wantVideo)
		}
		video, err := fx.bucket.Download(context.Background(), wantVideo)
		if err != nil {
			t.Fatalf("video not staged: %v", err)
		}
		if !bytes.Equal(video, []byte("rendered-bytes")) {
			t.Fatalf("staged video got=%q", video)
		}
		if asset.RenderJobID == "" {
			t.Fatalf("render job id not recorded")
		}
	}
}

func TestProduceVideosIsolatesFailures(t *testing.T) {
	fx := newMediaFixture(t, mediaTrees())
	fx.tts.failText = "Tired every morning?"

	assets, err := fx.service.ProduceVideos(context.Background(), fx.campaign.ID, nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	byScript := map[string]*types.VideoAsset{}
	for _, asset := range assets {
		byScript[asset.ScriptID] = asset
	}
	failed := byScript["angle_1_1_1"]
	if failed == nil || failed.Status != types.VideoAssetStatusFailed {
		t.Fatalf("expected angle_1_1_1 to fail, got %+v", failed)
	}
	if !strings.Contains(failed.Error, "voice model unavailable") {
		t.Fatalf("failure cause not recorded: %q", failed.Error)
	}
	ok := byScript["angle_1_1_2"]
	if ok == nil || ok.Status != types.VideoAssetStatusReady {
		t.Fatalf("sibling script should still render, got %+v", ok)
	}
}

func TestProduceVideosRespectsSelection(t *testing.T) {
	fx := newMediaFixture(t, mediaTrees())

	assets, err := fx.service.ProduceVideos(context.Background(), fx.campaign.ID, []string{"angle_1_1_2"})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if len(assets) != 1 || assets[0].ScriptID != "angle_1_1_2" {
		t.Fatalf("selection not honored: %+v", assets)
	}
	if got := len(fx.tts.calls); got != 1 {
		t.Fatalf("synthesized %d scripts, want 1", got)
	}

	if _, err := fx.service.ProduceVideos(context.Background(), fx.campaign.ID, []string{"angle_9_9_9"}); err == nil {
		t.Fatalf("unknown selection should error")
	}
}

func TestAssetDownloadURL(t *testing.T) {
	fx := newMediaFixture(t, mediaTrees())

	assets, err := fx.service.ProduceVideos(context.Background(), fx.campaign.ID, []string{"angle_1_1_1"})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	url, err := fx.service.AssetDownloadURL(context.Background(), assets[0].ID)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	want := "https://bucket.test/presigned/" + assets[0].VideoBucketKey
	if url != want {
		t.Fatalf("got=%q want=%q", url, want)
	}

	pending, err := fx.assetRepo.Create(context.Background(), nil, &types.VideoAsset{
		CampaignID: fx.campaign.ID,
		ScriptID:   "angle_1_1_9",
		Status:     types.VideoAssetStatusPending,
	})
	if err != nil {
		t.Fatalf("seed pending asset: %v", err)
	}
	if _, err := fx.service.AssetDownloadURL(context.Background(), pending.ID); err == nil {
		t.Fatalf("pending asset should have no download url")
	}
}
