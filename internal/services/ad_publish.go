package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/bucket"
	"github.com/adforge/adforge-backend/internal/clients/facebook"
	redisclient "github.com/adforge/adforge-backend/internal/clients/redis"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/normalization"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/requestdata"
	"github.com/adforge/adforge-backend/internal/sse"
	"github.com/adforge/adforge-backend/internal/types"
	"github.com/adforge/adforge-backend/internal/utils"
)

const platformFacebook = "facebook"

// AdPublishService manages connected ad accounts and pushes finished video
// assets to them. Platform tokens are sealed before they touch the database
// and unsealed only for the duration of a publish call.
type AdPublishService interface {
	ConnectAccount(ctx context.Context, req ConnectAccountRequest) (*types.AdAccount, error)
	ListAccounts(ctx context.Context) ([]*types.AdAccount, error)
	DisconnectAccount(ctx context.Context, accountID uuid.UUID) error
	PublishAd(ctx context.Context, req PublishAdRequest) (*PublishAdResult, error)
}

type ConnectAccountRequest struct {
	Platform    string `json:"platform"`
	ExternalID  string `json:"external_id"`
	PageID      string `json:"page_id"`
	AccessToken string `json:"access_token"`
}

type PublishAdRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	AssetID   uuid.UUID `json:"asset_id"`
	AdSetID   string    `json:"ad_set_id"`
	Message   string    `json:"message"`
	LinkURL   string    `json:"link_url"`
	CTA       string    `json:"cta"`
	Name      string    `json:"name"`
	Paused    bool      `json:"paused"`
}

type PublishAdResult struct {
	VideoID    string `json:"video_id"`
	CreativeID string `json:"creative_id"`
	AdID       string `json:"ad_id"`
}

type adPublishService struct {
	db        *gorm.DB
	log       *logger.Logger
	fb        facebook.Client
	store     bucket.Service
	sealer    *utils.TokenSealer
	accounts  repos.AdAccountRepo
	assets    repos.VideoAssetRepo
	campaigns CampaignService
	hub       *sse.SSEHub
	bus       redisclient.SSEBus
}

func NewAdPublishService(
	db *gorm.DB,
	log *logger.Logger,
	fb facebook.Client,
	store bucket.Service,
	sealer *utils.TokenSealer,
	accounts repos.AdAccountRepo,
	assets repos.VideoAssetRepo,
	campaigns CampaignService,
	hub *sse.SSEHub,
	bus redisclient.SSEBus,
) AdPublishService {
	serviceLog := log.With("service", "AdPublishService")
	return &adPublishService{
		db:        db,
		log:       serviceLog,
		fb:        fb,
		store:     store,
		sealer:    sealer,
		accounts:  accounts,
		assets:    assets,
		campaigns: campaigns,
		hub:       hub,
		bus:       bus,
	}
}

func (ps *adPublishService) ConnectAccount(ctx context.Context, req ConnectAccountRequest) (*types.AdAccount, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	platform := normalization.ParseInputString(req.Platform)
	if platform == "" {
		platform = platformFacebook
	}
	if platform != platformFacebook {
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
	externalID := normalization.ParseInputString(req.ExternalID)
	token := normalization.ParseInputString(req.AccessToken)
	if externalID == "" || token == "" {
		return nil, fmt.Errorf("external_id and access_token required")
	}

	sealed, err := ps.sealer.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	account := &types.AdAccount{
		UserID:      rd.UserID,
		Platform:    platform,
		ExternalID:  externalID,
		PageID:      normalization.ParseInputString(req.PageID),
		SealedToken: sealed,
	}
	if _, err := ps.accounts.Create(ctx, nil, account); err != nil {
		return nil, fmt.Errorf("store ad account: %w", err)
	}
	ps.log.Info("Ad account connected", "account_id", account.ID, "platform", platform)
	return account, nil
}

func (ps *adPublishService) ListAccounts(ctx context.Context) ([]*types.AdAccount, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	return ps.accounts.ListByUserID(ctx, nil, rd.UserID)
}

func (ps *adPublishService) DisconnectAccount(ctx context.Context, accountID uuid.UUID) error {
	account, err := ps.ownedAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return ps.accounts.Delete(ctx, nil, account.ID)
}

func (ps *adPublishService) PublishAd(ctx context.Context, req PublishAdRequest) (*PublishAdResult, error) {
	account, err := ps.ownedAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.AdSetID == "" {
		return nil, fmt.Errorf("ad_set_id required")
	}
	asset, err := ps.assets.GetByID(ctx, nil, req.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset not found")
	}
	if _, err := ps.campaigns.GetCampaign(ctx, asset.CampaignID); err != nil {
		return nil, err
	}
	if asset.Status != types.VideoAssetStatusReady || asset.VideoBucketKey == "" {
		return nil, fmt.Errorf("asset %s is not ready for publishing", asset.ID)
	}

	token, err := ps.sealer.Open(account.SealedToken)
	if err != nil {
		return nil, fmt.Errorf("unseal access token: %w", err)
	}

	video, err := ps.store.Download(ctx, asset.VideoBucketKey)
	if err != nil {
		return nil, fmt.Errorf("load rendered video: %w", err)
	}

	name := req.Name
	if name == "" {
		name = asset.ScriptID
	}
	videoID, err := ps.fb.UploadVideo(ctx, token, account.ExternalID, video, name)
	if err != nil {
		return nil, fmt.Errorf("upload ad video: %w", err)
	}
	creativeID, err := ps.fb.CreateCreative(ctx, token, facebook.CreativeRequest{
		AdAccountID:  account.ExternalID,
		PageID:       account.PageID,
		VideoID:      videoID,
		Message:      req.Message,
		CallToAction: req.CTA,
		LinkURL:      req.LinkURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create ad creative: %w", err)
	}
	adID, err := ps.fb.CreateAd(ctx, token, facebook.AdRequest{
		AdAccountID: account.ExternalID,
		AdSetID:     req.AdSetID,
		CreativeID:  creativeID,
		Name:        name,
		Paused:      req.Paused,
	})
	if err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}

	if err := ps.assets.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
		"facebook_video_id":    videoID,
		"facebook_creative_id": creativeID,
		"facebook_ad_id":       adID,
	}); err != nil {
		ps.log.Warn("Failed to record published ad ids", "asset_id", asset.ID, "error", err)
	}

	ps.log.Info("Ad published", "ad_id", adID, "asset_id", asset.ID, "account_id", account.ID)
	msg := sse.SSEMessage{
		Channel: sse.CampaignChannel(asset.CampaignID),
		Event:   sse.SSEEventAdPublished,
		Data:    map[string]any{"ad_id": adID, "asset_id": asset.ID},
	}
	if ps.bus != nil {
		if err := ps.bus.Publish(ctx, msg); err != nil {
			ps.log.Warn("Failed to publish SSE event to redis, broadcasting locally", "error", err)
			ps.hub.Broadcast(msg)
		}
	} else if ps.hub != nil {
		ps.hub.Broadcast(msg)
	}

	return &PublishAdResult{VideoID: videoID, CreativeID: creativeID, AdID: adID}, nil
}

func (ps *adPublishService) ownedAccount(ctx context.Context, accountID uuid.UUID) (*types.AdAccount, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	account, err := ps.accounts.GetByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.UserID != rd.UserID {
		return nil, fmt.Errorf("ad account not found")
	}
	return account, nil
}
