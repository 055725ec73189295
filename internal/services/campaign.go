package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/clients/bucket"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/normalization"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/repos"
	"github.com/adforge/adforge-backend/internal/requestdata"
	"github.com/adforge/adforge-backend/internal/types"
)

type CampaignService interface {
	CreateCampaign(ctx context.Context, name string, product pipeline.ProductDescription) (*types.Campaign, error)
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (*types.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*types.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error

	// AttachProductDocument stages a product one-pager in the bucket so the
	// avatar analysis can read it alongside the structured description.
	AttachProductDocument(ctx context.Context, campaignID uuid.UUID, mediaType string, data []byte) (*types.Campaign, error)

	// ProductOf decodes a campaign's stored product description.
	ProductOf(campaign *types.Campaign) (pipeline.ProductDescription, error)
}

type campaignService struct {
	db           *gorm.DB
	log          *logger.Logger
	campaignRepo repos.CampaignRepo
	stageRunRepo repos.StageRunRepo
	store        bucket.Service
}

func NewCampaignService(db *gorm.DB, log *logger.Logger, campaignRepo repos.CampaignRepo, stageRunRepo repos.StageRunRepo, store bucket.Service) CampaignService {
	serviceLog := log.With("service", "CampaignService")
	return &campaignService{
		db:           db,
		log:          serviceLog,
		campaignRepo: campaignRepo,
		stageRunRepo: stageRunRepo,
		store:        store,
	}
}

func (cs *campaignService) CreateCampaign(ctx context.Context, name string, product pipeline.ProductDescription) (*types.Campaign, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	name = normalization.ParseInputString(name)
	if name == "" {
		return nil, fmt.Errorf("campaign name required")
	}
	if normalization.ParseInputString(product.Description) == "" {
		return nil, fmt.Errorf("product description required")
	}

	rawProduct, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("encode product description: %w", err)
	}

	campaign := &types.Campaign{
		UserID:  rd.UserID,
		Name:    name,
		Status:  types.CampaignStatusDraft,
		Product: datatypes.JSON(rawProduct),
	}
	if _, err := cs.campaignRepo.Create(ctx, nil, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	cs.log.Info("Campaign created", "campaign_id", campaign.ID, "user_id", rd.UserID)
	return campaign, nil
}

func (cs *campaignService) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*types.Campaign, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	campaign, err := cs.campaignRepo.GetByID(ctx, nil, campaignID)
	if err != nil {
		return nil, fmt.Errorf("fetch campaign: %w", err)
	}
	if campaign == nil || campaign.UserID != rd.UserID {
		return nil, fmt.Errorf("campaign not found")
	}
	return campaign, nil
}

func (cs *campaignService) ListCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	return cs.campaignRepo.ListByUserID(ctx, nil, rd.UserID)
}

func (cs *campaignService) DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := cs.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.stageRunRepo.DeleteByCampaignID(ctx, tx, campaign.ID); err != nil {
			return fmt.Errorf("delete stage runs: %w", err)
		}
		return cs.campaignRepo.Delete(ctx, tx, campaign.ID)
	})
}

func (cs *campaignService) AttachProductDocument(ctx context.Context, campaignID uuid.UUID, mediaType string, data []byte) (*types.Campaign, error) {
	campaign, err := cs.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	ext := "pdf"
	if strings.HasPrefix(mediaType, "image/") {
		ext = strings.TrimPrefix(mediaType, "image/")
	} else if mediaType != "application/pdf" {
		return nil, fmt.Errorf("unsupported document type %q", mediaType)
	}
	key := fmt.Sprintf("campaigns/%s/docs/product.%s", campaign.ID, ext)
	if err := cs.store.Upload(ctx, key, mediaType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("stage product document: %w", err)
	}
	if err := cs.campaignRepo.UpdateFields(ctx, nil, campaign.ID, map[string]interface{}{
		"document_bucket_key": key,
		"document_media_type": mediaType,
	}); err != nil {
		return nil, fmt.Errorf("record product document: %w", err)
	}
	campaign.DocumentBucketKey = key
	campaign.DocumentMediaType = mediaType
	cs.log.Info("Product document attached", "campaign_id", campaign.ID, "key", key)
	return campaign, nil
}

func (cs *campaignService) ProductOf(campaign *types.Campaign) (pipeline.ProductDescription, error) {
	var product pipeline.ProductDescription
	if campaign == nil || len(campaign.Product) == 0 {
		return product, fmt.Errorf("campaign has no product description")
	}
	if err := json.Unmarshal(campaign.Product, &product); err != nil {
		return product, fmt.Errorf("decode product description: %w", err)
	}
	return product, nil
}
