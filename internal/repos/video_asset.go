package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/types"
)

type VideoAssetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, asset *types.VideoAsset) (*types.VideoAsset, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.VideoAsset, error)
	ListByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) ([]*types.VideoAsset, error)
	GetByCampaignAndScript(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, scriptID string) (*types.VideoAsset, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type videoAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoAssetRepo(db *gorm.DB, baseLog *logger.Logger) VideoAssetRepo {
	repoLog := baseLog.With("repo", "VideoAssetRepo")
	return &videoAssetRepo{db: db, log: repoLog}
}

func (r *videoAssetRepo) Create(ctx context.Context, tx *gorm.DB, asset *types.VideoAsset) (*types.VideoAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (r *videoAssetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.VideoAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var asset types.VideoAsset
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *videoAssetRepo) ListByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) ([]*types.VideoAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var assets []*types.VideoAsset
	if campaignID == uuid.Nil {
		return assets, nil
	}
	if err := transaction.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *videoAssetRepo) GetByCampaignAndScript(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, scriptID string) (*types.VideoAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if campaignID == uuid.Nil || scriptID == "" {
		return nil, nil
	}
	var asset types.VideoAsset
	err := transaction.WithContext(ctx).
		Where("campaign_id = ? AND script_id = ?", campaignID, scriptID).
		Order("created_at DESC").
		Limit(1).
		Find(&asset).Error
	if err != nil {
		return nil, err
	}
	if asset.ID == uuid.Nil {
		return nil, nil
	}
	return &asset, nil
}

func (r *videoAssetRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.VideoAsset{}).
		Where("id = ?", id).
		Updates(updates).Error
}
