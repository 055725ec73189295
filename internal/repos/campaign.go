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

type CampaignRepo interface {
	Create(ctx context.Context, tx *gorm.DB, campaign *types.Campaign) (*types.Campaign, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Campaign, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Campaign, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type campaignRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCampaignRepo(db *gorm.DB, baseLog *logger.Logger) CampaignRepo {
	repoLog := baseLog.With("repo", "CampaignRepo")
	return &campaignRepo{db: db, log: repoLog}
}

func (r *campaignRepo) Create(ctx context.Context, tx *gorm.DB, campaign *types.Campaign) (*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *campaignRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var campaign types.Campaign
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var campaigns []*types.Campaign
	if userID == uuid.Nil {
		return campaigns, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Campaign{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *campaignRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Campaign{}).Error
}
