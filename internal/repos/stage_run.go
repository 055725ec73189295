package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/types"
)

type StageRunRepo interface {
	// UpsertByCampaignAndStage inserts or replaces the single run a campaign
	// holds per stage. Re-running a stage overwrites its previous result.
	UpsertByCampaignAndStage(ctx context.Context, tx *gorm.DB, run *types.StageRun) (*types.StageRun, error)
	GetByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) ([]*types.StageRun, error)
	GetByCampaignAndStage(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, stage string) (*types.StageRun, error)
	DeleteByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) error
	DeleteByCampaignAndStage(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, stage string) error
}

type stageRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRunRepo(db *gorm.DB, baseLog *logger.Logger) StageRunRepo {
	repoLog := baseLog.With("repo", "StageRunRepo")
	return &stageRunRepo{db: db, log: repoLog}
}

func (r *stageRunRepo) UpsertByCampaignAndStage(ctx context.Context, tx *gorm.DB, run *types.StageRun) (*types.StageRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_id"}, {Name: "stage"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "payload", "input_tokens", "output_tokens", "truncated", "error", "updated_at",
			}),
		}).
		Create(run).Error
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *stageRunRepo) GetByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) ([]*types.StageRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var runs []*types.StageRun
	if campaignID == uuid.Nil {
		return runs, nil
	}
	if err := transaction.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *stageRunRepo) GetByCampaignAndStage(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, stage string) (*types.StageRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if campaignID == uuid.Nil || stage == "" {
		return nil, nil
	}
	var run types.StageRun
	err := transaction.WithContext(ctx).
		Where("campaign_id = ? AND stage = ?", campaignID, stage).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *stageRunRepo) DeleteByCampaignID(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if campaignID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Delete(&types.StageRun{}).Error
}

func (r *stageRunRepo) DeleteByCampaignAndStage(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, stage string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if campaignID == uuid.Nil || stage == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("campaign_id = ? AND stage = ?", campaignID, stage).
		Delete(&types.StageRun{}).Error
}
