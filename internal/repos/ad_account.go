package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/types"
)

type AdAccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, account *types.AdAccount) (*types.AdAccount, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AdAccount, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.AdAccount, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type adAccountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdAccountRepo(db *gorm.DB, baseLog *logger.Logger) AdAccountRepo {
	repoLog := baseLog.With("repo", "AdAccountRepo")
	return &adAccountRepo{db: db, log: repoLog}
}

func (r *adAccountRepo) Create(ctx context.Context, tx *gorm.DB, account *types.AdAccount) (*types.AdAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (r *adAccountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AdAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var account types.AdAccount
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *adAccountRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.AdAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var accounts []*types.AdAccount
	if userID == uuid.Nil {
		return accounts, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *adAccountRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.AdAccount{}).Error
}
