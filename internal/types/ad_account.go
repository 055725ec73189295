package types

import (
	"time"

	"github.com/google/uuid"
)

// AdAccount is a connected ad platform account. SealedToken is the platform
// access token encrypted at rest; it is never serialized.
type AdAccount struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Platform    string    `gorm:"column:platform;not null;index" json:"platform"`
	ExternalID  string    `gorm:"column:external_id;not null" json:"external_id"`
	PageID      string    `gorm:"column:page_id" json:"page_id"`
	SealedToken string    `gorm:"column:sealed_token;not null" json:"-"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AdAccount) TableName() string { return "ad_account" }
