package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Campaign statuses.
const (
	CampaignStatusDraft      = "draft"
	CampaignStatusAnalyzing  = "analyzing"
	CampaignStatusAnalyzed   = "analyzed"
	CampaignStatusGenerating = "generating"
	CampaignStatusComplete   = "complete"
	CampaignStatusFailed     = "failed"
)

type Campaign struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Name    string         `gorm:"column:name;not null" json:"name"`
	Status  string         `gorm:"column:status;not null;index" json:"status"`
	Product datatypes.JSON `gorm:"type:jsonb;column:product" json:"product"`
	// Optional product document staged in the bucket, attached to the
	// avatar analysis call when present.
	DocumentBucketKey string         `gorm:"column:document_bucket_key" json:"document_bucket_key,omitempty"`
	DocumentMediaType string         `gorm:"column:document_media_type" json:"document_media_type,omitempty"`
	Error             string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Campaign) TableName() string { return "campaign" }
