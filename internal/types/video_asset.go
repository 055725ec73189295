package types

import (
	"time"

	"github.com/google/uuid"
)

// VideoAsset statuses.
const (
	VideoAssetStatusPending    = "pending"
	VideoAssetStatusAudioReady = "audio_ready"
	VideoAssetStatusRendering  = "rendering"
	VideoAssetStatusReady      = "ready"
	VideoAssetStatusFailed     = "failed"
)

// VideoAsset tracks one script's media production: voiceover synthesis, then
// avatar video rendering, both staged in the object store.
type VideoAsset struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID     uuid.UUID `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Campaign       *Campaign `gorm:"constraint:OnDelete:CASCADE;foreignKey:CampaignID;references:ID" json:"-"`
	ScriptID       string    `gorm:"column:script_id;not null;index" json:"script_id"`
	Status         string    `gorm:"column:status;not null;index" json:"status"`
	AudioBucketKey string    `gorm:"column:audio_bucket_key" json:"audio_bucket_key"`
	VideoBucketKey string    `gorm:"column:video_bucket_key" json:"video_bucket_key"`
	RenderJobID    string    `gorm:"column:render_job_id" json:"render_job_id"`
	DurationSec    float64   `gorm:"column:duration_sec" json:"duration_sec"`
	// External ids recorded once the asset is published as an ad.
	FacebookVideoID    string `gorm:"column:facebook_video_id" json:"facebook_video_id,omitempty"`
	FacebookCreativeID string `gorm:"column:facebook_creative_id" json:"facebook_creative_id,omitempty"`
	FacebookAdID       string `gorm:"column:facebook_ad_id" json:"facebook_ad_id,omitempty"`
	Error          string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VideoAsset) TableName() string { return "video_asset" }
