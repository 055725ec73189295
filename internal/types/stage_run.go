package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StageRun statuses.
const (
	StageRunStatusRunning   = "running"
	StageRunStatusSucceeded = "succeeded"
	StageRunStatusFailed    = "failed"
)

// StageRun is one completed or failed pipeline stage for a campaign. The
// Payload column holds the stage's typed result as JSON; together with the
// campaign's product it is enough to rebuild the pipeline context.
type StageRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_stage_run_campaign_stage,unique" json:"campaign_id"`
	Campaign     *Campaign      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CampaignID;references:ID" json:"-"`
	Stage        string         `gorm:"column:stage;not null;index:idx_stage_run_campaign_stage,unique" json:"stage"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Payload      datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	InputTokens  int            `gorm:"column:input_tokens;not null;default:0" json:"input_tokens"`
	OutputTokens int            `gorm:"column:output_tokens;not null;default:0" json:"output_tokens"`
	Truncated    bool           `gorm:"column:truncated;not null;default:false" json:"truncated"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (StageRun) TableName() string { return "stage_run" }
