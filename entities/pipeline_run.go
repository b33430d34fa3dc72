package entities

import (
	"time"

	"github.com/google/uuid"
	"lecture2obs/constant"
)

// PipelineRun is an append-only record of one pipeline stage transition,
// kept for post-hoc recovery of failed sessions.
type PipelineRun struct {
	ID        uuid.UUID              `json:"id" gorm:"type:uuid;primary_key"`
	SessionID uuid.UUID              `json:"session_id" gorm:"type:uuid;not null;index:idx_pipeline_runs_session"`
	Stage     constant.PipelineStage `json:"stage" gorm:"type:varchar(20);not null"`
	OK        bool                   `json:"ok"`
	Detail    string                 `json:"detail" gorm:"type:text"`
	CreatedAt time.Time              `json:"created_at"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
