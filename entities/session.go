package entities

import (
	"time"

	"github.com/google/uuid"
	"lecture2obs/constant"
)

// Session is one recording-to-note lifecycle instance. At most one row may
// have Active set; finished rows keep Active NULL so the unique index only
// guards live sessions.
type Session struct {
	ID            uuid.UUID             `json:"id" gorm:"type:uuid;primary_key"`
	State         constant.SessionState `json:"state" gorm:"type:varchar(20);not null;index:idx_sessions_state"`
	Active        *bool                 `json:"-" gorm:"uniqueIndex:uniq_active_session"`
	Pid           int                   `json:"pid"`
	Course        string                `json:"course" gorm:"type:varchar(255)"`
	Title         string                `json:"title" gorm:"type:varchar(255)"`
	NoteDate      string                `json:"note_date" gorm:"type:varchar(10)"`
	AudioPath     string                `json:"audio_path" gorm:"type:varchar(500)"`
	FailureDetail string                `json:"failure_detail" gorm:"type:text"`
	StartedAt     time.Time             `json:"started_at" gorm:"not null"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}
