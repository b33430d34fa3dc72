package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lecture2obs/constant"
	"lecture2obs/entities"
)

// ErrSessionActive is returned by CreateActive when another session already
// holds the active slot. It is the check half of the check-and-set that
// keeps at most one capture running process-wide.
var ErrSessionActive = errors.New("a recording session is already active")

type SessionRepository interface {
	CreateActive(ctx context.Context, session *entities.Session) error
	ActiveSession(ctx context.Context) (*entities.Session, error)
	FindSessionById(ctx context.Context, id uuid.UUID) (*entities.Session, error)
	UpdatePid(ctx context.Context, id uuid.UUID, pid int) error
	MarkProcessing(ctx context.Context, id uuid.UUID, audioPath string) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	ClearCompleted(ctx context.Context, id uuid.UUID) error
	ClearStale(ctx context.Context, id uuid.UUID) error
	FailedSessions(ctx context.Context) ([]*entities.Session, error)
	AppendRun(ctx context.Context, run *entities.PipelineRun) error
	RunsBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entities.PipelineRun, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(dbPath string) (SessionRepository, error) {
	// First run: the state directory does not exist yet, and SQLite will
	// not create parent directories.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := gormDB.AutoMigrate(&entities.Session{}, &entities.PipelineRun{}); err != nil {
		return nil, err
	}
	return &repo{db: gormDB}, nil
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

// CreateActive inserts a new session holding the single active slot. The
// unique index on sessions.active turns a lost race into ErrSessionActive
// instead of a second overlapping capture.
func (r *repo) CreateActive(ctx context.Context, session *entities.Session) error {
	active := true
	session.Active = &active
	if session.State == "" {
		session.State = constant.SessionStateRecording
	}
	err := r.db.WithContext(ctx).Create(session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrSessionActive
		}
		return err
	}
	return nil
}

// ActiveSession returns the session holding the active slot, or nil when
// the system is idle.
func (r *repo) ActiveSession(ctx context.Context) (*entities.Session, error) {
	session := &entities.Session{}
	err := r.db.WithContext(ctx).First(session, "active = ?", true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (r *repo) FindSessionById(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	session := &entities.Session{}
	err := r.db.WithContext(ctx).First(session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repo) UpdatePid(ctx context.Context, id uuid.UUID, pid int) error {
	return r.db.WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Update("pid", pid).Error
}

func (r *repo) MarkProcessing(ctx context.Context, id uuid.UUID, audioPath string) error {
	return r.db.WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":      constant.SessionStateProcessing,
		"audio_path": audioPath,
	}).Error
}

// MarkFailed releases the active slot but retains the row, so the audio
// path and failure detail stay recoverable.
func (r *repo) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	return r.db.WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":          constant.SessionStateFailed,
		"active":         nil,
		"failure_detail": detail,
	}).Error
}

// ClearCompleted deletes the session record. Stage history stays in
// pipeline_runs.
func (r *repo) ClearCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entities.Session{}, "id = ?", id).Error
}

// ClearStale removes a session whose recorder process is gone.
func (r *repo) ClearStale(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entities.Session{}, "id = ?", id).Error
}

func (r *repo) FailedSessions(ctx context.Context) ([]*entities.Session, error) {
	var sessions []*entities.Session
	err := r.db.WithContext(ctx).
		Where("state = ?", constant.SessionStateFailed).
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) AppendRun(ctx context.Context, run *entities.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repo) RunsBySessionId(ctx context.Context, sessionId uuid.UUID) ([]*entities.PipelineRun, error) {
	var runs []*entities.PipelineRun
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at ASC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
