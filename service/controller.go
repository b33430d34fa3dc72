package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/dto"
	"lecture2obs/entities"
	"lecture2obs/pkg/recorder"
	"lecture2obs/repository"
)

// ErrPipelineBusy means toggle was called while the previous session is
// still transcribing or summarizing. The call is rejected; the in-flight
// pipeline is never interrupted.
var ErrPipelineBusy = errors.New("previous session is still processing")

// ErrRecorderStarting means toggle caught a session whose recorder pid has
// not been persisted yet. There is nothing to signal; the caller retries.
var ErrRecorderStarting = errors.New("recorder is still starting, retry in a moment")

// startingGrace covers the window between session creation and the recorder
// pid landing in the store. A pid of zero inside this window is a recorder
// mid-startup, not a stale session.
const startingGrace = 10 * time.Second

type ControllerService interface {
	Toggle(ctx context.Context, course, title, noteDate string) (*dto.ToggleResult, error)
	Status(ctx context.Context) (*dto.StatusResult, error)
}

// ProcessRunner manages the detached recorder process so toggle returns as
// soon as the capture is dispatched.
type ProcessRunner interface {
	Spawn(session *entities.Session) (int, error)
	Signal(pid int) error
	Alive(pid int) bool
}

type controllerService struct {
	repo   repository.SessionRepository
	cfg    *config.Config
	runner ProcessRunner
	now    func() time.Time
}

func NewControllerService(repo repository.SessionRepository, cfg *config.Config, runner ProcessRunner) ControllerService {
	return &controllerService{
		repo:   repo,
		cfg:    cfg,
		runner: runner,
		now:    time.Now,
	}
}

// Toggle starts a new recording session when idle and stops the active one
// otherwise. The session record is the critical section: creation goes
// through the repository's check-and-set, so two racing toggles can never
// both start a capture.
func (s *controllerService) Toggle(ctx context.Context, course, title, noteDate string) (*dto.ToggleResult, error) {
	active, err := s.repo.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return s.stopActive(ctx, active)
	}

	resolvedDate := noteDate
	if resolvedDate == "" {
		resolvedDate = s.now().Format("2006-01-02")
	}
	resolvedCourse, resolvedTitle := s.resolveMetadata(course, title, resolvedDate)

	session := &entities.Session{
		ID:        uuid.New(),
		State:     constant.SessionStateRecording,
		Course:    resolvedCourse,
		Title:     resolvedTitle,
		NoteDate:  resolvedDate,
		StartedAt: s.now(),
	}
	session.AudioPath = filepath.Join(s.cfg.RecordingsDir(), session.ID.String()+".wav")

	if err := s.repo.CreateActive(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSessionActive) {
			// Lost the race to a concurrent toggle-on: stop that
			// session instead of starting a second capture.
			raced, lookupErr := s.repo.ActiveSession(ctx)
			if lookupErr != nil || raced == nil {
				return nil, err
			}
			return s.stopActive(ctx, raced)
		}
		return nil, err
	}

	pid, err := s.runner.Spawn(session)
	if err != nil {
		// No capture means no session: roll the record back before
		// surfacing the error.
		if clearErr := s.repo.ClearStale(ctx, session.ID); clearErr != nil {
			zerolog.Ctx(ctx).Error().Err(clearErr).Msg("failed to clear session after spawn failure")
		}
		return nil, fmt.Errorf("%w: %v", recorder.ErrCaptureUnavailable, err)
	}
	if err := s.repo.UpdatePid(ctx, session.ID, pid); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to record recorder pid")
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("course", resolvedCourse).
		Str("title", resolvedTitle).
		Int("pid", pid).
		Msg("recording started")

	return &dto.ToggleResult{
		Action:    dto.ToggleActionStarted,
		SessionID: session.ID,
		Course:    resolvedCourse,
		Title:     resolvedTitle,
		Pid:       pid,
	}, nil
}

func (s *controllerService) stopActive(ctx context.Context, active *entities.Session) (*dto.ToggleResult, error) {
	if active.State == constant.SessionStateProcessing {
		return nil, ErrPipelineBusy
	}

	if active.Pid == 0 {
		if s.now().Sub(active.StartedAt) <= startingGrace {
			return nil, ErrRecorderStarting
		}
		// The pid never arrived: the spawning toggle died between insert
		// and update. Nothing to signal, clear the record.
		zerolog.Ctx(ctx).Warn().
			Str("session_id", active.ID.String()).
			Msg("session has no recorder pid past the startup grace, clearing")
		if err := s.repo.ClearStale(ctx, active.ID); err != nil {
			return nil, err
		}
		return &dto.ToggleResult{
			Action:    dto.ToggleActionStaleCleared,
			SessionID: active.ID,
		}, nil
	}

	if !s.runner.Alive(active.Pid) {
		zerolog.Ctx(ctx).Warn().
			Str("session_id", active.ID.String()).
			Int("pid", active.Pid).
			Msg("recorder process not found, clearing stale session")
		if err := s.repo.ClearStale(ctx, active.ID); err != nil {
			return nil, err
		}
		return &dto.ToggleResult{
			Action:    dto.ToggleActionStaleCleared,
			SessionID: active.ID,
		}, nil
	}

	if err := s.runner.Signal(active.Pid); err != nil {
		return nil, fmt.Errorf("failed to stop recorder: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", active.ID.String()).
		Str("course", active.Course).
		Int("pid", active.Pid).
		Msg("recording stopping, pipeline continues in background")

	return &dto.ToggleResult{
		Action:    dto.ToggleActionStopped,
		SessionID: active.ID,
		Course:    active.Course,
		Title:     active.Title,
		Pid:       active.Pid,
	}, nil
}

// Status reads the persisted session without mutating it.
func (s *controllerService) Status(ctx context.Context) (*dto.StatusResult, error) {
	active, err := s.repo.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return &dto.StatusResult{State: constant.SessionStateIdle}, nil
	}
	starting := active.Pid == 0 && s.now().Sub(active.StartedAt) <= startingGrace
	if active.State == constant.SessionStateRecording && !starting && !s.runner.Alive(active.Pid) {
		// The recorder died without cleanup. Report idle; the next
		// toggle clears the stale record.
		return &dto.StatusResult{State: constant.SessionStateIdle}, nil
	}
	return &dto.StatusResult{
		State:   active.State,
		Course:  active.Course,
		Title:   active.Title,
		Pid:     active.Pid,
		Elapsed: s.now().Sub(active.StartedAt),
	}, nil
}

func (s *controllerService) resolveMetadata(course, title, date string) (string, string) {
	if course != "" && title != "" {
		return course, title
	}

	matchedCourse, matchedPrefix := MatchSchedule(s.cfg.Schedule, s.now(), s.cfg.DefaultCourse)
	if course == "" {
		course = matchedCourse
	}
	if title == "" {
		prefix := matchedPrefix
		if prefix == "" {
			prefix = "Lecture"
		}
		title = prefix + " " + date
	}
	return course, title
}
