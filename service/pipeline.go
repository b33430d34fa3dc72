package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"lecture2obs/constant"
	"lecture2obs/dto"
	"lecture2obs/entities"
	"lecture2obs/pkg/notify"
	"lecture2obs/repository"
)

// Transcriber produces the full transcript for one audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// NoteSummarizer converts a transcript into a structured note body.
type NoteSummarizer interface {
	Summarize(ctx context.Context, transcript, title, course string) (string, error)
}

// AudioArchiver disposes of the raw capture after success.
type AudioArchiver interface {
	Store(ctx context.Context, audioPath string) error
}

// PipelineService runs the post-capture pipeline for one session:
// transcribe, summarize, write the note pair, archive the capture, notify.
// Any stage failure marks the session FAILED and leaves the raw audio at
// its recorded path for manual reprocessing; nothing is retried.
type PipelineService interface {
	Process(ctx context.Context, sessionId uuid.UUID) error
}

type pipelineService struct {
	repo        repository.SessionRepository
	transcriber Transcriber
	summarizer  NoteSummarizer
	writer      NoteWriter
	archiver    AudioArchiver
	notifier    notify.Notifier
}

func NewPipelineService(
	repo repository.SessionRepository,
	transcriber Transcriber,
	summarizer NoteSummarizer,
	writer NoteWriter,
	archiver AudioArchiver,
	notifier notify.Notifier,
) PipelineService {
	return &pipelineService{
		repo:        repo,
		transcriber: transcriber,
		summarizer:  summarizer,
		writer:      writer,
		archiver:    archiver,
		notifier:    notifier,
	}
}

func (s *pipelineService) Process(ctx context.Context, sessionId uuid.UUID) (err error) {
	session, err := s.repo.FindSessionById(ctx, sessionId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session_id", sessionId.String()).Msg("failed to find session")
		return err
	}

	log := zerolog.Ctx(ctx).With().
		Str("session_id", session.ID.String()).
		Str("course", session.Course).
		Str("title", session.Title).
		Logger()
	ctx = log.WithContext(ctx)

	var stage constant.PipelineStage

	defer func() {
		if err == nil {
			return
		}
		detail := fmt.Sprintf("%s: %v", stage, err)
		log.Error().Err(err).Str("stage", string(stage)).Str("audio", session.AudioPath).
			Msg("pipeline failed, capture preserved for manual reprocessing")
		s.appendRun(ctx, session.ID, stage, false, err.Error())
		if markErr := s.repo.MarkFailed(ctx, session.ID, detail); markErr != nil {
			log.Error().Err(markErr).Msg("failed to mark session failed")
		}
		s.notifier.Failure(ctx, fmt.Sprintf("%s pipeline failed, audio kept at %s", session.Course, session.AudioPath))
	}()

	if session.State != constant.SessionStateProcessing {
		if err = s.repo.MarkProcessing(ctx, session.ID, session.AudioPath); err != nil {
			stage = constant.PipelineStageCapture
			return err
		}
	}

	stage = constant.PipelineStageTranscribe
	log.Info().Str("audio", session.AudioPath).Msg("transcribing capture")
	transcript, err := s.transcriber.Transcribe(ctx, session.AudioPath)
	if err != nil {
		return err
	}
	s.appendRun(ctx, session.ID, stage, true, "")

	stage = constant.PipelineStageSummarize
	log.Info().Msg("summarizing transcript")
	summary, err := s.summarizer.Summarize(ctx, transcript, session.Title, session.Course)
	if err != nil {
		return err
	}
	s.appendRun(ctx, session.ID, stage, true, "")

	stage = constant.PipelineStageWrite
	log.Info().Msg("writing notes to vault")
	summaryPath, transcriptPath, err := s.writer.WriteNotes(ctx, summary, transcript, dto.NoteMetadata{
		Title:  session.Title,
		Course: session.Course,
		Date:   session.NoteDate,
	})
	if err != nil {
		return err
	}
	s.appendRun(ctx, session.ID, stage, true, summaryPath)
	log.Info().Str("summary", summaryPath).Str("transcript", transcriptPath).Msg("notes written")

	stage = constant.PipelineStageArchive
	if err = s.archiver.Store(ctx, session.AudioPath); err != nil {
		return err
	}
	s.appendRun(ctx, session.ID, stage, true, "")

	stage = constant.PipelineStageNotify
	s.notifier.Success(ctx, fmt.Sprintf("%s notes ready in Inbox", session.Course))
	s.appendRun(ctx, session.ID, stage, true, "")

	if err = s.repo.ClearCompleted(ctx, session.ID); err != nil {
		log.Error().Err(err).Msg("failed to clear completed session")
		return err
	}

	log.Info().Msg("pipeline completed")
	return nil
}

func (s *pipelineService) appendRun(ctx context.Context, sessionId uuid.UUID, stage constant.PipelineStage, ok bool, detail string) {
	run := &entities.PipelineRun{SessionID: sessionId, Stage: stage, OK: ok, Detail: detail}
	if err := s.repo.AppendRun(ctx, run); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("stage", string(stage)).Msg("failed to append pipeline run record")
	}
}
