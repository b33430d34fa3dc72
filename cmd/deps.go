package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/pkg/archive"
	"lecture2obs/pkg/notify"
	"lecture2obs/pkg/summarize"
	"lecture2obs/pkg/transcribe"
	"lecture2obs/repository"
	"lecture2obs/service"
)

var errMissingAPIKey = errors.New("OPENAI_API_KEY is not set; add it to your environment or a .env file")

func requireAPIKey() (string, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return "", errMissingAPIKey
	}
	return key, nil
}

func requireConfig(cfg *config.Config) error {
	if !cfg.Found {
		return fmt.Errorf("%w: config.yaml not found, run `lecture2obs init` to create it", config.ErrConfiguration)
	}
	return nil
}

// newPipeline wires the post-capture pipeline. archiveCapture is false for
// batch reprocessing, where the caller's input file must stay in place.
func newPipeline(cfg *config.Config, repo repository.SessionRepository, archiveCapture bool) (service.PipelineService, error) {
	apiKey, err := requireAPIKey()
	if err != nil {
		return nil, err
	}

	var backend transcribe.Backend
	if cfg.Transcription.Backend == constant.BackendAPI {
		backend = transcribe.NewAPIBackend(apiKey)
	} else {
		backend = transcribe.NewLocalBackend(cfg.Transcription.LocalModel)
	}
	engine := transcribe.NewEngine(backend, cfg.Recording.FFmpegCommand)

	summarizer := summarize.New(apiKey, cfg.Summarization.Model)
	writer := service.NewNoteWriter(cfg.Vault, cfg.NoteTemplate)

	var archiver service.AudioArchiver = archive.Keep{}
	if archiveCapture {
		archiver, err = archive.New(cfg.Recording)
		if err != nil {
			return nil, err
		}
	}

	return service.NewPipelineService(repo, engine, summarizer, writer, archiver, notify.NewDesktop()), nil
}

// interactiveContext logs human-readable output to stderr.
func interactiveContext() context.Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

// pipelineContext also appends structured JSON to the diagnostic log so
// failed runs stay diagnosable after the terminal is gone.
func pipelineContext(cfg *config.Config) (context.Context, func(), error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, nil, err
	}
	logFile, err := os.OpenFile(cfg.LogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, logFile)
	logger := zerolog.New(writer).With().Timestamp().Logger()
	return logger.WithContext(context.Background()), func() { logFile.Close() }, nil
}
