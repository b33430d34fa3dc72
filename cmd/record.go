package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"lecture2obs/config"
	"lecture2obs/pkg/notify"
	"lecture2obs/pkg/recorder"
	"lecture2obs/repository"
)

// record is the hidden detached process spawned by toggle. It captures
// audio until SIGTERM, then runs the full pipeline. Its stdout/stderr are
// redirected to the diagnostic log by the parent.
func record(cfg *config.Config) *cobra.Command {
	var sessionIdStr string

	cmd := &cobra.Command{
		Use:    "record",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			ctx := logger.WithContext(cmd.Context())

			sessionId, err := uuid.Parse(sessionIdStr)
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}

			repo, err := repository.NewRepo(cfg.DBFile())
			if err != nil {
				return err
			}
			session, err := repo.FindSessionById(ctx, sessionId)
			if err != nil {
				return err
			}

			notifier := notify.NewDesktop()

			logger.Info().
				Str("session_id", session.ID.String()).
				Str("course", session.Course).
				Str("title", session.Title).
				Msg("starting recorder")

			rec := recorder.New(recorder.Options{
				Command:     cfg.Recording.FFmpegCommand,
				InputFormat: cfg.Recording.InputFormat,
				InputDevice: cfg.Recording.InputDevice,
			})
			capture, err := rec.Start(ctx, session.AudioPath)
			if err != nil {
				logger.Error().Err(err).Msg("failed to start recorder")
				notifier.Failure(ctx, fmt.Sprintf("Mic error: %v", err))
				if clearErr := repo.ClearStale(ctx, session.ID); clearErr != nil {
					logger.Error().Err(clearErr).Msg("failed to clear session")
				}
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
			logger.Info().Msg("recording, waiting for stop signal")
			<-stop
			logger.Info().Msg("stop signal received, finalizing capture")

			wavPath, err := capture.Stop()
			if err != nil {
				logger.Error().Err(err).Msg("failed to finalize capture")
				notifier.Failure(ctx, fmt.Sprintf("Recording failed: %v", err))
				if markErr := repo.MarkFailed(ctx, session.ID, err.Error()); markErr != nil {
					logger.Error().Err(markErr).Msg("failed to mark session failed")
				}
				return err
			}
			logger.Info().Str("audio", wavPath).Msg("capture saved")

			if err := repo.MarkProcessing(ctx, session.ID, wavPath); err != nil {
				logger.Error().Err(err).Msg("failed to mark session processing")
				return err
			}

			pipeline, err := newPipeline(cfg, repo, true)
			if err != nil {
				logger.Error().Err(err).Msg("failed to build pipeline")
				notifier.Failure(ctx, fmt.Sprintf("Pipeline failed, audio kept at %s", wavPath))
				if markErr := repo.MarkFailed(ctx, session.ID, err.Error()); markErr != nil {
					logger.Error().Err(markErr).Msg("failed to mark session failed")
				}
				return err
			}

			return pipeline.Process(ctx, session.ID)
		},
	}

	cmd.Flags().StringVar(&sessionIdStr, "session-id", "", "session to record")
	_ = cmd.MarkFlagRequired("session-id")
	return cmd
}
