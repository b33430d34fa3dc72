package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/entities"
	"lecture2obs/repository"
)

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

// process runs the pipeline on an existing audio file. This is also the
// recovery path for FAILED sessions: point it at the preserved capture.
func process(cfg *config.Config) *cobra.Command {
	var title, course, noteDate string

	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "transcribe an audio file and write structured notes to the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(cfg); err != nil {
				return err
			}

			audioPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("file not found: %s", audioPath)
			}
			ext := strings.ToLower(filepath.Ext(audioPath))
			if !supportedExtensions[ext] {
				return fmt.Errorf("unsupported file type %q, supported: .flac .m4a .mp3 .ogg .wav .webm", ext)
			}

			ctx, closeLog, err := pipelineContext(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			repo, err := repository.NewRepo(cfg.DBFile())
			if err != nil {
				return err
			}

			resolvedTitle := title
			if resolvedTitle == "" {
				resolvedTitle = strings.TrimSuffix(filepath.Base(audioPath), ext)
			}
			resolvedDate := noteDate
			if resolvedDate == "" {
				resolvedDate = time.Now().Format("2006-01-02")
			}

			// A fresh session, independent of any earlier failed one.
			session := &entities.Session{
				ID:        uuid.New(),
				State:     constant.SessionStateProcessing,
				Course:    course,
				Title:     resolvedTitle,
				NoteDate:  resolvedDate,
				AudioPath: audioPath,
				StartedAt: time.Now(),
			}
			if err := repo.CreateActive(ctx, session); err != nil {
				return err
			}

			pipeline, err := newPipeline(cfg, repo, false)
			if err != nil {
				_ = repo.ClearStale(ctx, session.ID)
				return err
			}

			cmd.Printf("Processing %s...\n", filepath.Base(audioPath))
			if err := pipeline.Process(ctx, session.ID); err != nil {
				return err
			}
			cmd.Println("Done. Notes written to the vault inbox.")
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "note title (defaults to filename stem)")
	cmd.Flags().StringVar(&course, "course", "", "course code/name added as a tag")
	cmd.Flags().StringVar(&noteDate, "date", "", "date in YYYY-MM-DD format (defaults to today)")
	return cmd
}
