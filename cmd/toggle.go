package cmd

import (
	"github.com/spf13/cobra"
	"lecture2obs/config"
	"lecture2obs/dto"
	"lecture2obs/pkg/runner"
	"lecture2obs/repository"
	"lecture2obs/service"
)

func toggle(cfg *config.Config) *cobra.Command {
	var course, title, noteDate string

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "start or stop a live lecture recording",
		Long: "First call starts recording in the background.\n" +
			"Second call stops recording and runs transcription, summarization and note writing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(cfg); err != nil {
				return err
			}

			ctx := interactiveContext()
			repo, err := repository.NewRepo(cfg.DBFile())
			if err != nil {
				return err
			}

			controller := service.NewControllerService(repo, cfg, runner.NewDetachedRunner(cfg.LogFile()))
			result, err := controller.Toggle(ctx, course, title, noteDate)
			if err != nil {
				return err
			}

			switch result.Action {
			case dto.ToggleActionStarted:
				cmd.Printf("Recording started for %s (PID %d)\n", result.Course, result.Pid)
				cmd.Printf("  Title: %s\n", result.Title)
				cmd.Printf("  Log:   %s\n", cfg.LogFile())
			case dto.ToggleActionStopped:
				cmd.Printf("Stopping recording for %s (PID %d)...\n", result.Course, result.Pid)
				cmd.Println("Transcription and summarization running in background.")
				cmd.Printf("Check %s for progress. You'll get a notification when done.\n", cfg.LogFile())
			case dto.ToggleActionStaleCleared:
				cmd.Println("Recording process not found, cleared stale state.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "course code/name (overrides schedule detection)")
	cmd.Flags().StringVar(&title, "title", "", "note title (overrides schedule detection)")
	cmd.Flags().StringVar(&noteDate, "date", "", "date in YYYY-MM-DD format (defaults to today)")
	return cmd
}
