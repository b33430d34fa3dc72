package cmd

import (
	"github.com/spf13/cobra"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/pkg/runner"
	"lecture2obs/repository"
	"lecture2obs/service"
)

func status(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show whether a recording is currently active",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := interactiveContext()
			repo, err := repository.NewRepo(cfg.DBFile())
			if err != nil {
				return err
			}

			controller := service.NewControllerService(repo, cfg, runner.NewDetachedRunner(cfg.LogFile()))
			result, err := controller.Status(ctx)
			if err != nil {
				return err
			}

			switch result.State {
			case constant.SessionStateIdle:
				cmd.Println("No active recording.")
			case constant.SessionStateProcessing:
				cmd.Printf("Processing %s\n", result.Course)
				cmd.Printf("  Title: %s\n", result.Title)
			default:
				total := int(result.Elapsed.Seconds())
				cmd.Printf("Recording %s, %dm %02ds elapsed\n", result.Course, total/60, total%60)
				cmd.Printf("  Title: %s\n", result.Title)
				cmd.Printf("  PID:   %d\n", result.Pid)
			}
			return nil
		},
	}
}
