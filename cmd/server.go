package cmd

import (
	"github.com/spf13/cobra"
	"lecture2obs/config"
	server2 "lecture2obs/server"
)

func server(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "serve local toggle/status control endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(cfg); err != nil {
				return err
			}
			server2.RunHttp(cfg)
			return nil
		},
	}
}
