package cmd

import (
	"github.com/spf13/cobra"
	"lecture2obs/config"
)

func Root(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lecture2obs",
		Short: "turn lecture audio into Obsidian notes",
	}
	rootCmd.AddCommand(toggle(cfg))
	rootCmd.AddCommand(status(cfg))
	rootCmd.AddCommand(process(cfg))
	rootCmd.AddCommand(record(cfg))
	rootCmd.AddCommand(server(cfg))
	rootCmd.AddCommand(initConfig(cfg))
	return rootCmd
}
