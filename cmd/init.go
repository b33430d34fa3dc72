package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"lecture2obs/config"
)

const starterConfig = `vault:
  path: "~/Documents/ObsidianVault"
  inbox_folder: "1 - Inbox"
  source_folder: "2 - Source Materials/Lectures"

summarization:
  model: "gpt-4o-mini"
  max_section_length: 500

note_template:
  status: "#review"
  tag_style: "wikilink"   # wikilink or hashtag

transcription:
  backend: "local"        # local or api
  local_model: "base.en"

# recording:
#   archive_dir: "~/Recordings/Lectures"
#   s3:
#     endpoint: "minio.local:9000"
#     access_key: ""
#     secret_key: ""
#     bucket: "lecture-audio"

# Uncomment and edit to enable schedule-based course detection:
# schedule:
#   Monday:
#     - time: "09:00-10:15"
#       course: "CS 301"
#       title_prefix: "Data Structures"
# default_course: "Lecture"
`

func initConfig(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "write a starter config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := os.Getwd()
			if err != nil {
				return err
			}
			configPath := filepath.Join(path, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config.yaml already exists at %s", configPath)
			}
			if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
				return err
			}
			cmd.Printf("Config written to %s\n", configPath)
			cmd.Println("\nNext steps:")
			cmd.Println("  1. Set your OpenAI API key: export OPENAI_API_KEY=sk-...")
			cmd.Println("  2. Toggle a recording:      lecture2obs toggle")
			cmd.Println("  3. Check status:            lecture2obs status")
			return nil
		},
	}
}
