package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"lecture2obs/constant"
)

var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Vault         Vault         `yaml:"vault"`
	Summarization Summarization `yaml:"summarization"`
	NoteTemplate  NoteTemplate  `yaml:"note_template"`
	Transcription Transcription `yaml:"transcription"`
	Recording     Recording     `yaml:"recording"`
	Server        Server        `yaml:"server"`

	Schedule      []ScheduleEntry `yaml:"schedule"`
	DefaultCourse string          `yaml:"default_course"`

	// StateDir holds the session database, the diagnostic log and
	// in-progress WAV captures.
	StateDir string `yaml:"-"`
	Found    bool   `yaml:"-"`
}

type Vault struct {
	Path         string `yaml:"path"`
	InboxFolder  string `yaml:"inbox_folder"`
	SourceFolder string `yaml:"source_folder"`
}

type Summarization struct {
	Model            string `yaml:"model"`
	MaxSectionLength int    `yaml:"max_section_length"`
}

type NoteTemplate struct {
	Status   string            `yaml:"status"`
	TagStyle constant.TagStyle `yaml:"tag_style"`
}

type Transcription struct {
	Backend    constant.Backend `yaml:"backend"`
	LocalModel string           `yaml:"local_model"`
}

type Recording struct {
	ArchiveDir    string     `yaml:"archive_dir"`
	FFmpegCommand string     `yaml:"ffmpeg_command"`
	InputFormat   string     `yaml:"input_format"`
	InputDevice   string     `yaml:"input_device"`
	S3            *S3Archive `yaml:"s3"`
}

type S3Archive struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

// Load reads config.yaml from path and resolves defaults. A missing file is
// not an error: the zero config is returned with Found=false so commands
// that do not need a vault (init, status) still work.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	cfg := defaults()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.Found = true

	if s := v.GetString("vault.path"); s != "" {
		cfg.Vault.Path = expandHome(s)
	}
	if s := v.GetString("vault.inbox_folder"); s != "" {
		cfg.Vault.InboxFolder = s
	}
	if s := v.GetString("vault.source_folder"); s != "" {
		cfg.Vault.SourceFolder = s
	}
	if s := v.GetString("summarization.model"); s != "" {
		cfg.Summarization.Model = s
	}
	if n := v.GetInt("summarization.max_section_length"); n > 0 {
		cfg.Summarization.MaxSectionLength = n
	}
	if s := v.GetString("note_template.status"); s != "" {
		cfg.NoteTemplate.Status = s
	}
	if s := v.GetString("note_template.tag_style"); s != "" {
		style := constant.TagStyle(s)
		if style != constant.TagStyleWikilink && style != constant.TagStyleHashtag {
			return nil, fmt.Errorf("%w: unknown tag_style %q", ErrConfiguration, s)
		}
		cfg.NoteTemplate.TagStyle = style
	}
	if s := v.GetString("transcription.backend"); s != "" {
		backend := constant.Backend(s)
		if backend != constant.BackendLocal && backend != constant.BackendAPI {
			return nil, fmt.Errorf("%w: unknown transcription backend %q", ErrConfiguration, s)
		}
		cfg.Transcription.Backend = backend
	}
	if s := v.GetString("transcription.local_model"); s != "" {
		cfg.Transcription.LocalModel = s
	}
	if s := v.GetString("recording.archive_dir"); s != "" {
		cfg.Recording.ArchiveDir = expandHome(s)
	}
	if s := v.GetString("recording.ffmpeg_command"); s != "" {
		cfg.Recording.FFmpegCommand = s
	}
	if s := v.GetString("recording.input_format"); s != "" {
		cfg.Recording.InputFormat = s
	}
	if s := v.GetString("recording.input_device"); s != "" {
		cfg.Recording.InputDevice = s
	}
	if v.IsSet("recording.s3") {
		cfg.Recording.S3 = &S3Archive{
			Endpoint:  v.GetString("recording.s3.endpoint"),
			AccessKey: v.GetString("recording.s3.access_key"),
			SecretKey: v.GetString("recording.s3.secret_key"),
			Bucket:    v.GetString("recording.s3.bucket"),
			UseSSL:    v.GetBool("recording.s3.use_ssl"),
		}
		if cfg.Recording.S3.Endpoint == "" || cfg.Recording.S3.Bucket == "" {
			return nil, fmt.Errorf("%w: recording.s3 requires endpoint and bucket", ErrConfiguration)
		}
	}
	if s := v.GetString("server.http_port"); s != "" {
		cfg.Server.HttpPort = s
	}
	if s := v.GetString("default_course"); s != "" {
		cfg.DefaultCourse = s
	}

	schedule, err := parseSchedule(v.Get("schedule"))
	if err != nil {
		return nil, err
	}
	cfg.Schedule = schedule

	return cfg, nil
}

func defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Vault: Vault{
			InboxFolder:  "1 - Inbox",
			SourceFolder: "2 - Source Materials/Lectures",
		},
		Summarization: Summarization{
			Model:            "gpt-4o-mini",
			MaxSectionLength: 500,
		},
		NoteTemplate: NoteTemplate{
			Status:   "#review",
			TagStyle: constant.TagStyleWikilink,
		},
		Transcription: Transcription{
			Backend:    constant.BackendLocal,
			LocalModel: "base.en",
		},
		Recording: Recording{
			FFmpegCommand: "ffmpeg",
		},
		Server: Server{
			HttpPort: "8765",
		},
		DefaultCourse: "Lecture",
		StateDir:      filepath.Join(home, ".lecture2obs"),
	}
}

// LogFile is the append-only diagnostic log for background pipeline runs.
func (c *Config) LogFile() string {
	return filepath.Join(c.StateDir, "record.log")
}

// DBFile holds the persisted session records.
func (c *Config) DBFile() string {
	return filepath.Join(c.StateDir, "state.db")
}

// RecordingsDir is where in-progress captures are written.
func (c *Config) RecordingsDir() string {
	return filepath.Join(c.StateDir, "recordings")
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
