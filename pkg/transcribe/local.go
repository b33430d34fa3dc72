package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LocalBackend shells out to the Python whisper CLI. Model weights are
// downloaded by whisper itself on first use.
type LocalBackend struct {
	python string
	model  string
}

func NewLocalBackend(model string) *LocalBackend {
	if model == "" {
		model = "base.en"
	}
	python := os.Getenv("LECTURE2OBS_PYTHON")
	if python == "" {
		python = "python3"
	}
	return &LocalBackend{python: python, model: model}
}

// MaxUploadBytes reports no limit: the local model streams from disk.
func (b *LocalBackend) MaxUploadBytes() int64 {
	return 0
}

type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (b *LocalBackend) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outDir, err := os.MkdirTemp("", "lecture2obs_whisper_")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	defer os.RemoveAll(outDir)

	absPath, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	cmd := exec.CommandContext(ctx, b.python, "-m", "whisper",
		absPath,
		"--model", b.model,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: whisper: %v: %s", ErrTranscription, err, strings.TrimSpace(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return "", fmt.Errorf("%w: read whisper output: %v", ErrTranscription, err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse whisper output: %v", ErrTranscription, err)
	}

	if text := strings.TrimSpace(parsed.Text); text != "" {
		return text, nil
	}
	parts := make([]string, 0, len(parsed.Segments))
	for _, segment := range parsed.Segments {
		if s := strings.TrimSpace(segment.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
