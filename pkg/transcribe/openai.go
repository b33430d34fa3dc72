package transcribe

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// apiMaxUploadBytes stays a margin under the Whisper API's 25 MB cap.
const apiMaxUploadBytes = 24 << 20

// APIBackend calls the OpenAI Whisper API. Files above MaxUploadBytes must
// be split by the Engine before reaching it.
type APIBackend struct {
	client *openai.Client
}

func NewAPIBackend(apiKey string) *APIBackend {
	return &APIBackend{client: openai.NewClient(apiKey)}
}

func (b *APIBackend) MaxUploadBytes() int64 {
	return apiMaxUploadBytes
}

func (b *APIBackend) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("%w: whisper api: %v", ErrTranscription, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
