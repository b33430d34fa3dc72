package transcribe

import (
	"context"
	"errors"
)

// ErrTranscription wraps every backend or chunk failure. When it surfaces,
// the source audio file has not been touched.
var ErrTranscription = errors.New("transcription failed")

// Backend turns one audio file into plain text. Implementations must keep
// the input file intact and may be called concurrently for distinct files.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)

	// MaxUploadBytes is the hard input size limit, or 0 when unbounded.
	MaxUploadBytes() int64
}
