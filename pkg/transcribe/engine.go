package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultChunkWorkers = 2

// Engine runs whole-file transcription, splitting oversized captures into
// ordered chunks to stay under the backend's upload limit. A single chunk
// failure fails the whole operation; the source file is always preserved.
type Engine struct {
	backend  Backend
	splitter splitter
	workers  int
}

func NewEngine(backend Backend, ffmpegCommand string) *Engine {
	return &Engine{
		backend:  backend,
		splitter: newFFmpegSplitter(ffmpegCommand),
		workers:  defaultChunkWorkers,
	}
}

// Transcribe returns the full transcript of audioPath in real-time order.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	limit := e.backend.MaxUploadBytes()
	if limit <= 0 || info.Size() <= limit {
		return e.backend.Transcribe(ctx, audioPath)
	}

	zerolog.Ctx(ctx).Info().
		Int64("size_bytes", info.Size()).
		Int64("limit_bytes", limit).
		Msg("audio exceeds backend limit, splitting into chunks")

	chunks, cleanup, err := e.splitter.Split(ctx, audioPath, limit)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// Each chunk writes only its own slot, so parallel execution cannot
	// scramble the ordering.
	texts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, chunk := range chunks {
		g.Go(func() error {
			zerolog.Ctx(ctx).Info().
				Int("chunk", chunk.Index+1).
				Int("total", len(chunks)).
				Msg("transcribing chunk")
			text, err := e.backend.Transcribe(gctx, chunk.Path)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", chunk.Index+1, len(chunks), err)
			}
			texts[chunk.Index] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, ErrTranscription) {
			err = fmt.Errorf("%w: %v", ErrTranscription, err)
		}
		return "", err
	}

	return strings.Join(texts, " "), nil
}
