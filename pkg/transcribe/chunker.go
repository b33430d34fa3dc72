package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Chunk is one bounded, time-contiguous slice of an oversized capture.
// Chunks of a file are disjoint and ordered by Index; the final transcript
// is the chunk texts concatenated by ascending Index.
type Chunk struct {
	Index    int
	Path     string
	Start    float64
	Duration float64
}

// snapWindowSec is how far an even-split boundary may move to land on a
// detected silence.
const snapWindowSec = 5.0

type splitter interface {
	// Split cuts audioPath into chunks each under limitBytes. The returned
	// cleanup removes the chunk files; the source file is never modified.
	Split(ctx context.Context, audioPath string, limitBytes int64) ([]Chunk, func(), error)
}

type ffmpegSplitter struct {
	command string
	probe   string
}

func newFFmpegSplitter(command string) *ffmpegSplitter {
	if command == "" {
		command = "ffmpeg"
	}
	return &ffmpegSplitter{command: command, probe: "ffprobe"}
}

func (s *ffmpegSplitter) Split(ctx context.Context, audioPath string, limitBytes int64) ([]Chunk, func(), error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	duration, err := s.probeDuration(ctx, audioPath)
	if err != nil {
		return nil, nil, err
	}

	numChunks := int(info.Size()/limitBytes) + 1

	// Boundary snapping is best-effort: a silencedetect failure falls back
	// to an even time split.
	silences, _ := s.detectSilences(ctx, audioPath)
	boundaries := planBoundaries(duration, numChunks, silences)

	tmpDir, err := os.MkdirTemp("", "lecture2obs_chunks_")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	chunks := make([]Chunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := boundaries[i]
		chunkDur := boundaries[i+1] - start
		chunkPath := filepath.Join(tmpDir, fmt.Sprintf("chunk_%03d%s", i, filepath.Ext(audioPath)))

		if err := s.extract(ctx, audioPath, chunkPath, start, chunkDur); err != nil {
			cleanup()
			return nil, nil, err
		}
		chunks = append(chunks, Chunk{Index: i, Path: chunkPath, Start: start, Duration: chunkDur})
	}

	return chunks, cleanup, nil
}

func (s *ffmpegSplitter) probeDuration(ctx context.Context, audioPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v", ErrTranscription, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("%w: ffprobe reported no duration for %s", ErrTranscription, audioPath)
	}
	return duration, nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// detectSilences returns the midpoints of detected silent stretches.
func (s *ffmpegSplitter) detectSilences(ctx context.Context, audioPath string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, s.command,
		"-hide_banner",
		"-i", audioPath,
		"-af", "silencedetect=noise=-30dB:d=0.5",
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	starts := parseTimes(silenceStartRe, stderr.String())
	ends := parseTimes(silenceEndRe, stderr.String())

	var midpoints []float64
	for i, start := range starts {
		if i < len(ends) && ends[i] > start {
			midpoints = append(midpoints, (start+ends[i])/2)
		} else {
			midpoints = append(midpoints, start)
		}
	}
	return midpoints, nil
}

func parseTimes(re *regexp.Regexp, output string) []float64 {
	var times []float64
	for _, match := range re.FindAllStringSubmatch(output, -1) {
		if t, err := strconv.ParseFloat(match[1], 64); err == nil {
			times = append(times, t)
		}
	}
	return times
}

func (s *ffmpegSplitter) extract(ctx context.Context, audioPath, chunkPath string, start, duration float64) error {
	cmd := exec.CommandContext(ctx, s.command,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", audioPath,
		"-c", "copy",
		"-y",
		chunkPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: ffmpeg split: %v: %s", ErrTranscription, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// planBoundaries returns numChunks+1 ascending cut points covering
// [0, duration]. Interior points start as an even split and snap to the
// nearest silence within snapWindowSec when that keeps the order intact.
func planBoundaries(duration float64, numChunks int, silences []float64) []float64 {
	if numChunks < 1 {
		numChunks = 1
	}

	boundaries := make([]float64, numChunks+1)
	boundaries[numChunks] = duration
	for i := 1; i < numChunks; i++ {
		boundaries[i] = duration * float64(i) / float64(numChunks)
	}

	if len(silences) == 0 {
		return boundaries
	}
	sorted := append([]float64(nil), silences...)
	sort.Float64s(sorted)

	for i := 1; i < numChunks; i++ {
		target := boundaries[i]
		snapped, ok := nearest(sorted, target)
		if !ok || abs(snapped-target) > snapWindowSec {
			continue
		}
		if snapped > boundaries[i-1] && snapped < boundaries[numChunks] {
			boundaries[i] = snapped
		}
	}

	return boundaries
}

func nearest(sorted []float64, target float64) (float64, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	idx := sort.SearchFloat64s(sorted, target)
	best := sorted[0]
	if idx < len(sorted) {
		best = sorted[idx]
	}
	if idx > 0 && abs(sorted[idx-1]-target) < abs(best-target) {
		best = sorted[idx-1]
	}
	return best, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
