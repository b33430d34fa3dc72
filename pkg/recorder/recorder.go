package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// ErrCaptureUnavailable means the capture process could not start at all:
// missing ffmpeg, busy device, denied microphone permission.
var ErrCaptureUnavailable = errors.New("audio capture unavailable")

const (
	sampleRate = 16000
	channels   = 1

	startupGrace = 250 * time.Millisecond
	stopTimeout  = 3 * time.Second
)

type Options struct {
	Command     string
	InputFormat string
	InputDevice string
}

// Recorder captures the default microphone to a 16 kHz mono WAV file by
// running ffmpeg until stopped.
type Recorder struct {
	opts Options
}

func New(opts Options) *Recorder {
	if opts.Command == "" {
		opts.Command = "ffmpeg"
	}
	if opts.InputFormat == "" {
		opts.InputFormat = defaultInputFormat()
	}
	if opts.InputDevice == "" {
		opts.InputDevice = defaultInputDevice(opts.InputFormat)
	}
	return &Recorder{opts: opts}
}

// Start begins capturing into outPath. It fails with ErrCaptureUnavailable
// when ffmpeg exits during the startup grace period.
func (r *Recorder) Start(ctx context.Context, outPath string) (*Capture, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", r.opts.InputFormat,
		"-i", r.opts.InputDevice,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-y",
		outPath,
	}

	cmd := exec.CommandContext(ctx, r.opts.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := bytes.TrimSpace(stderr.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited: %v: %s", ErrCaptureUnavailable, err, detail)
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %s", ErrCaptureUnavailable, detail)
	case <-startupTimer():
	}

	return &Capture{
		path:    outPath,
		process: cmd.Process,
		stderr:  &stderr,
		waitErr: waitErr,
	}, nil
}

// Capture is a live recording in progress.
type Capture struct {
	path    string
	process *os.Process
	stderr  *bytes.Buffer
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (c *Capture) Path() string {
	return c.path
}

// Stop signals ffmpeg to finish writing the WAV and waits for it to exit.
// It returns the capture path once the file is complete and non-empty.
func (c *Capture) Stop() (string, error) {
	c.stopOnce.Do(func() {
		// SIGINT makes ffmpeg finalize the container cleanly.
		_ = c.process.Signal(os.Interrupt)

		select {
		case err, ok := <-c.waitErr:
			if ok {
				c.stopErr = normalizeExit(err)
			}
		case <-time.After(stopTimeout):
			_ = c.process.Kill()
			if err, ok := <-c.waitErr; ok {
				c.stopErr = normalizeExit(err)
			}
		}

		if c.stopErr == nil {
			info, err := os.Stat(c.path)
			switch {
			case err != nil:
				c.stopErr = fmt.Errorf("capture file missing: %w", err)
			case info.Size() == 0:
				c.stopErr = errors.New("no audio captured, recording was empty")
			}
		}

		if c.stopErr != nil && c.stderr.Len() > 0 {
			c.stopErr = fmt.Errorf("%w: %s", c.stopErr, bytes.TrimSpace(c.stderr.Bytes()))
		}
	})

	return c.path, c.stopErr
}

func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	// ffmpeg exits non-zero when interrupted; that is the expected stop path.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func startupTimer() <-chan time.Time {
	return time.After(startupGrace)
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

func defaultInputDevice(format string) string {
	switch format {
	case "avfoundation":
		return ":0"
	default:
		return "default"
	}
}
