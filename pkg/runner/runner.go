package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"lecture2obs/entities"
)

// DetachedRunner re-executes the current binary as a session-detached
// recorder process. The child captures audio until it receives SIGTERM,
// then runs the processing pipeline; its output goes to the diagnostic log.
type DetachedRunner struct {
	logPath string
}

func NewDetachedRunner(logPath string) *DetachedRunner {
	return &DetachedRunner{logPath: logPath}
}

func (r *DetachedRunner) Spawn(session *entities.Session) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.logPath), 0o755); err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "record", "--session-id", session.ID.String())
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start recorder process: %w", err)
	}
	return cmd.Process.Pid, nil
}

// Signal asks the recorder to stop capturing and run the pipeline.
func (r *DetachedRunner) Signal(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// Alive reports whether the recorder process still exists. Signal 0 only
// probes for existence.
func (r *DetachedRunner) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return errors.Is(err, syscall.EPERM)
}
