package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

// ErrTimeout reports that the process exceeded its execution deadline
var ErrTimeout = fmt.Errorf("execution timed out")

// OutputFunc receives one line of process output as it is produced. A slow
// consumer applies backpressure to the process via pipe buffering.
type OutputFunc func(content string, stream models.OutputType)

// Result captures the outcome of a finished process
type Result struct {
	ExitCode int
	PID      int
	Duration time.Duration
}

// Service executes external tool commands with streaming output capture
type Service struct {
	config *common.RunnerConfig
	logger arbor.ILogger
}

// NewService creates a new runner service
func NewService(config *common.RunnerConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// Run executes the command line with a timeout, streaming each output line to
// onOutput. On deadline the process group gets SIGTERM, then SIGKILL after the
// configured grace period, and ErrTimeout is returned alongside the result.
// Context cancellation terminates the process the same way.
func (s *Service) Run(ctx context.Context, jobID, command string, timeoutSeconds int, onOutput OutputFunc) (*Result, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if timeoutSeconds <= 0 {
		timeoutSeconds = s.config.DefaultTimeout
	}
	deadline := time.Duration(timeoutSeconds) * time.Second

	workDir := filepath.Join(s.config.OutputsDir, jobID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"PATH=/usr/local/bin:/usr/bin:/bin:"+os.Getenv("PATH"),
		"DEBIAN_FRONTEND=noninteractive",
	)
	// New process group so signals reach the whole tool tree
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	pid := cmd.Process.Pid

	s.logger.Debug().
		Str("job_id", jobID).
		Int("pid", pid).
		Str("command", command).
		Msg("Process started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.scanLines(stdout, models.OutputTypeStdout, onOutput)
	}()
	go func() {
		defer wg.Done()
		s.scanLines(stderr, models.OutputTypeStderr, onOutput)
	}()

	// Kill the process group when the deadline passes or the caller cancels
	killDone := make(chan struct{})
	go func() {
		defer close(killDone)
		select {
		case <-runCtx.Done():
			if runCtx.Err() != nil && cmd.ProcessState == nil {
				s.terminate(pid, jobID)
			}
		case <-ctx.Done():
			s.terminate(pid, jobID)
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	cancel()
	<-killDone

	result := &Result{
		ExitCode: exitCodeOf(cmd, waitErr),
		PID:      pid,
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return result, ErrTimeout
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

func (s *Service) scanLines(pipe interface{ Read([]byte) (int, error) }, stream models.OutputType, onOutput OutputFunc) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onOutput != nil {
			onOutput(scanner.Text(), stream)
		}
	}
}

// terminate sends SIGTERM to the process group, escalating to SIGKILL after
// the configured grace period
func (s *Service) terminate(pid int, jobID string) {
	s.logger.Debug().Str("job_id", jobID).Int("pid", pid).Msg("Terminating process group")

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return
	}

	grace := time.Duration(s.config.KillGrace) * time.Second
	timer := time.NewTimer(grace)
	defer timer.Stop()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			_ = syscall.Kill(-pid, syscall.SIGKILL)
			return
		case <-ticker.C:
			// Signal 0 probes for existence without delivering anything
			if err := syscall.Kill(-pid, 0); err != nil {
				return
			}
		}
	}
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return -1
}
