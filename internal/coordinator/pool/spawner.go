package pool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// Process is a started worker.
type Process interface {
	// Wait blocks until the worker exits. It is called exactly once.
	Wait() error
	Kill() error
}

// Spawner starts a worker that attaches to the coordinator at addr.
type Spawner interface {
	Spawn(ctx context.Context, addr string, workerID int) (Process, error)
}

// ExecSpawner re-executes a binary as "<executable> worker ...". An empty
// Executable means the running binary.
type ExecSpawner struct {
	Executable string
	LogLevel   string
	LogFormat  string
	Stdout     io.Writer
	Stderr     io.Writer
}

func (s *ExecSpawner) Spawn(_ context.Context, addr string, workerID int) (Process, error) {
	executable := s.Executable
	if executable == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		executable = self
	}

	args := []string{"worker", "--coordinator", addr, "--worker-id", strconv.Itoa(workerID)}
	if s.LogLevel != "" {
		args = append(args, "--log-level", s.LogLevel)
	}
	if s.LogFormat != "" {
		args = append(args, "--log-format", s.LogFormat)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %d: %w", workerID, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
