package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/worker/core"
	"github.com/nemanja-m/enhancify/pkg/types"
)

// mockConn hands out the scripted jobs, then the terminate directive.
type mockConn struct {
	mu sync.Mutex

	jobs      []types.JobSpec
	jobIndex  int
	nextErr   error
	reportErr error

	reported []types.JobResult
	states   []core.State
	svc      core.WorkerService
}

func (m *mockConn) Next(ctx context.Context) (*types.JobSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.svc != nil {
		m.states = append(m.states, m.svc.State())
	}
	if m.nextErr != nil {
		return nil, m.nextErr
	}
	if m.jobIndex >= len(m.jobs) {
		return nil, nil
	}
	job := m.jobs[m.jobIndex]
	m.jobIndex++
	return &job, nil
}

func (m *mockConn) Report(ctx context.Context, result types.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reported = append(m.reported, result)
	return m.reportErr
}

func (m *mockConn) Close() error {
	return nil
}

type mockEnhancer struct {
	mu       sync.Mutex
	enhanced []string
	err      error
	panicMsg string
}

func (m *mockEnhancer) Enhance(ctx context.Context, inputPath, outputDir string, cfg types.AlgorithmConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.enhanced = append(m.enhanced, inputPath)
	return m.err
}

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)   {}
func (m *mockLogger) Info(msg string, args ...any)    {}
func (m *mockLogger) Warn(msg string, args ...any)    {}
func (m *mockLogger) Error(msg string, args ...any)   {}
func (m *mockLogger) Fatal(msg string, args ...any)   {}
func (m *mockLogger) With(args ...any) logging.Logger { return m }
func (m *mockLogger) Sync() error                     { return nil }

func testJobs(t *testing.T, n int) []types.JobSpec {
	t.Helper()
	root := t.TempDir()
	jobs := make([]types.JobSpec, n)
	for i := range jobs {
		jobs[i] = types.JobSpec{
			ID:        uuid.New(),
			Index:     i,
			InputPath: filepath.Join("in", "img.png"),
			OutputDir: filepath.Join(root, "out", string(rune('a'+i))),
			Config:    types.DefaultAlgorithmConfig(),
		}
	}
	return jobs
}

func TestWorkerService_Run_ProcessesJobsUntilTerminate(t *testing.T) {
	conn := &mockConn{jobs: testJobs(t, 3)}
	enhancer := &mockEnhancer{}
	logger := &mockLogger{}

	svc := NewWorkerService(2, conn, NewExecutor(enhancer, logger), logger)
	conn.svc = svc

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(enhancer.enhanced) != 3 {
		t.Errorf("Expected 3 jobs enhanced, got %d", len(enhancer.enhanced))
	}
	if len(conn.reported) != 3 {
		t.Fatalf("Expected 3 results reported, got %d", len(conn.reported))
	}
	for i, result := range conn.reported {
		if result.JobID != conn.jobs[i].ID {
			t.Errorf("Result %d reported for wrong job %s", i, result.JobID)
		}
		if result.WorkerID != 2 {
			t.Errorf("Expected worker ID 2, got %d", result.WorkerID)
		}
		if result.Failed() {
			t.Errorf("Expected result %d to succeed, got %v", i, result.Err)
		}
	}
	if svc.State() != core.StateTerminated {
		t.Errorf("Expected terminated state, got %s", svc.State())
	}
	for i, state := range conn.states {
		if state != core.StateIdle {
			t.Errorf("Expected idle state before receive %d, got %s", i, state)
		}
	}
}

func TestWorkerService_Run_TerminateWithoutJobs(t *testing.T) {
	conn := &mockConn{}
	enhancer := &mockEnhancer{}
	logger := &mockLogger{}

	svc := NewWorkerService(1, conn, NewExecutor(enhancer, logger), logger)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(conn.reported) != 0 {
		t.Errorf("Expected no results, got %d", len(conn.reported))
	}
	if svc.State() != core.StateTerminated {
		t.Errorf("Expected terminated state, got %s", svc.State())
	}
}

func TestWorkerService_Run_FailedJobIsReported(t *testing.T) {
	conn := &mockConn{jobs: testJobs(t, 2)}
	enhancer := &mockEnhancer{err: errors.New("bad pixels")}
	logger := &mockLogger{}

	svc := NewWorkerService(1, conn, NewExecutor(enhancer, logger), logger)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("A failed job must not stop the worker, got %v", err)
	}
	if len(conn.reported) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(conn.reported))
	}
	for _, result := range conn.reported {
		if !types.IsJobError(result.Err) {
			t.Errorf("Expected a job error marker, got %v", result.Err)
		}
	}
}

func TestWorkerService_Run_ConnectionErrors(t *testing.T) {
	tests := []struct {
		name string
		conn *mockConn
	}{
		{
			name: "receive fails",
			conn: &mockConn{nextErr: errors.New("stream reset")},
		},
		{
			name: "report fails",
			conn: &mockConn{jobs: testJobs(t, 1), reportErr: errors.New("stream reset")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			svc := NewWorkerService(1, tt.conn, NewExecutor(&mockEnhancer{}, logger), logger)

			if err := svc.Run(context.Background()); err == nil {
				t.Error("Expected an error")
			}
			if svc.State() != core.StateTerminated {
				t.Errorf("Expected terminated state, got %s", svc.State())
			}
		})
	}
}

func TestExecutor_CreatesOutputDir(t *testing.T) {
	job := testJobs(t, 1)[0]
	executor := NewExecutor(&mockEnhancer{}, &mockLogger{})

	result := executor.Execute(context.Background(), 0, job)

	if result.Failed() {
		t.Fatalf("Expected success, got %v", result.Err)
	}
	if info, err := os.Stat(job.OutputDir); err != nil || !info.IsDir() {
		t.Errorf("Expected output dir %s to exist", job.OutputDir)
	}
	if result.Elapsed <= 0 {
		t.Errorf("Expected positive elapsed time, got %s", result.Elapsed)
	}
}

func TestExecutor_RecoversPanic(t *testing.T) {
	job := testJobs(t, 1)[0]
	executor := NewExecutor(&mockEnhancer{panicMsg: "index out of range"}, &mockLogger{})

	result := executor.Execute(context.Background(), 4, job)

	if !types.IsJobError(result.Err) {
		t.Fatalf("Expected a job error marker, got %v", result.Err)
	}
	if result.WorkerID != 4 || result.JobID != job.ID {
		t.Errorf("Result must identify job and worker, got %+v", result)
	}
}

func TestExecutor_OutputDirFailure(t *testing.T) {
	job := testJobs(t, 1)[0]
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	job.OutputDir = filepath.Join(blocker, "out")
	enhancer := &mockEnhancer{}

	result := NewExecutor(enhancer, &mockLogger{}).Execute(context.Background(), 0, job)

	if !result.Failed() {
		t.Fatal("Expected failure when the output dir cannot be created")
	}
	if len(enhancer.enhanced) != 0 {
		t.Error("Enhancer must not run without an output dir")
	}
}
