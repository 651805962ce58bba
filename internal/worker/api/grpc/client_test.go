package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/wire"
	"github.com/nemanja-m/enhancify/pkg/types"
)

// scriptedServer sends one job, expects its result, then terminates.
type scriptedServer struct {
	job      types.JobSpec
	hello    chan int
	results  chan types.JobResult
	detached chan error
}

func (s *scriptedServer) Attach(stream wire.AttachServer) error {
	in, err := stream.Recv()
	if err != nil {
		return err
	}
	msg, err := wire.Decode(in)
	if err != nil {
		return err
	}
	s.hello <- msg.WorkerID

	envelope, err := wire.EncodeJob(s.job)
	if err != nil {
		return err
	}
	if err := stream.Send(envelope); err != nil {
		return err
	}

	in, err = stream.Recv()
	if err != nil {
		return err
	}
	msg, err = wire.Decode(in)
	if err != nil {
		return err
	}
	s.results <- *msg.Result

	if err := stream.Send(wire.Terminate()); err != nil {
		return err
	}
	_, err = stream.Recv()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	s.detached <- err
	return nil
}

func startServer(t *testing.T, srv wire.DispatchServer) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	wire.RegisterDispatchServer(server, srv)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func connConfig(addr string) config.CoordinatorConnConfig {
	return config.CoordinatorConnConfig{
		Addr: addr,
		GRPC: config.WorkerGRPCConfig{
			KeepaliveTime:    30 * time.Second,
			KeepaliveTimeout: 5 * time.Second,
			DialTimeout:      5 * time.Second,
		},
	}
}

func TestCoordinatorClient_Session(t *testing.T) {
	srv := &scriptedServer{
		job: types.JobSpec{
			ID:        uuid.New(),
			InputPath: "in/a.png",
			OutputDir: "out/a",
			Config:    types.DefaultAlgorithmConfig(),
		},
		hello:    make(chan int, 1),
		results:  make(chan types.JobResult, 1),
		detached: make(chan error, 1),
	}
	addr := startServer(t, srv)

	client, err := NewCoordinatorClient(connConfig(addr), 3)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Attach(ctx))
	require.Equal(t, 3, <-srv.hello)

	job, err := client.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, srv.job, *job)

	require.NoError(t, client.Report(ctx, types.JobResult{
		JobID:     job.ID,
		InputPath: job.InputPath,
		WorkerID:  3,
		Elapsed:   time.Second,
	}))
	result := <-srv.results
	require.Equal(t, job.ID, result.JobID)
	require.False(t, result.Failed())

	job, err = client.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, job, "terminate is a nil job")

	require.NoError(t, client.Close())
	select {
	case err := <-srv.detached:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the stream close")
	}
}

func TestCoordinatorClient_AttachTimeout(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	cfg := connConfig(addr)
	cfg.GRPC.DialTimeout = 200 * time.Millisecond
	client, err := NewCoordinatorClient(cfg, 1)
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	err = client.Attach(context.Background())
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCoordinatorClient_NotAttached(t *testing.T) {
	client, err := NewCoordinatorClient(connConfig("127.0.0.1:1"), 1)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Next(context.Background())
	require.Error(t, err)
	require.Error(t, client.Report(context.Background(), types.JobResult{}))
}
