package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/wire"
	"github.com/nemanja-m/enhancify/pkg/types"
)

var ErrUnexpectedMessage = errors.New("unexpected message from coordinator")

// CoordinatorClient is a worker's Attach stream to the coordinator.
type CoordinatorClient struct {
	conn   *grpc.ClientConn
	stream wire.AttachClient
	cancel context.CancelFunc

	workerID        int
	coordinatorAddr string
	dialTimeout     time.Duration
}

func NewCoordinatorClient(cfg config.CoordinatorConnConfig, workerID int) (*CoordinatorClient, error) {
	conn, err := grpc.NewClient(
		cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(
			keepalive.ClientParameters{
				Time:                cfg.GRPC.KeepaliveTime,
				Timeout:             cfg.GRPC.KeepaliveTimeout,
				PermitWithoutStream: true,
			},
		),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	return &CoordinatorClient{
		conn:            conn,
		workerID:        workerID,
		coordinatorAddr: cfg.Addr,
		dialTimeout:     cfg.GRPC.DialTimeout,
	}, nil
}

// Attach opens the stream and introduces the worker. The stream lives until
// Close or until ctx is done.
func (c *CoordinatorClient) Attach(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if c.dialTimeout > 0 {
		timer = time.AfterFunc(c.dialTimeout, cancel)
	}

	stream, err := wire.NewAttachClient(streamCtx, c.conn, grpc.WaitForReady(true))
	if err == nil {
		err = stream.Send(wire.Hello(c.workerID))
	}
	if timer != nil && !timer.Stop() && err == nil {
		err = fmt.Errorf("attach to %s timed out after %s", c.coordinatorAddr, c.dialTimeout)
	}
	if err != nil {
		cancel()
		return fmt.Errorf("failed to attach to coordinator: %w", err)
	}

	c.stream = stream
	c.cancel = cancel
	return nil
}

// Next returns the next job, or nil when the coordinator sent terminate.
func (c *CoordinatorClient) Next(ctx context.Context) (*types.JobSpec, error) {
	if c.stream == nil {
		return nil, errors.New("not attached")
	}
	in, err := c.stream.Recv()
	if err != nil {
		return nil, err
	}
	msg, err := wire.Decode(in)
	if err != nil {
		return nil, err
	}

	switch msg.Kind {
	case wire.KindTerminate:
		return nil, nil
	case wire.KindJob:
		return msg.Job, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Kind)
	}
}

func (c *CoordinatorClient) Report(ctx context.Context, result types.JobResult) error {
	if c.stream == nil {
		return errors.New("not attached")
	}
	envelope, err := wire.EncodeResult(result)
	if err != nil {
		return err
	}
	return c.stream.Send(envelope)
}

// Close half-closes the stream, waits for the coordinator to end it and
// releases the connection.
func (c *CoordinatorClient) Close() error {
	if c.stream != nil {
		if err := c.stream.CloseSend(); err == nil {
			for {
				if _, err := c.stream.Recv(); err != nil {
					break
				}
			}
		}
		c.cancel()
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
