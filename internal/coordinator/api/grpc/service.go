package grpc

import (
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/shared/wire"
	"github.com/nemanja-m/enhancify/pkg/types"
)

// Sender pushes an envelope to one attached worker.
type Sender func(*structpb.Struct) error

// WorkerRegistry is the pool behind the dispatch service.
type WorkerRegistry interface {
	// Attach admits a worker that said hello. An error rejects the stream.
	Attach(workerID int, send Sender) error
	Deliver(workerID int, result types.JobResult)
	// Detach is called exactly once per admitted worker when its stream
	// ends; cause is nil for an orderly close.
	Detach(workerID int, cause error)
}

type DispatchService struct {
	registry WorkerRegistry
	logger   logging.Logger
}

func NewDispatchService(registry WorkerRegistry, logger logging.Logger) *DispatchService {
	return &DispatchService{
		registry: registry,
		logger:   logger,
	}
}

func (s *DispatchService) Attach(stream wire.AttachServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	hello, err := wire.Decode(first)
	if err != nil || hello.Kind != wire.KindHello {
		s.logger.Error("Invalid handshake", "error", err)
		return status.Error(codes.InvalidArgument, "expected hello")
	}

	workerID := hello.WorkerID
	if err := s.registry.Attach(workerID, stream.Send); err != nil {
		s.logger.Error("Rejected worker", "worker_id", workerID, "error", err)
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.logger.Info("Worker attached", "worker_id", workerID)

	var cause error
	for {
		in, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				cause = err
			}
			break
		}

		msg, err := wire.Decode(in)
		if err != nil || msg.Kind != wire.KindResult {
			s.logger.Warn("Ignoring unexpected message", "worker_id", workerID, "error", err)
			continue
		}
		result := *msg.Result
		result.WorkerID = workerID
		s.registry.Deliver(workerID, result)
	}

	s.registry.Detach(workerID, cause)
	if cause != nil {
		s.logger.Warn("Worker stream lost", "worker_id", workerID, "error", cause)
	} else {
		s.logger.Debug("Worker detached", "worker_id", workerID)
	}
	return nil
}
