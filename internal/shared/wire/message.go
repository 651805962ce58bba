package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/enhancify/pkg/types"
)

type Kind string

const (
	KindHello     Kind = "hello"
	KindJob       Kind = "job"
	KindTerminate Kind = "terminate"
	KindResult    Kind = "result"
)

var ErrMalformed = errors.New("malformed message")

// Message is the decoded form of an envelope. Only the field matching Kind is
// set.
type Message struct {
	Kind     Kind
	WorkerID int
	Job      *types.JobSpec
	Result   *types.JobResult
}

func Hello(workerID int) *structpb.Struct {
	return mustStruct(map[string]any{
		"kind":      string(KindHello),
		"worker_id": workerID,
	})
}

func Terminate() *structpb.Struct {
	return mustStruct(map[string]any{"kind": string(KindTerminate)})
}

func EncodeJob(job types.JobSpec) (*structpb.Struct, error) {
	cfg := job.Config
	return structpb.NewStruct(map[string]any{
		"kind":       string(KindJob),
		"id":         job.ID.String(),
		"index":      job.Index,
		"input_path": job.InputPath,
		"output_dir": job.OutputDir,
		"config": map[string]any{
			"population":  cfg.PopulationSize,
			"generations": cfg.Generations,
			"selection":   string(cfg.Selection),
			"cross_rate":  cfg.CrossoverRate,
			"mut_rate":    cfg.MutationRate,
			"pressure":    cfg.TournamentPressure,
			"elitism":     cfg.ElitismCount,
		},
	})
}

// EncodeResult flattens a result. A failure travels as its message only.
func EncodeResult(r types.JobResult) (*structpb.Struct, error) {
	fields := map[string]any{
		"kind":       string(KindResult),
		"id":         r.JobID.String(),
		"input_path": r.InputPath,
		"worker_id":  r.WorkerID,
		"elapsed_ns": float64(r.Elapsed.Nanoseconds()),
	}
	if r.Err != nil {
		cause := r.Err
		var jobErr *types.JobError
		if errors.As(r.Err, &jobErr) && jobErr.Err != nil {
			cause = jobErr.Err
		}
		fields["error"] = cause.Error()
	}
	return structpb.NewStruct(fields)
}

func Decode(s *structpb.Struct) (*Message, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: empty envelope", ErrMalformed)
	}
	fields := s.GetFields()
	msg := &Message{Kind: Kind(fields["kind"].GetStringValue())}

	switch msg.Kind {
	case KindHello:
		msg.WorkerID = int(fields["worker_id"].GetNumberValue())
		if msg.WorkerID <= 0 {
			return nil, fmt.Errorf("%w: hello without worker id", ErrMalformed)
		}
	case KindTerminate:
	case KindJob:
		job, err := decodeJob(fields)
		if err != nil {
			return nil, err
		}
		msg.Job = job
	case KindResult:
		result, err := decodeResult(fields)
		if err != nil {
			return nil, err
		}
		msg.WorkerID = result.WorkerID
		msg.Result = result
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, msg.Kind)
	}
	return msg, nil
}

func decodeJob(fields map[string]*structpb.Value) (*types.JobSpec, error) {
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: job id: %v", ErrMalformed, err)
	}
	cfg := fields["config"].GetStructValue().GetFields()
	if cfg == nil {
		return nil, fmt.Errorf("%w: job %s without config", ErrMalformed, id)
	}
	return &types.JobSpec{
		ID:        id,
		Index:     int(fields["index"].GetNumberValue()),
		InputPath: fields["input_path"].GetStringValue(),
		OutputDir: fields["output_dir"].GetStringValue(),
		Config: types.AlgorithmConfig{
			PopulationSize:     int(cfg["population"].GetNumberValue()),
			Generations:        int(cfg["generations"].GetNumberValue()),
			Selection:          types.Selection(cfg["selection"].GetStringValue()),
			CrossoverRate:      cfg["cross_rate"].GetNumberValue(),
			MutationRate:       cfg["mut_rate"].GetNumberValue(),
			TournamentPressure: int(cfg["pressure"].GetNumberValue()),
			ElitismCount:       int(cfg["elitism"].GetNumberValue()),
		},
	}, nil
}

func decodeResult(fields map[string]*structpb.Value) (*types.JobResult, error) {
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: result id: %v", ErrMalformed, err)
	}
	result := &types.JobResult{
		JobID:     id,
		InputPath: fields["input_path"].GetStringValue(),
		WorkerID:  int(fields["worker_id"].GetNumberValue()),
		Elapsed:   time.Duration(fields["elapsed_ns"].GetNumberValue()),
	}
	if msg, ok := fields["error"]; ok {
		result.Err = types.NewJobError(result.InputPath, errors.New(msg.GetStringValue()))
	}
	return result, nil
}

func mustStruct(fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		panic(err)
	}
	return s
}
