package wire

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
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/enhancify/pkg/types"
)

func TestJobEnvelope(t *testing.T) {
	job := types.JobSpec{
		ID:        uuid.New(),
		Index:     7,
		InputPath: "in/photo.tif",
		OutputDir: "out/photo",
		Config: types.AlgorithmConfig{
			PopulationSize:     50,
			Generations:        30,
			Selection:          types.SelectionRanking,
			CrossoverRate:      0.75,
			MutationRate:       0.05,
			TournamentPressure: 10,
			ElitismCount:       2,
		},
	}

	envelope, err := EncodeJob(job)
	require.NoError(t, err)

	msg, err := Decode(envelope)
	require.NoError(t, err)
	require.Equal(t, KindJob, msg.Kind)
	require.Equal(t, job, *msg.Job)
}

func TestResultEnvelope_CarriesFailure(t *testing.T) {
	result := types.JobResult{
		JobID:     uuid.New(),
		InputPath: "in/photo.png",
		WorkerID:  3,
		Elapsed:   1500 * time.Millisecond,
		Err:       types.NewJobError("in/photo.png", errors.New("corrupt header")),
	}

	envelope, err := EncodeResult(result)
	require.NoError(t, err)

	msg, err := Decode(envelope)
	require.NoError(t, err)
	require.Equal(t, KindResult, msg.Kind)
	require.Equal(t, 3, msg.WorkerID)
	require.Equal(t, result.Elapsed, msg.Result.Elapsed)
	require.True(t, msg.Result.Failed())
	require.Equal(t, result.Err.Error(), msg.Result.Err.Error())
}

func TestDecode_Control(t *testing.T) {
	msg, err := Decode(Hello(4))
	require.NoError(t, err)
	require.Equal(t, KindHello, msg.Kind)
	require.Equal(t, 4, msg.WorkerID)

	msg, err = Decode(Terminate())
	require.NoError(t, err)
	require.Equal(t, KindTerminate, msg.Kind)
}

func TestDecode_Malformed(t *testing.T) {
	noConfig, err := structpb.NewStruct(map[string]any{"kind": "job", "id": uuid.NewString()})
	require.NoError(t, err)
	badID, err := structpb.NewStruct(map[string]any{"kind": "result", "id": "nope"})
	require.NoError(t, err)
	unknown, err := structpb.NewStruct(map[string]any{"kind": "ping"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		envelope *structpb.Struct
	}{
		{name: "nil", envelope: nil},
		{name: "unknown kind", envelope: unknown},
		{name: "hello without id", envelope: mustStruct(map[string]any{"kind": "hello"})},
		{name: "job without config", envelope: noConfig},
		{name: "result with bad id", envelope: badID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.envelope)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

type echoServer struct{}

// Attach answers every hello with a terminate.
func (echoServer) Attach(stream AttachServer) error {
	for {
		in, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		msg, err := Decode(in)
		if err != nil {
			return err
		}
		if msg.Kind == KindHello {
			if err := stream.Send(Terminate()); err != nil {
				return err
			}
		}
	}
}

func TestAttachStream(t *testing.T) {
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterDispatchServer(server, echoServer{})
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := NewAttachClient(ctx, conn)
	require.NoError(t, err)
	require.NoError(t, stream.Send(Hello(1)))

	reply, err := stream.Recv()
	require.NoError(t, err)
	msg, err := Decode(reply)
	require.NoError(t, err)
	require.Equal(t, KindTerminate, msg.Kind)

	require.NoError(t, stream.CloseSend())
	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}
