package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName  = "enhancify.v1.Dispatch"
	AttachMethod = "/" + ServiceName + "/Attach"
)

// DispatchServer is implemented by the coordinator. A worker opens one Attach
// stream for its whole lifetime.
type DispatchServer interface {
	Attach(AttachServer) error
}

type AttachServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type AttachClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

// ServiceDesc describes the dispatch service. Messages are structpb.Struct
// envelopes, so the default proto codec carries them without generated code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DispatchServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Attach",
			Handler:       attachHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "enhancify/v1/dispatch.proto",
}

func RegisterDispatchServer(s grpc.ServiceRegistrar, srv DispatchServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func NewAttachClient(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (AttachClient, error) {
	stream, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], AttachMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &attachClient{ClientStream: stream}, nil
}

func attachHandler(srv any, stream grpc.ServerStream) error {
	return srv.(DispatchServer).Attach(&attachServer{ServerStream: stream})
}

type attachServer struct {
	grpc.ServerStream
}

func (s *attachServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func (s *attachServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type attachClient struct {
	grpc.ClientStream
}

func (c *attachClient) Send(m *structpb.Struct) error {
	return c.ClientStream.SendMsg(m)
}

func (c *attachClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
