package visualiser

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "deadspace.visualiser.v1.Visualiser"

const (
	streamFramesMethod = "/" + ServiceName + "/StreamFrames"
	getStatsMethod     = "/" + ServiceName + "/GetStats"
)

// VisualiserServer is the server side of the service.
type VisualiserServer interface {
	// StreamFrames sends a Struct per classified frame. The request Struct
	// may set active_only.
	StreamFrames(req *structpb.Struct, stream grpc.ServerStream) error
	GetStats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VisualiserServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStats", Handler: getStatsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamFrames", Handler: streamFramesHandler, ServerStreams: true},
	},
	Metadata: "deadspace/visualiser.proto",
}

// RegisterServer registers srv on s.
func RegisterServer(s grpc.ServiceRegistrar, srv VisualiserServer) {
	s.RegisterService(&serviceDesc, srv)
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VisualiserServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VisualiserServer).GetStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func streamFramesHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(VisualiserServer).StreamFrames(in, stream)
}

// Server implements VisualiserServer on top of a Publisher.
type Server struct {
	publisher *Publisher
}

var _ VisualiserServer = (*Server)(nil)

// NewServer creates a new gRPC server.
func NewServer(publisher *Publisher) *Server {
	return &Server{publisher: publisher}
}

// StreamFrames implements VisualiserServer.
func (s *Server) StreamFrames(req *structpb.Struct, stream grpc.ServerStream) error {
	activeOnly := req.GetFields()["active_only"].GetBoolValue()
	client, err := s.publisher.addClient(activeOnly)
	if err != nil {
		return err
	}
	defer s.publisher.removeClient(client.id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.publisher.stopCh:
			return nil
		case u := <-client.frameCh:
			msg, err := u.toProto()
			if err != nil {
				log.Printf("[gRPC] encode frame %d: %v", u.Index, err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				log.Printf("[gRPC] Send error: %v", err)
				return err
			}
			s.publisher.sentFrames.Add(1)
		}
	}
}

// GetStats implements VisualiserServer.
func (s *Server) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.publisher.Stats().toProto()
}
