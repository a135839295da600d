package visualiser

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the visualiser service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// FrameStream yields updates until the server ends the stream.
type FrameStream struct {
	stream grpc.ClientStream
}

// StreamFrames subscribes to classified frames. With activeOnly set the
// server sends only frames that will be retained.
func (c *Client) StreamFrames(ctx context.Context, activeOnly bool) (*FrameStream, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], streamFramesMethod)
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"active_only": activeOnly})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &FrameStream{stream: stream}, nil
}

// Recv returns the next update, or io.EOF once the server has stopped.
func (s *FrameStream) Recv() (FrameUpdate, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return FrameUpdate{}, err
	}
	u, err := updateFromProto(msg)
	if err != nil {
		return FrameUpdate{}, fmt.Errorf("decode frame update: %w", err)
	}
	return u, nil
}

// Stats fetches the publisher counters.
func (c *Client) Stats(ctx context.Context) (PublisherStats, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatsMethod, &emptypb.Empty{}, out); err != nil {
		return PublisherStats{}, err
	}
	return statsFromProto(out), nil
}
