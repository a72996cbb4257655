package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AudioServiceName is the fully qualified gRPC service name.
const AudioServiceName = "gallery.audio.v1.AudioService"

const (
	encodeContainerMethod = "/" + AudioServiceName + "/EncodeContainer"
	narrateMethod         = "/" + AudioServiceName + "/Narrate"
)

// AudioServiceServer is the server API for gallery.audio.v1.AudioService.
//
// Requests and responses use the well-known Struct and BytesValue messages:
//
//	EncodeContainer(Struct{pcm_base64, mime_type}) returns (BytesValue)
//	Narrate(Struct{text}) returns (Struct{reference_id, url, mime_type, size, duration, expires_at})
type AudioServiceServer interface {
	EncodeContainer(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	Narrate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAudioServiceServer registers srv on s.
func RegisterAudioServiceServer(s grpc.ServiceRegistrar, srv AudioServiceServer) {
	s.RegisterService(&AudioServiceDesc, srv)
}

// AudioServiceDesc is the grpc.ServiceDesc for gallery.audio.v1.AudioService.
var AudioServiceDesc = grpc.ServiceDesc{
	ServiceName: AudioServiceName,
	HandlerType: (*AudioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "EncodeContainer", Handler: encodeContainerHandler},
		{MethodName: "Narrate", Handler: narrateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gallery/audio/v1/audio.proto",
}

func encodeContainerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).EncodeContainer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: encodeContainerMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).EncodeContainer(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func narrateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).Narrate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: narrateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).Narrate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AudioServiceClient is the client API for gallery.audio.v1.AudioService.
type AudioServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAudioServiceClient returns a client over cc.
func NewAudioServiceClient(cc grpc.ClientConnInterface) *AudioServiceClient {
	return &AudioServiceClient{cc: cc}
}

func (c *AudioServiceClient) EncodeContainer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, encodeContainerMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AudioServiceClient) Narrate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, narrateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
