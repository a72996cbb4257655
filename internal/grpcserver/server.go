package grpcserver

import (
	"github.com/snappy-loop/gallery/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds the gRPC server with the API key interceptor, the audio
// service and the standard health service. The health server starts SERVING
// for both the overall server and the audio service.
func NewServer(authService *auth.Service, audio Audio, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.UnaryInterceptor(AuthUnaryInterceptor(authService)))
	srv := grpc.NewServer(opts...)

	RegisterAudioServiceServer(srv, NewAudioServer(audio))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(AudioServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	return srv, healthSrv
}
