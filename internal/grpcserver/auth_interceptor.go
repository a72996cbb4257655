package grpcserver

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const metadataKeyAuthorization = "authorization"

// healthServicePrefix is left unauthenticated so probes need no key.
const healthServicePrefix = "/grpc.health.v1.Health/"

// AuthUnaryInterceptor returns a gRPC unary interceptor that validates the API key
// from the "authorization" metadata (Bearer <key>) using auth.Service.
func AuthUnaryInterceptor(authService *auth.Service) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info != nil && strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		vals := md.Get(metadataKeyAuthorization)
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization")
		}
		apiKey, err := auth.BearerToken(vals[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		storedKey, err := authService.ValidateAPIKey(ctx, apiKey)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}
		ctx = context.WithValue(ctx, auth.APIKeyIDKey, storedKey.ID)
		return handler(ctx, req)
	}
}

// ownerFromContext returns the authenticated key ID, which owns references
// created over gRPC. Unauthenticated calls share the nil owner.
func ownerFromContext(ctx context.Context) uuid.UUID {
	id, err := auth.GetAPIKeyID(ctx)
	if err != nil {
		return uuid.Nil
	}
	return id
}
