// Package intercepters holds the gRPC server interceptors of the relay.
package intercepters

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/go-url-relay/internal/app/service"
)

const unauthorized = "Unauthorized"

func authorize(ctx context.Context, auth service.AuthIface) error {
	if !auth.Enabled() {
		return nil
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("authorization"); len(v) > 0 {
			header = v[0]
		}
	}

	if !auth.Authorized(header) {
		_ = grpc.SetTrailer(ctx, metadata.Pairs("www-authenticate", service.Challenge))
		return status.Error(codes.Unauthenticated, unauthorized)
	}

	return nil
}

// WithBearer rejects unary calls without the configured bearer secret.
func WithBearer(auth service.AuthIface) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := authorize(ctx, auth); err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// WithBearerStream is the streaming counterpart of WithBearer.
func WithBearerStream(auth service.AuthIface) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := authorize(ss.Context(), auth); err != nil {
			return err
		}

		return handler(srv, ss)
	}
}
