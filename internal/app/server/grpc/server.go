// Package grpc exposes the relay over gRPC: Register creates short links
// and Retrieve streams the upstream body of a link in chunks.
package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/intercepters"
	"github.com/atinyakov/go-url-relay/internal/metrics"
	"github.com/atinyakov/go-url-relay/internal/models"
	"github.com/atinyakov/go-url-relay/internal/relay"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

// UpstreamHeaderPrefix prefixes upstream response headers sent as
// Retrieve header metadata.
const UpstreamHeaderPrefix = "x-upstream-"

// Server wraps the gRPC server and dependencies.
type Server struct {
	grpcServer *grpc.Server
	addr       string
	logger     *zap.Logger
}

// New creates a new gRPC server instance.
func New(baseURL string, logger *zap.Logger, svc service.RelayServiceIface, auth service.AuthIface, addr string) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(intercepters.InterceptorLogger(logger)),
			intercepters.WithBearer(auth),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(intercepters.InterceptorLogger(logger)),
			intercepters.WithBearerStream(auth),
		),
	)

	s.RegisterService(&ServiceDesc, &RelayServer{
		Service: svc,
		BaseURL: baseURL,
		Logger:  logger,
	})

	return &Server{
		grpcServer: s,
		addr:       addr,
		logger:     logger,
	}
}

// Start listens on the configured address and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("gRPC server failed to listen", zap.Error(err))
		return err
	}

	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop shuts down the server gracefully.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// RelayServer implements relay.v1.Relay on top of the relay service.
type RelayServer struct {
	Service service.RelayServiceIface
	BaseURL string
	Logger  *zap.Logger
}

// Register validates the {url, user_agent} struct and returns the short link.
func (s *RelayServer) Register(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	req, err := registrationFromStruct(in)
	if err != nil {
		return nil, err
	}

	r, _, err := s.Service.Register(ctx, req)
	if err != nil {
		var verr models.ValidationErrors
		if errors.As(err, &verr) {
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		}

		s.Logger.Error("unable to register url", zap.Error(err))
		return nil, status.Error(codes.Internal, "Internal Server Error")
	}

	return wrapperspb.String(service.ShortLink(s.base(ctx), r.ID)), nil
}

// Retrieve streams the upstream body of the link in.Value. The upstream
// status and headers are sent as header metadata before the first chunk.
func (s *RelayServer) Retrieve(in *wrapperspb.StringValue, stream RetrieveServer) error {
	ctx := stream.Context()

	r, err := s.Service.Lookup(ctx, in.GetValue())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.ObserveRetrieval(metrics.OutcomeNotFound, 0)
			return status.Error(codes.NotFound, "Not Found hash")
		}

		s.Logger.Error("lookup failed", zap.Error(err))
		return status.Error(codes.Internal, "Internal Server Error")
	}

	up, err := s.Service.Open(ctx, r)
	if err != nil {
		if errors.Is(err, relay.ErrConnect) {
			metrics.ObserveRetrieval(metrics.OutcomeConnectError, 0)
			return status.Error(codes.Unavailable, "Cannot connect to host")
		}

		metrics.ObserveRetrieval(metrics.OutcomeFetchError, 0)
		return status.Error(codes.Internal, err.Error())
	}
	defer up.Close()

	if err := stream.SendHeader(upstreamMetadata(up)); err != nil {
		return err
	}

	var relayed int64
	for {
		chunk, err := up.Next()
		if len(chunk) > 0 {
			if sendErr := stream.Send(&wrapperspb.BytesValue{Value: chunk}); sendErr != nil {
				return sendErr
			}
			relayed += int64(len(chunk))
		}

		if errors.Is(err, io.EOF) {
			metrics.ObserveRetrieval(metrics.OutcomeOK, relayed)
			return nil
		}
		if err != nil {
			s.Logger.Warn("relay interrupted", zap.String("id", r.ID), zap.Int64("bytes", relayed), zap.Error(err))
			return status.Error(codes.Aborted, err.Error())
		}
	}
}

func (s *RelayServer) base(ctx context.Context) string {
	if s.BaseURL != "" {
		return s.BaseURL
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(":authority"); len(v) > 0 && v[0] != "" {
			return "http://" + v[0]
		}
	}

	return "http://localhost"
}

func registrationFromStruct(in *structpb.Struct) (models.RegistrationRequest, error) {
	var req models.RegistrationRequest

	for name, v := range in.GetFields() {
		var dst **string
		switch name {
		case "url":
			dst = &req.URL
		case "user_agent":
			dst = &req.UserAgent
		default:
			return req, status.Errorf(codes.InvalidArgument, "unknown field %s", name)
		}

		switch kind := v.GetKind().(type) {
		case *structpb.Value_NullValue:
		case *structpb.Value_StringValue:
			s := kind.StringValue
			*dst = &s
		default:
			return req, status.Errorf(codes.InvalidArgument, "field %s must be a string", name)
		}
	}

	return req, nil
}

func upstreamMetadata(up *relay.Upstream) metadata.MD {
	md := metadata.Pairs(
		UpstreamHeaderPrefix+"status", strconv.Itoa(up.StatusCode),
		UpstreamHeaderPrefix+"content-type", up.ContentType,
	)

	for name, values := range up.Header {
		key := UpstreamHeaderPrefix + strings.ToLower(name)
		if key == UpstreamHeaderPrefix+"content-type" || !validKey(key) {
			continue
		}
		for _, v := range values {
			if printable(v) {
				md.Append(key, v)
			}
		}
	}

	return md
}

func printable(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return false
		}
	}

	return true
}

// validKey reports whether k only uses the characters gRPC allows in
// metadata keys. HTTP header names may carry others, such as '!' or '~'.
func validKey(k string) bool {
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}

	return true
}
