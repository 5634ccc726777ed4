package intercepters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/intercepters"
	"github.com/atinyakov/go-url-relay/internal/mocks"
)

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeStream) Context() context.Context { return s.ctx }

func TestWithBearer(t *testing.T) {
	tests := []struct {
		name     string
		md       metadata.MD
		secret   string
		wantCode codes.Code
	}{
		{name: "disabled without metadata", md: nil, secret: "", wantCode: codes.OK},
		{name: "missing metadata", md: nil, secret: "s3cret", wantCode: codes.Unauthenticated},
		{name: "missing header", md: metadata.Pairs(), secret: "s3cret", wantCode: codes.Unauthenticated},
		{name: "wrong token", md: metadata.Pairs("authorization", "Bearer nope"), secret: "s3cret", wantCode: codes.Unauthenticated},
		{name: "valid token", md: metadata.Pairs("authorization", "Bearer s3cret"), secret: "s3cret", wantCode: codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			auth := service.NewBearerAuth(tt.secret)

			called := false
			_, err := intercepters.WithBearer(auth)(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/relay.v1.Relay/Register"},
				func(ctx context.Context, req interface{}) (interface{}, error) {
					called = true
					return "ok", nil
				})

			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantCode == codes.OK, called)

			streamCalled := false
			err = intercepters.WithBearerStream(auth)(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/relay.v1.Relay/Retrieve"},
				func(srv interface{}, ss grpc.ServerStream) error {
					streamCalled = true
					return nil
				})

			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantCode == codes.OK, streamCalled)
		})
	}
}

func TestWithBearer_UsesGate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthIface(ctrl)
	mockAuth.EXPECT().Enabled().Return(true)
	mockAuth.EXPECT().Authorized("Bearer x").Return(false)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer x"))
	_, err := intercepters.WithBearer(mockAuth)(ctx, nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			t.Fatal("handler must not run")
			return nil, nil
		})

	require.Error(t, err)
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, "Unauthorized", st.Message())
}
