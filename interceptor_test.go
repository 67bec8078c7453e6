package aclkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TestMethodName tests bare method extraction from gRPC full method names
func TestMethodName(t *testing.T) {
	tests := []struct {
		name       string
		fullMethod string
		expected   string
	}{
		{
			name:       "Full method",
			fullMethod: "/music.AlbumService/CreateAlbum",
			expected:   "CreateAlbum",
		},
		{
			name:       "Bare method",
			fullMethod: "CreateAlbum",
			expected:   "CreateAlbum",
		},
		{
			name:       "Nested package",
			fullMethod: "/acme.music.v1.AlbumService/GetAlbum",
			expected:   "GetAlbum",
		},
		{
			name:       "Empty",
			fullMethod: "",
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, methodName(tt.fullMethod))
		})
	}
}

// TestPrincipalsFromMetadata tests identity extraction from incoming
// metadata
func TestPrincipalsFromMetadata(t *testing.T) {
	md := metadata.Pairs(
		MetadataUserID, "u-1",
		MetadataAppID, "reporting",
		MetadataRequestID, "req-1",
	)
	ctx := metadata.NewIncomingContext(context.Background(), md)

	principals, ctx := principalsFromMetadata(ctx)
	assert.Equal(t, []Principal{UserPrincipal("u-1"), AppPrincipal("reporting")}, principals)
	assert.Equal(t, "u-1", GetUserID(ctx))
	assert.Equal(t, "reporting", GetAppID(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))

	principals, _ = principalsFromMetadata(context.Background())
	assert.Empty(t, principals)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataUserID, ""))
	principals, _ = principalsFromMetadata(ctx)
	assert.Empty(t, principals)
}

// grpcService builds a service where anyone may read albums and only u-1
// may write them.
func grpcService() *Service {
	registry := NewRegistry()
	registry.DefineResource("Album").
		DefaultPermission(PermissionDeny).
		Allow(Everyone(), All, AccessRead).
		Allow(UserPrincipal("u-1"), All, AccessWrite)
	return NewService(registry, NewMemoryStore())
}

func incomingUserContext(userID string) context.Context {
	return metadata.NewIncomingContext(context.Background(),
		metadata.Pairs(MetadataUserID, userID))
}

// TestUnaryServerInterceptor tests per-call authorization for unary RPCs
func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := UnaryServerInterceptor(grpcService(), "Album")

	var handlerCtx context.Context
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCtx = ctx
		return "ok", nil
	}

	getInfo := &grpc.UnaryServerInfo{FullMethod: "/music.AlbumService/GetAlbum"}
	createInfo := &grpc.UnaryServerInfo{FullMethod: "/music.AlbumService/CreateAlbum"}

	// Anonymous reads pass through the $everyone rule.
	resp, err := interceptor(context.Background(), nil, getInfo, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	require.NotNil(t, GetChecker(handlerCtx))
	decision, ok := GetDecision(handlerCtx)
	require.True(t, ok)
	assert.Equal(t, PermissionAllow, decision.Permission)

	// Anonymous writes are asked to authenticate.
	_, err = interceptor(context.Background(), nil, createInfo, handler)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Contains(t, err.Error(), "authentication required")

	// An authorized user writes.
	resp, err = interceptor(incomingUserContext("u-1"), nil, createInfo, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "u-1", GetUserID(handlerCtx))

	// An authenticated but unauthorized user is denied.
	_, err = interceptor(incomingUserContext("u-2"), nil, createInfo, handler)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Contains(t, err.Error(), "CreateAlbum")
}

// TestUnaryServerInterceptorInvalidResource tests the invalid argument
// mapping
func TestUnaryServerInterceptorInvalidResource(t *testing.T) {
	interceptor := UnaryServerInterceptor(grpcService(), "")

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/music.AlbumService/GetAlbum"}, handler)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// fakeServerStream hands a fixed context to the interceptor under test.
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context {
	return s.ctx
}

// TestStreamServerInterceptor tests per-call authorization for streaming
// RPCs
func TestStreamServerInterceptor(t *testing.T) {
	interceptor := StreamServerInterceptor(grpcService(), "Album")

	var handlerCtx context.Context
	handler := func(srv interface{}, stream grpc.ServerStream) error {
		handlerCtx = stream.Context()
		return nil
	}

	listInfo := &grpc.StreamServerInfo{FullMethod: "/music.AlbumService/ListAlbums"}
	deleteInfo := &grpc.StreamServerInfo{FullMethod: "/music.AlbumService/DeleteAlbum"}

	stream := &fakeServerStream{ctx: context.Background()}
	require.NoError(t, interceptor(nil, stream, listInfo, handler))
	require.NotNil(t, GetChecker(handlerCtx))

	err := interceptor(nil, &fakeServerStream{ctx: context.Background()}, deleteInfo, handler)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = interceptor(nil, &fakeServerStream{ctx: incomingUserContext("u-2")}, deleteInfo, handler)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}
