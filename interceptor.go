package aclkit

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Metadata keys read by the gRPC interceptors. The authentication layer in
// front of the server is expected to have verified them.
const (
	MetadataUserID    = "x-user-id"
	MetadataAppID     = "x-app-id"
	MetadataRequestID = "x-request-id"
)

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that checks
// every call against the rules for the given resource. The RPC method name
// becomes the property and the access kind comes from the registry's
// method mapping, so a rule on ("Album", "*", WRITE) covers AlbumService
// mutations without naming each RPC.
//
// Calls without principals are evaluated as anonymous, so rules targeting
// $everyone and $unauthenticated still apply.
//
// Example:
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(aclkit.UnaryServerInterceptor(service, "Album")),
//	)
func UnaryServerInterceptor(service *Service, resource string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := authorizeCall(ctx, service, resource, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor mirroring
// UnaryServerInterceptor for streaming RPCs.
func StreamServerInterceptor(service *Service, resource string) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authorizeCall(ss.Context(), service, resource, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// authorizeCall resolves the permission for one RPC and returns the
// enriched context on success.
func authorizeCall(ctx context.Context, service *Service, resource, fullMethod string) (context.Context, error) {
	principals, ctx := principalsFromMetadata(ctx)
	method := methodName(fullMethod)

	checker := NewChecker(service, principals...)
	kind := service.Registry().AccessKindForMethod(resource, method)

	resolved, err := checker.Resolve(ctx, resource, "", method, kind)
	if err != nil {
		if IsInvalidRequest(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "access check failed")
	}
	if !resolved.Allowed() {
		if checker.IsAnonymous() {
			return nil, status.Errorf(codes.Unauthenticated, "authentication required for %s", fullMethod)
		}
		return nil, status.Errorf(codes.PermissionDenied, "permission denied for %s on %s", method, resource)
	}

	ctx = WithChecker(ctx, checker)
	ctx = WithDecision(ctx, resolved)
	return ctx, nil
}

// principalsFromMetadata reads authenticated identities from incoming
// metadata and stores them in the context for downstream handlers.
func principalsFromMetadata(ctx context.Context) ([]Principal, context.Context) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, ctx
	}

	var principals []Principal
	if values := md.Get(MetadataUserID); len(values) > 0 && values[0] != "" {
		principals = append(principals, UserPrincipal(values[0]))
		ctx = WithUserID(ctx, values[0])
	}
	if values := md.Get(MetadataAppID); len(values) > 0 && values[0] != "" {
		principals = append(principals, AppPrincipal(values[0]))
		ctx = WithAppID(ctx, values[0])
	}
	if values := md.Get(MetadataRequestID); len(values) > 0 && values[0] != "" {
		ctx = WithRequestID(ctx, values[0])
	}
	return principals, ctx
}

// methodName extracts the bare method from a gRPC full method name, e.g.
// "/music.AlbumService/CreateAlbum" yields "CreateAlbum".
func methodName(fullMethod string) string {
	if idx := strings.LastIndex(fullMethod, "/"); idx >= 0 {
		return fullMethod[idx+1:]
	}
	return fullMethod
}

// wrappedServerStream carries the enriched context to the handler.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
