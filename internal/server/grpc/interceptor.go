package grpc

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// metadataRequest exposes incoming metadata to the gate. Cookies arrive as
// "cookie" entries in HTTP header syntax.
func metadataRequest(md metadata.MD) gate.Request {
	return gate.Request{
		Cookie: func(name string) (string, bool) {
			values := md.Get("cookie")
			if len(values) == 0 {
				return "", false
			}
			r := http.Request{Header: http.Header{"Cookie": values}}
			c, err := r.Cookie(name)
			if err != nil {
				return "", false
			}
			return c.Value, true
		},
		Header: func(name string) string {
			if values := md.Get(name); len(values) > 0 {
				return values[0]
			}
			return ""
		},
	}
}

// sessionInterceptor resolves the caller's session, if any, and stores it in
// the context. Handlers decide whether a session is required.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if sess := s.auth.ResolveSession(ctx, metadataRequest(md)); sess != nil {
			ctx = gate.WithSession(ctx, sess)
		}
	}
	return handler(ctx, req)
}
