package middleware

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/SinaHo/fyra-signin-backend/internal/token"
)

// ErrUnauthenticated is returned when no or invalid token is provided.
var ErrUnauthenticated = status.Errorf(codes.Unauthenticated, "unauthenticated")

type ctxKey struct{}

// Caller is the authenticated account behind a request.
type Caller struct {
	UID   string
	Email string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// CallerFromContext returns the caller set by AuthInterceptor.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}

// IDTokenParser verifies ID tokens.
type IDTokenParser interface {
	ParseIDToken(tok string) (*token.IDClaims, error)
}

// AuthInterceptor returns a unary interceptor that requires a valid ID token
// on the protected methods. Other methods pass through untouched.
func AuthInterceptor(logger *zap.SugaredLogger, tokens IDTokenParser, protected ...string) grpc.UnaryServerInterceptor {
	guarded := make(map[string]struct{}, len(protected))
	for _, m := range protected {
		guarded[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := guarded[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			logger.Warn("Missing metadata in context")
			return nil, ErrUnauthenticated
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			logger.Warn("No authorization header provided")
			return nil, ErrUnauthenticated
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeaders[0], "Bearer "))
		if tokenString == "" {
			logger.Warn("Empty bearer token")
			return nil, ErrUnauthenticated
		}

		claims, err := tokens.ParseIDToken(tokenString)
		if err != nil {
			logger.Warnw("Invalid token", "method", info.FullMethod, "error", err)
			return nil, ErrUnauthenticated
		}

		ctx = WithCaller(ctx, Caller{UID: claims.UID(), Email: claims.Email})
		return handler(ctx, req)
	}
}
