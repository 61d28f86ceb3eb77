package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func UnaryLoggingInterceptor(logger *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		code := status.Code(err)
		fields := []interface{}{
			"method", info.FullMethod,
			"duration", duration,
			"code", code.String(),
		}
		if err != nil {
			logger.Warnw("gRPC call failed", append(fields, "error", err)...)
			return resp, err
		}
		logger.Infow("gRPC call", fields...)
		return resp, err
	}
}

// UnaryRecoveryInterceptor turns a handler panic into an Internal status.
func UnaryRecoveryInterceptor(logger *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic in gRPC handler", "method", info.FullMethod, "panic", r, zap.Stack("stack"))
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
