package logger

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GrpcServerOptions returns the unary and stream logging interceptors as server options.
func GrpcServerOptions(logger *zap.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(NewGrpcUnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(NewGrpcStreamServerInterceptor(logger)),
	}
}

// NewGrpcUnaryServerInterceptor logs each unary call with its code and duration.
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logGrpcCall(logger, "gRPC request", info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// NewGrpcStreamServerInterceptor logs each stream with message counts.
func NewGrpcStreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		wrapped := &countingServerStream{ServerStream: ss}
		err := handler(srv, wrapped)
		logGrpcCall(logger, "gRPC stream", info.FullMethod, err, time.Since(start),
			zap.Bool("grpc.is_client_stream", info.IsClientStream),
			zap.Bool("grpc.is_server_stream", info.IsServerStream),
			zap.Int("grpc.recv_count", wrapped.recvCount),
			zap.Int("grpc.send_count", wrapped.sendCount),
		)
		return err
	}
}

func logGrpcCall(logger *zap.Logger, msg, fullMethod string, err error, d time.Duration, extra ...zap.Field) {
	code := status.Code(err)
	fields := append([]zap.Field{
		zap.String("grpc.service", path.Dir(fullMethod)[1:]),
		zap.String("grpc.method", path.Base(fullMethod)),
		zap.String("grpc.code", code.String()),
		zap.Duration("grpc.duration", d),
	}, extra...)

	switch code {
	case codes.OK:
		logger.Info(msg+" completed", fields...)
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable, codes.NotFound, codes.InvalidArgument:
		logger.Warn(msg+" failed", append(fields, zap.Error(err))...)
	default:
		logger.Error(msg+" errored", append(fields, zap.Error(err))...)
	}
}

type countingServerStream struct {
	grpc.ServerStream
	recvCount int
	sendCount int
}

func (w *countingServerStream) RecvMsg(m interface{}) error {
	err := w.ServerStream.RecvMsg(m)
	if err == nil {
		w.recvCount++
	}
	return err
}

func (w *countingServerStream) SendMsg(m interface{}) error {
	err := w.ServerStream.SendMsg(m)
	if err == nil {
		w.sendCount++
	}
	return err
}
