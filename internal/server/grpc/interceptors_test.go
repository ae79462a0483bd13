package grpcserver

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f fakeStream) Context() context.Context { return f.ctx }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	ic := LoggingUnary(zaptest.NewLogger(t))
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := ic(ctx, "req", info, func(context.Context, any) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	_, err = ic(ctx, "req", info, func(context.Context, any) (any, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	ic := RecoverUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := ic(context.Background(), "req", info, func(context.Context, any) (any, error) { panic("oh no") })
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}

	resp, err := ic(context.Background(), "req", info, func(context.Context, any) (any, error) { return 42, nil })
	if err != nil || resp.(int) != 42 {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
}

func TestStreamInterceptors(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ss := fakeStream{ctx: peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})}
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch", IsServerStream: true}

	err := RecoverStream(log)(nil, ss, info, func(any, grpc.ServerStream) error { panic("stream") })
	if status.Code(err) != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}

	wantErr := status.Error(codes.Unavailable, "gone")
	err = LoggingStream(log)(nil, ss, info, func(any, grpc.ServerStream) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}
