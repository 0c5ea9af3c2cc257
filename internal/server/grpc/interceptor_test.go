package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (c *captureLogger) add(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, level+":"+msg)
}

func (c *captureLogger) Debug(_ context.Context, msg string, _ ...any) { c.add("debug", msg) }
func (c *captureLogger) Info(_ context.Context, msg string, _ ...any)  { c.add("info", msg) }
func (c *captureLogger) Warn(_ context.Context, msg string, _ ...any)  { c.add("warn", msg) }
func (c *captureLogger) Error(_ context.Context, msg string, _ ...any) { c.add("error", msg) }
func (c *captureLogger) With(...any) logging.Logger                    { return c }

func TestInterceptor_PassesThrough(t *testing.T) {
	l := &captureLogger{}
	s := &GRPCServer{logger: l}

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if len(l.entries) != 1 || l.entries[0] != "debug:gRPC call" {
		t.Fatalf("unexpected log entries: %v", l.entries)
	}
}

func TestInterceptor_LogsFailures(t *testing.T) {
	l := &captureLogger{}
	s := &GRPCServer{logger: l}

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	_, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound to pass through, got %v", err)
	}
	if len(l.entries) != 1 || l.entries[0] != "warn:gRPC call failed" {
		t.Fatalf("unexpected log entries: %v", l.entries)
	}
}
