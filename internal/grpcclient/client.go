// Package grpcclient talks to the inference server that hosts the remote
// recognizer and translator. Messages are protobuf well-known types so no
// generated stubs are needed on this side.
package grpcclient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/resilience"
	"github.com/GriffinCanCode/screenlingo/internal/trace"
)

// Config holds connection settings.
type Config struct {
	Addr             string
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	CallTimeout      time.Duration
	Retry            resilience.RetryConfig
}

// DefaultConfig returns settings for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:             addr,
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		CallTimeout:      DefaultCallTimeout,
		Retry:            resilience.InferenceRetryConfig(),
	}
}

// Client wraps the inference connection
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	cfg    Config
}

// New creates a client. The connection is established lazily; call Check to
// fail fast when the server is missing.
func New(cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithUnaryInterceptor(trace.InferenceInterceptor(slog.Default().With("component", "inference"))),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Addr, dialOpts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "dial inference server").
			WithMetadata("addr", cfg.Addr)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn), cfg: cfg}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Check asks the standard health service whether the server is serving.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "inference health check").
			WithMetadata("addr", c.cfg.Addr)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.Unavailable, "inference server is %s", resp.GetStatus()).
			WithMetadata("addr", c.cfg.Addr)
	}
	return nil
}

// ExtractText sends a PNG-encoded image for recognition.
func (c *Client) ExtractText(ctx context.Context, png []byte) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, RecognizeMethod, wrapperspb.Bytes(png), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Translate translates text from src to dst.
func (c *Client) Translate(ctx context.Context, text, src, dst string) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		FieldText:   text,
		FieldSource: src,
		FieldTarget: dst,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "build translate request")
	}
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, TranslateMethod, in, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message) error {
	err := resilience.Retry(ctx, c.cfg.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
		return c.conn.Invoke(callCtx, method, in, out)
	})
	if err == nil {
		return nil
	}
	return toAppError(err).WithMetadata("method", method)
}

func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.Cancelled, "call cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.Timeout, "call timed out")
	}
	return apperrors.FromGRPCError(err)
}
