package trace

import (
	"context"
	"log/slog"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// InferenceInterceptor opens a child span for every call to the inference
// server and sends its ids as metadata, so the server's logs line up with the
// worker cycle that made the call. The span is logged at debug level with the
// method name and status code. Calls made outside a cycle start their own trace.
func InferenceInterceptor(log *slog.Logger) grpc.UnaryClientInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, span := StartSpan(ctx, "inference")
		span.SetAttr("method", path.Base(method))

		err := invoker(outgoing(ctx, span.Ctx), method, req, reply, cc, opts...)

		span.SetAttr("code", status.Code(err).String())
		span.EndAndLog(log, "inference call")
		return err
	}
}

// outgoing copies tc into the outgoing metadata of ctx.
func outgoing(ctx context.Context, tc Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}

	md.Set(TraceIDKey, tc.TraceID)
	md.Set(SpanIDKey, tc.SpanID)
	if tc.ParentSpanID != "" {
		md.Set(ParentSpanIDKey, tc.ParentSpanID)
	}
	return metadata.NewOutgoingContext(ctx, md)
}
