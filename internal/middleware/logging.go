package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs one line per RPC. Caller mistakes log at warn,
// internal failures at error.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if caller, ok := CallerFrom(ctx); ok {
				attrs = append(attrs, "user_id", caller.UserID)
			}

			if err == nil {
				logger.InfoContext(ctx, "RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code)
			var connectErr *connect.Error
			if errors.As(err, &connectErr) && code != connect.CodeInternal && code != connect.CodeUnknown {
				logger.WarnContext(ctx, "RPC rejected", append(attrs, "error", connectErr.Message())...)
			} else {
				logger.ErrorContext(ctx, "RPC failed", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}
