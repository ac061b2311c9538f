// Package kit holds the transport-neutral endpoint plumbing shared by the
// HTTP and MCP surfaces.
package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/docharvest/idgen"
)

// Endpoint is one operation, independent of the transport serving it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// NewRequestID returns a time-ordered request identifier.
func NewRequestID() string { return idgen.New() }

// RequestIDMiddleware ensures the context carries a request ID.
func RequestIDMiddleware() Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			if GetRequestID(ctx) == "" {
				ctx = WithRequestID(ctx, NewRequestID())
			}
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs each call with its duration and outcome.
func LoggingMiddleware(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint done", attrs...)
			}
			return resp, err
		}
	}
}
