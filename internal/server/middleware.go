package server

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	maxParamLogLen       = 200
	slowRequestThreshold = 5 * time.Second
)

// LoggingMiddleware logs every MCP request with its duration. Requests
// slower than slowRequestThreshold are logged at warn level.
func LoggingMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		result, err := next(ctx, method, req)
		elapsed := time.Since(start)

		fields := []zap.Field{
			zap.String("method", method),
			zap.Duration("elapsed", elapsed),
		}
		if params := formatParams(req); params != "" {
			fields = append(fields, zap.String("params", truncate(params, maxParamLogLen)))
		}

		switch {
		case err != nil:
			zap.L().Error("server: request failed", append(fields, zap.Error(err))...)
		case elapsed > slowRequestThreshold:
			zap.L().Warn("server: slow request", fields...)
		default:
			zap.L().Debug("server: request complete", fields...)
		}
		return result, err
	}
}

func formatParams(req mcp.Request) string {
	if req == nil {
		return ""
	}
	params := req.GetParams()
	if params == nil {
		return ""
	}
	return fmt.Sprintf("%+v", params)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n < 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
