// Package middleware holds the cross-cutting Fiber middleware: request
// logging, rate limiting and Prometheus instrumentation.
package middleware

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger, JSON on stdout.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// StructuredLogger emits one slog line per request after it completes,
// tagged with the request ID and, once authentication has run, the
// acting user.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get("User-Agent")),
		}
		if rid := c.Locals("requestid"); rid != nil {
			attrs = append(attrs, slog.Any("request_id", rid))
		}
		if uid := c.Locals("userID"); uid != nil {
			attrs = append(attrs, slog.Any("user_id", uid))
		}

		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			Logger.Error("request failed", attrs...)
		case status >= fiber.StatusInternalServerError:
			Logger.Error("request errored", attrs...)
		default:
			Logger.Info("request completed", attrs...)
		}

		return err
	}
}
