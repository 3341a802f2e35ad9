package middleware

import (
	"context"
	"log/slog"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// Logging logs the request and the lifecycle of its response stream.
func Logging(log *slog.Logger) interceptor.Interceptor {
	log = log.With("component", "middleware", "interceptor", "logging")

	return interceptor.Interceptor{
		Name: "logging",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			reqLog := log.With(
				"correlation_id", ictx.CorrelationID,
				"request_id", ictx.RequestID,
			)

			reqLog.Info("Query started",
				"model", requestModel(req),
				"session_id", ictx.SessionID,
				"prompt_bytes", len(req.Prompt),
			)

			resp, err := next(ctx, req, ictx)
			if err != nil {
				reqLog.Warn("Query failed before streaming", "error", err)

				return resp, err
			}

			var count int

			resp.Messages = observe(resp.Messages,
				func(msg message.Message) {
					count++

					reqLog.Debug("Message received", "type", msg.MessageType(), "index", count)
				},
				func(err error, complete bool) {
					switch {
					case err != nil:
						reqLog.Warn("Response stream failed", "messages", count, "error", err)
					case !complete:
						reqLog.Info("Response stream abandoned", "messages", count)
					default:
						reqLog.Info("Response stream finished", "messages", count)
					}
				},
			)

			return resp, nil
		},
	}
}
