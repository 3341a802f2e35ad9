package middleware

import (
	"context"
	"log/slog"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// FallbackSubtype marks the result message synthesized by Fallback.
const FallbackSubtype = "fallback"

// MetaFallbackError is the metadata key holding the error Fallback absorbed.
const MetaFallbackError = "fallback_error"

// Fallback turns a failure in the rest of the chain into a canned answer.
//
// This is the one place an error is deliberately swallowed: the caller sees
// a successful response whose result message has IsError set and Subtype
// FallbackSubtype. Failures that happen while the stream is consumed are not
// affected.
func Fallback(log *slog.Logger, text string) interceptor.Interceptor {
	log = log.With("component", "middleware", "interceptor", "fallback")

	return interceptor.Interceptor{
		Name: "fallback",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			resp, err := next(ctx, req, ictx)
			if err == nil {
				return resp, nil
			}

			if ctx.Err() != nil {
				return resp, err
			}

			log.Warn("Serving fallback response", "correlation_id", ictx.CorrelationID, "error", err)
			ictx.Set(MetaFallbackError, err.Error())

			return interceptor.Response{
				Messages: replay([]message.Message{
					&message.AssistantMessage{Content: []message.ContentBlock{&message.TextBlock{Text: text}}},
					&message.ResultMessage{Subtype: FallbackSubtype, Content: text, IsError: true},
				}),
				Metadata: &interceptor.ResponseMetadata{Model: FallbackSubtype},
			}, nil
		},
	}
}
