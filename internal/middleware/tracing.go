package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// SpanQuery is the name of the span recorded for each query.
const SpanQuery = "claudepipe.query"

// Span attribute keys.
const (
	AttrCorrelationID = "claudepipe.correlation_id"
	AttrRequestID     = "claudepipe.request_id"
	AttrSessionID     = "claudepipe.session_id"
	AttrModel         = "claudepipe.model"
	AttrPromptBytes   = "claudepipe.prompt_bytes"
	AttrMessages      = "claudepipe.messages"
	AttrInputTokens   = "claudepipe.usage.input_tokens"
	AttrOutputTokens  = "claudepipe.usage.output_tokens"
	AttrCostUSD       = "claudepipe.cost_usd"
)

// Tracing records one span per query. The span covers the chain below this
// interceptor and stays open until the response stream ends.
//
// A nil tracer yields a pass-through interceptor.
func Tracing(tracer trace.Tracer) interceptor.Interceptor {
	if tracer == nil {
		return interceptor.Interceptor{
			Name: "tracing",
			Intercept: func(
				ctx context.Context,
				req interceptor.Request,
				ictx *interceptor.Context,
				next interceptor.Handler,
			) (interceptor.Response, error) {
				return next(ctx, req, ictx)
			},
		}
	}

	return interceptor.Interceptor{
		Name: "tracing",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			ctx, span := tracer.Start(ctx, SpanQuery, trace.WithSpanKind(trace.SpanKindClient))

			span.SetAttributes(
				attribute.String(AttrCorrelationID, ictx.CorrelationID),
				attribute.String(AttrRequestID, ictx.RequestID),
				attribute.String(AttrModel, requestModel(req)),
				attribute.Int(AttrPromptBytes, len(req.Prompt)),
			)

			if ictx.SessionID != "" {
				span.SetAttributes(attribute.String(AttrSessionID, ictx.SessionID))
			}

			resp, err := next(ctx, req, ictx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()

				return resp, err
			}

			var count int

			resp.Messages = observe(resp.Messages,
				func(msg message.Message) {
					count++

					result, ok := msg.(*message.ResultMessage)
					if !ok {
						return
					}

					span.SetAttributes(attribute.Float64(AttrCostUSD, result.Cost.TotalUSD))

					if result.SessionID != "" {
						span.SetAttributes(attribute.String(AttrSessionID, result.SessionID))
					}

					if result.Usage != nil {
						span.SetAttributes(
							attribute.Int(AttrInputTokens, result.Usage.InputTokens),
							attribute.Int(AttrOutputTokens, result.Usage.OutputTokens),
						)
					}
				},
				func(err error, _ bool) {
					span.SetAttributes(attribute.Int(AttrMessages, count))

					if err != nil {
						span.RecordError(err)
						span.SetStatus(codes.Error, err.Error())
					} else {
						span.SetStatus(codes.Ok, "")
					}

					span.End()
				},
			)

			return resp, nil
		},
	}
}
