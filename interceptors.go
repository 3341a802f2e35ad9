package claudepipe

import (
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/middleware"
)

// Interceptor is a named stage of the query chain.
type Interceptor = interceptor.Interceptor

// InterceptorFunc is the body of an interceptor. It must call next at most once.
type InterceptorFunc = interceptor.Func

// Handler is the rest of the chain as seen by an interceptor.
type Handler = interceptor.Handler

// InterceptorConfig configures the chain.
type InterceptorConfig = interceptor.Config

// InterceptorRequest is the request passed along the chain.
type InterceptorRequest = interceptor.Request

// InterceptorResponse is the response passed back along the chain.
type InterceptorResponse = interceptor.Response

// InterceptorContext is the per-invocation state shared by every stage.
type InterceptorContext = interceptor.Context

// Classification is the routing hint set by ClassifyInterceptor.
type Classification = interceptor.Classification

// ResponseMetadata carries facts interceptors learned about a response.
type ResponseMetadata = interceptor.ResponseMetadata

type (
	// TokenCounter estimates token counts for TokenCountInterceptor.
	TokenCounter = middleware.TokenCounter
	// ResponseCache backs CacheInterceptor.
	ResponseCache = middleware.ResponseCache
	// Router chooses the model suggested by ClassifyInterceptor.
	Router = middleware.Router
)

// NewInterceptor names fn as a chain stage.
func NewInterceptor(name string, fn InterceptorFunc) Interceptor {
	return Interceptor{Name: name, Intercept: fn}
}

// LoggingInterceptor logs each query and its response stream.
func LoggingInterceptor(log *slog.Logger) Interceptor {
	return middleware.Logging(log)
}

// TracingInterceptor records an OpenTelemetry span per query.
func TracingInterceptor(tracer trace.Tracer) Interceptor {
	return middleware.Tracing(tracer)
}

// NewTokenCounter loads the tokenizer used for estimates.
func NewTokenCounter() (*TokenCounter, error) {
	return middleware.NewTokenCounter()
}

// TokenCountInterceptor reports token counts in the context metrics and
// response metadata.
func TokenCountInterceptor(counter *TokenCounter) Interceptor {
	return middleware.TokenCount(counter)
}

// NewResponseCache creates a cache; zero durations select the defaults.
func NewResponseCache(log *slog.Logger, ttl, cleanup time.Duration) *ResponseCache {
	return middleware.NewResponseCache(log, ttl, cleanup)
}

// CacheInterceptor answers repeated queries from cache.
func CacheInterceptor(cache *ResponseCache) Interceptor {
	return middleware.Cache(cache)
}

// ClassifyInterceptor classifies the prompt and suggests a model.
func ClassifyInterceptor(router Router) Interceptor {
	return middleware.Classify(router)
}

// RedactInterceptor removes secrets from the prompt before it is sent.
func RedactInterceptor(patterns ...*regexp.Regexp) Interceptor {
	return middleware.Redact(patterns...)
}

// FallbackInterceptor answers with text when the rest of the chain fails.
func FallbackInterceptor(log *slog.Logger, text string) Interceptor {
	return middleware.Fallback(log, text)
}
