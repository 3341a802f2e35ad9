package interceptor

import (
	"context"
	"iter"
	"time"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// Handler produces the response for a request. The terminal handler runs
// the agent process; every interceptor sees the rest of the chain as a Handler.
type Handler func(ctx context.Context, req Request, ictx *Context) (Response, error)

// Func is the body of an interceptor.
type Func func(ctx context.Context, req Request, ictx *Context, next Handler) (Response, error)

// Interceptor is a named stage of the chain. An empty Name is reported as
// "interceptor[i]" using the stage's position.
type Interceptor struct {
	Name      string
	Intercept Func
}

// Config configures a Chain.
type Config struct {
	// Interceptors in outermost-first order.
	Interceptors []Interceptor

	// Debug logs stage entry and exit at Info instead of Debug.
	Debug bool

	// Timeout bounds the time the chain may take to produce a response.
	// Zero disables the limit.
	Timeout time.Duration

	// MaxContextSize bounds len(prompt) plus the JSON size of the context
	// metadata, checked before every stage. Zero disables the limit.
	MaxContextSize int
}

// Request is the outbound half of an invocation.
type Request struct {
	// Prompt is the text sent to the agent. Interceptors may rewrite it.
	Prompt string

	// OriginalPrompt is the prompt as the caller wrote it.
	OriginalPrompt string

	Options *config.Options
}

// Clone returns a copy whose Options can be modified independently.
func (r Request) Clone() Request {
	r.Options = r.Options.Clone()

	return r
}

// Response is what the chain hands back to the caller.
type Response struct {
	// Messages is the lazy, single-use message stream.
	Messages iter.Seq2[message.Message, error]

	Metadata *ResponseMetadata
}

// ResponseMetadata carries facts interceptors learned about the response.
type ResponseMetadata struct {
	Model      string
	TokenCount int
	Latency    time.Duration
	CacheHit   bool
}
