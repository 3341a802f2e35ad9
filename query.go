package claudepipe

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
	"github.com/wagiedev/claude-pipeline-go/internal/response"
)

// Query sends prompt to the agent and returns a lazy view of its answer.
//
// Nothing runs until the first view (Text, Messages, Stream, ...) is read.
// The agent runs at most once; every view reads the same messages. ctx
// bounds the whole invocation, including the time views spend draining.
func Query(ctx context.Context, prompt string, opts ...Option) *Response {
	return run(ctx, prompt, applyOptions(opts))
}

// run builds the response for one invocation of prompt.
func run(ctx context.Context, prompt string, o *Options, respOpts ...response.Option) *Response {
	log := o.logger().With("component", "query")

	if o.err != nil {
		return response.Failed(log, o.err)
	}

	chain := interceptor.New(log, o.Interceptors)
	agentOptions := o.Options.Clone()

	source := func() (iter.Seq2[message.Message, error], error) {
		req := interceptor.Request{Prompt: prompt, Options: agentOptions}

		resp, err := chain.Execute(ctx, req, agentHandler(log))
		if err != nil {
			return nil, err
		}

		return resp.Messages, nil
	}

	return response.New(log, source, respOpts...)
}

// agentHandler is the terminal stage: it starts the agent process and
// normalizes its output.
func agentHandler(log *slog.Logger) interceptor.Handler {
	return func(ctx context.Context, req interceptor.Request, _ *interceptor.Context) (interceptor.Response, error) {
		newTransport := req.Options.NewTransport
		if newTransport == nil {
			newTransport = NewCLITransport
		}

		transport := newTransport(log, req.Prompt, req.Options)
		release := sync.OnceFunc(func() { disconnect(log, transport) })

		if err := transport.Connect(ctx); err != nil {
			release()

			return interceptor.Response{}, err
		}

		// The chain may abandon the response (timeout, cancellation) before
		// anyone iterates it.
		stop := context.AfterFunc(ctx, release)

		return interceptor.Response{
			Messages: normalize(ctx, log, transport, func() {
				stop()
				release()
			}),
			Metadata: &interceptor.ResponseMetadata{Model: req.Options.Model},
		}, nil
	}
}

// normalize turns transport records into messages. Records without a
// message form are skipped; an agent error record ends the stream. done
// runs when the stream ends.
func normalize(
	ctx context.Context,
	log *slog.Logger,
	transport Transport,
	done func(),
) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		defer done()

		for raw, err := range transport.ReceiveMessages(ctx) {
			if err != nil {
				yield(nil, err)

				return
			}

			msg, err := message.Normalize(raw)
			if err != nil {
				yield(nil, err)

				return
			}

			if msg == nil {
				log.Debug("Skipping record", "type", raw["type"])

				continue
			}

			if !yield(msg, nil) {
				return
			}
		}
	}
}

func disconnect(log *slog.Logger, transport Transport) {
	if err := transport.Disconnect(); err != nil {
		log.Warn("Failed to disconnect transport", "error", err)
	}
}
