package middleware

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeAgent is a terminal handler serving a fixed stream.
type fakeAgent struct {
	msgs  []message.Message
	err   error // returned before streaming
	tail  error // yielded after msgs
	calls atomic.Int32
	seen  atomic.Pointer[interceptor.Request]
}

func (a *fakeAgent) handle(_ context.Context, req interceptor.Request, _ *interceptor.Context) (interceptor.Response, error) {
	a.calls.Add(1)
	a.seen.Store(&req)

	if a.err != nil {
		return interceptor.Response{}, a.err
	}

	return interceptor.Response{Messages: func(yield func(message.Message, error) bool) {
		for _, m := range a.msgs {
			if !yield(m, nil) {
				return
			}
		}

		if a.tail != nil {
			yield(nil, a.tail)
		}
	}}, nil
}

func helloAgent() *fakeAgent {
	return &fakeAgent{msgs: []message.Message{
		&message.AssistantMessage{
			Content:   []message.ContentBlock{&message.TextBlock{Text: "Hello there"}},
			SessionID: "s1",
		},
		&message.ResultMessage{
			Subtype:   "success",
			Content:   "Hello there",
			SessionID: "s1",
			Usage:     &message.Usage{InputTokens: 20, OutputTokens: 3},
			Cost:      message.Cost{TotalUSD: 0.002},
		},
	}}
}

func newRequest(prompt string) interceptor.Request {
	return interceptor.Request{Prompt: prompt, Options: &config.Options{}}
}

// outcome is one request run through a chain and fully drained.
type outcome struct {
	resp interceptor.Response
	ictx *interceptor.Context
	msgs []message.Message
	err  error // chain or stream error
}

// run executes req through a chain of ics in front of agent and drains the
// stream.
func run(agent *fakeAgent, req interceptor.Request, ics ...interceptor.Interceptor) outcome {
	var out outcome

	capture := interceptor.Interceptor{
		Name: "capture",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			out.ictx = ictx

			return next(ctx, req, ictx)
		},
	}

	chain := interceptor.New(discard(), interceptor.Config{
		Interceptors: append([]interceptor.Interceptor{capture}, ics...),
	})

	resp, err := chain.Execute(context.Background(), req, agent.handle)
	out.resp = resp

	if err != nil {
		out.err = err

		return out
	}

	out.msgs, out.err = drain(resp.Messages)

	return out
}

func drain(seq iter.Seq2[message.Message, error]) ([]message.Message, error) {
	var out []message.Message

	for msg, err := range seq {
		if err != nil {
			return out, err
		}

		out = append(out, msg)
	}

	return out, nil
}
