package claudepipe

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
)

// fakeTransport replays canned CLI records.
type fakeTransport struct {
	prompt  string
	options *config.Options

	records    []map[string]any
	connectErr error
	tail       error
	// hang keeps the stream open after the records until ctx is done.
	hang bool

	connects    atomic.Int32
	disconnects atomic.Int32
}

func (f *fakeTransport) Connect(context.Context) error {
	f.connects.Add(1)

	return f.connectErr
}

func (f *fakeTransport) ReceiveMessages(ctx context.Context) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for _, r := range f.records {
			if !yield(r, nil) {
				return
			}
		}

		if f.hang {
			<-ctx.Done()
			yield(nil, ctx.Err())

			return
		}

		if f.tail != nil {
			yield(nil, f.tail)
		}
	}
}

func (f *fakeTransport) Disconnect() error {
	f.disconnects.Add(1)

	return nil
}

// fakeCLI is a TransportFactory recording every invocation. script builds
// the transport for the n-th invocation (0-based).
type fakeCLI struct {
	mu     sync.Mutex
	runs   []*fakeTransport
	script func(n int) *fakeTransport
}

func (c *fakeCLI) factory(_ *slog.Logger, prompt string, options *config.Options) Transport {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.script(len(c.runs))
	t.prompt = prompt
	t.options = options
	c.runs = append(c.runs, t)

	return t
}

func (c *fakeCLI) invocations() []*fakeTransport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*fakeTransport(nil), c.runs...)
}

func replying(records ...map[string]any) *fakeCLI {
	return &fakeCLI{script: func(int) *fakeTransport {
		return &fakeTransport{records: records}
	}}
}

func assistantRecord(sessionID, text string) map[string]any {
	return map[string]any{
		"type":       "assistant",
		"session_id": sessionID,
		"message": map[string]any{
			"content": []any{map[string]any{"type": "text", "text": text}},
		},
	}
}

func resultRecord(sessionID, text string, cost float64) map[string]any {
	return map[string]any{
		"type":           "result",
		"subtype":        "success",
		"result":         text,
		"session_id":     sessionID,
		"total_cost_usd": cost,
		"usage":          map[string]any{"input_tokens": float64(10), "output_tokens": float64(2)},
	}
}
