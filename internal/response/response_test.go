package response

import (
	"context"
	stderrors "errors"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// countingSource serves a fixed stream and counts how often it is started
// and how many elements were pulled.
type countingSource struct {
	msgs   []message.Message
	err    error
	starts atomic.Int32
	pulled atomic.Int32
}

func (s *countingSource) source() (iter.Seq2[message.Message, error], error) {
	s.starts.Add(1)

	return func(yield func(message.Message, error) bool) {
		for _, m := range s.msgs {
			s.pulled.Add(1)

			if !yield(m, nil) {
				return
			}
		}

		if s.err != nil {
			yield(nil, s.err)
		}
	}, nil
}

func newResponse(src *countingSource, opts ...Option) *Response {
	return New(slog.New(slog.DiscardHandler), src.source, opts...)
}

func text(s string) *message.TextBlock { return &message.TextBlock{Text: s} }

func helloStream() []message.Message {
	return []message.Message{
		&message.AssistantMessage{Content: []message.ContentBlock{text("Hello")}, SessionID: "s1"},
		&message.ResultMessage{
			Subtype:   "success",
			Content:   "Hello",
			SessionID: "s1",
			Usage:     &message.Usage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 2},
			Cost:      message.Cost{TotalUSD: 0.01},
		},
	}
}

func TestResponse_HelloScenario(t *testing.T) {
	t.Parallel()

	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	got, err := resp.Text()
	require.NoError(t, err)
	require.Equal(t, "Hello", got)

	require.Equal(t, "s1", resp.SessionID())

	cost, err := resp.Cost()
	require.NoError(t, err)
	require.InDelta(t, 0.01, cost, 1e-9)

	result, err := resp.Result()
	require.NoError(t, err)
	require.Equal(t, "Hello", result)

	require.True(t, resp.Success())
	require.Equal(t, int32(1), src.starts.Load(), "every view reads the same single pass")
	require.Equal(t, int32(2), src.pulled.Load())
}

func TestResponse_NotStartedUntilViewed(t *testing.T) {
	t.Parallel()

	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	require.Zero(t, src.starts.Load())

	_, err := resp.Messages()
	require.NoError(t, err)
	require.Equal(t, int32(1), src.starts.Load())
}

func TestResponse_ConcurrentViewsDrainOnce(t *testing.T) {
	t.Parallel()

	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	var wg sync.WaitGroup

	for range 16 {
		wg.Go(func() {
			got, err := resp.Text()
			if err != nil || got != "Hello" {
				t.Errorf("Text() = %q, %v", got, err)
			}
		})
	}

	wg.Wait()
	require.Equal(t, int32(1), src.starts.Load())
}

func TestResponse_ErrorIsSticky(t *testing.T) {
	t.Parallel()

	procErr := &errors.ProcessError{ExitCode: 1, Stderr: "bad"}
	src := &countingSource{msgs: helloStream()[:1], err: procErr}
	resp := newResponse(src)

	got, err := resp.Text()
	require.ErrorIs(t, err, procErr)
	require.Equal(t, "Hello", got, "messages before the failure stay available")

	require.False(t, resp.Success())
	require.ErrorIs(t, resp.Err(), procErr)
	require.Equal(t, "s1", resp.SessionID())
	require.Equal(t, int32(1), src.starts.Load())
}

func TestResponse_SourceError(t *testing.T) {
	t.Parallel()

	boom := stderrors.New("spawn failed")
	resp := Failed(slog.New(slog.DiscardHandler), boom)

	msgs, err := resp.Messages()
	require.Empty(t, msgs)
	require.ErrorIs(t, err, boom)
	require.Empty(t, resp.SessionID())
}

func TestResponse_PlainContextErrorBecomesCancellation(t *testing.T) {
	t.Parallel()

	resp := newResponse(&countingSource{err: context.Canceled})

	err := resp.Err()
	require.Equal(t, errors.KindCancellation, errors.KindOf(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestResponse_Stream(t *testing.T) {
	t.Parallel()

	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	var seen []string

	err := resp.Stream(func(msg message.Message) error {
		seen = append(seen, msg.MessageType())

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"assistant", "result"}, seen)

	seen = nil

	require.NoError(t, resp.Stream(func(msg message.Message) error {
		seen = append(seen, msg.MessageType())

		return nil
	}))
	require.Equal(t, []string{"assistant", "result"}, seen, "replayed from cache")
	require.Equal(t, int32(1), src.starts.Load())
}

func TestResponse_StreamCallbackErrorStopsConsumption(t *testing.T) {
	t.Parallel()

	stop := stderrors.New("enough")
	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	err := resp.Stream(func(message.Message) error { return stop })
	require.ErrorIs(t, err, stop)

	require.Equal(t, int32(1), src.pulled.Load())
	require.ErrorIs(t, resp.Err(), stop)
	require.False(t, resp.Success())

	msgs, _ := resp.Messages()
	require.Len(t, msgs, 1)
}

func TestResponse_OnDrained(t *testing.T) {
	t.Parallel()

	t.Run("runs once after a clean drain", func(t *testing.T) {
		calls := 0

		resp := newResponse(&countingSource{msgs: helloStream()}, WithOnDrained(func(msgs []message.Message) {
			calls++

			require.Len(t, msgs, 2)
		}))

		require.Equal(t, "s1", resp.SessionID())
		_, _ = resp.Text()
		_ = resp.Stream(func(message.Message) error { return nil })

		require.Equal(t, 1, calls)
	})

	t.Run("skipped on error", func(t *testing.T) {
		calls := 0

		resp := newResponse(
			&countingSource{msgs: helloStream(), err: stderrors.New("late failure")},
			WithOnDrained(func([]message.Message) { calls++ }),
		)

		require.Error(t, resp.Err())
		require.Zero(t, calls)
	})
}

func TestResponse_NilMessagesSkipped(t *testing.T) {
	t.Parallel()

	resp := newResponse(&countingSource{msgs: []message.Message{nil, helloStream()[0], nil}})

	msgs, err := resp.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestResponse_SessionIDAbsent(t *testing.T) {
	t.Parallel()

	resp := newResponse(&countingSource{msgs: []message.Message{
		&message.AssistantMessage{Content: []message.ContentBlock{text("no session")}},
	}})

	require.Empty(t, resp.SessionID())
}

func TestResponse_SessionIDFromSystemMessage(t *testing.T) {
	t.Parallel()

	resp := newResponse(&countingSource{msgs: []message.Message{
		&message.SystemMessage{Subtype: "init", SessionID: "sys"},
		&message.ResultMessage{SessionID: "later"},
	}})

	require.Equal(t, "sys", resp.SessionID())
}

func TestResponse_ViewsInsideStreamCallback(t *testing.T) {
	t.Parallel()

	src := &countingSource{msgs: helloStream()}
	resp := newResponse(src)

	var (
		ids    []string
		counts []int
	)

	err := resp.Stream(func(message.Message) error {
		ids = append(ids, resp.SessionID())

		msgs, err := resp.Messages()
		require.ErrorIs(t, err, errors.ErrStreamInProgress)

		counts = append(counts, len(msgs))

		require.ErrorIs(t, resp.Stream(func(message.Message) error { return nil }), errors.ErrStreamInProgress)

		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []string{"s1", "s1"}, ids)
	require.Equal(t, []int{1, 2}, counts, "each view sees the messages delivered so far")

	got, err := resp.Text()
	require.NoError(t, err)
	require.Equal(t, "Hello", got)
	require.True(t, resp.Success())
	require.Equal(t, int32(1), src.starts.Load())
}
