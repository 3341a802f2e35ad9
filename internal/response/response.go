package response

import (
	"context"
	stderrors "errors"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// Source starts the invocation and returns its message stream. It is called
// at most once per Response.
type Source func() (iter.Seq2[message.Message, error], error)

// Option configures a Response.
type Option func(*Response)

// WithOnDrained registers fn to run once after the stream has been fully
// consumed without error. fn receives the cached messages and must not call
// back into the Response.
func WithOnDrained(fn func(msgs []message.Message)) Option {
	return func(r *Response) {
		r.onDrained = append(r.onDrained, fn)
	}
}

// Response is the memoized view over one invocation's messages.
// It is safe for concurrent use.
type Response struct {
	log    *slog.Logger
	source Source

	mu        sync.Mutex
	started   bool
	streaming bool
	messages  []message.Message
	err       error
	onDrained []func([]message.Message)
}

// New creates a Response that will pull from source on first use.
func New(log *slog.Logger, source Source, opts ...Option) *Response {
	r := &Response{
		log:    log.With("component", "response"),
		source: source,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Failed returns a Response whose stream failed before producing anything.
func Failed(log *slog.Logger, err error) *Response {
	return New(log, func() (iter.Seq2[message.Message, error], error) {
		return nil, err
	})
}

// Stream drives consumption, calling fn for each message as it arrives.
// If fn returns an error consumption stops and that error becomes the
// response's terminal error. Once the stream has been drained Stream replays
// the cache instead.
//
// fn runs without the response lock held. Views called while Stream is
// still delivering (from fn or from another goroutine) see the messages
// delivered so far and report errors.ErrStreamInProgress.
func (r *Response) Stream(fn func(message.Message) error) error {
	r.mu.Lock()

	if r.streaming {
		r.mu.Unlock()

		return errors.ErrStreamInProgress
	}

	if !r.started {
		r.started = true
		r.streaming = true
		r.mu.Unlock()

		return r.deliver(fn)
	}

	msgs, err := r.messages, r.err
	r.mu.Unlock()

	for _, msg := range msgs {
		if err := fn(msg); err != nil {
			return err
		}
	}

	return err
}

// deliver pulls the stream, handing each message to fn outside the lock.
func (r *Response) deliver(fn func(message.Message) error) error {
	err := r.pull(func(msg message.Message) error {
		r.mu.Lock()
		r.append(msg)
		r.mu.Unlock()

		return fn(msg)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	r.streaming = false
	r.finish(err)

	return r.err
}

// Messages returns every message of the stream and the terminal error, if any.
func (r *Response) Messages() ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.streaming {
		return slices.Clone(r.messages), errors.ErrStreamInProgress
	}

	r.ensure()

	return slices.Clone(r.messages), r.err
}

// Err drains the stream and returns its terminal error.
func (r *Response) Err() error {
	_, err := r.Messages()

	return err
}

// Success reports whether the stream drained without error.
func (r *Response) Success() bool {
	return r.Err() == nil
}

// SessionID returns the first session identifier carried by any message,
// or "" when none was present.
func (r *Response) SessionID() string {
	msgs, _ := r.Messages()

	for _, msg := range msgs {
		if id := message.SessionIDOf(msg); id != "" {
			return id
		}
	}

	return ""
}

// ensure drains the stream if nothing has started it yet. Callers hold mu.
func (r *Response) ensure() {
	if r.started {
		return
	}

	r.started = true
	r.finish(r.pull(func(msg message.Message) error {
		r.append(msg)

		return nil
	}))
}

// pull runs the source once, passing every non-nil message to emit. It
// returns the error that ended the stream, if any.
func (r *Response) pull(emit func(message.Message) error) error {
	seq, err := r.source()
	if err != nil {
		return err
	}

	if seq == nil {
		return nil
	}

	for msg, err := range seq {
		if err != nil {
			return err
		}

		if msg == nil {
			continue
		}

		if err := emit(msg); err != nil {
			return err
		}
	}

	return nil
}

// append caches msg. Callers hold mu.
func (r *Response) append(msg message.Message) {
	r.messages = append(r.messages, msg)
	r.log.Debug("Consumed message", "message_type", msg.MessageType(), "count", len(r.messages))
}

// finish records the terminal error and runs drain hooks. Callers hold mu.
func (r *Response) finish(err error) {
	if err != nil && errors.KindOf(err) == "" &&
		(stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		err = &errors.CancellationError{Cause: err}
	}

	r.err = err

	if err != nil {
		r.log.Debug("Stream ended with error", "error", err, "messages", len(r.messages))

		return
	}

	r.log.Debug("Stream drained", "messages", len(r.messages))

	for _, hook := range r.onDrained {
		hook(r.messages)
	}
}
