package interceptor

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// terminalStage names the terminal handler in size-limit errors.
const terminalStage = "terminal"

// Chain runs a request through the configured interceptors.
type Chain struct {
	log   *slog.Logger
	cfg   Config
	level slog.Level
}

// New creates a chain. The interceptor slice is copied.
func New(log *slog.Logger, cfg Config) *Chain {
	cfg.Interceptors = append([]Interceptor(nil), cfg.Interceptors...)

	level := slog.LevelDebug
	if cfg.Debug {
		level = slog.LevelInfo
	}

	return &Chain{
		log:   log.With("component", "interceptor_chain"),
		cfg:   cfg,
		level: level,
	}
}

// Len returns the number of interceptors.
func (c *Chain) Len() int {
	return len(c.cfg.Interceptors)
}

// Execute runs req through the chain and terminal.
//
// With no interceptors terminal is called directly with a nil *Context.
// Otherwise a Context is created for the invocation, and the returned
// response stream stamps its end time when it finishes.
func (c *Chain) Execute(ctx context.Context, req Request, terminal Handler) (Response, error) {
	if len(c.cfg.Interceptors) == 0 {
		return terminal(ctx, req, nil)
	}

	if req.OriginalPrompt == "" {
		req.OriginalPrompt = req.Prompt
	}

	ictx := NewContext(req)
	chainCtx, cancel := context.WithCancelCause(ctx)
	handler := c.fold(terminal)

	c.log.Log(ctx, c.level, "Interceptor chain started",
		"correlation_id", ictx.CorrelationID,
		"request_id", ictx.RequestID,
		"interceptors", len(c.cfg.Interceptors),
	)

	var (
		resp Response
		err  error
	)

	if c.cfg.Timeout > 0 {
		resp, err = c.runWithTimeout(chainCtx, cancel, handler, req, ictx)
	} else {
		resp, err = handler(chainCtx, req, ictx)
	}

	if err != nil {
		cancel(nil)
		ictx.finish()

		err = c.annotate(ctx, ictx, err)
		c.log.Warn("Interceptor chain failed", "correlation_id", ictx.CorrelationID, "error", err)

		return Response{}, err
	}

	if resp.Metadata == nil {
		resp.Metadata = &ResponseMetadata{}
	}

	resp.Messages = c.trackStream(resp.Messages, resp.Metadata, ictx, cancel)

	return resp, nil
}

// fold wraps terminal with the interceptors, index 0 outermost.
func (c *Chain) fold(terminal Handler) Handler {
	h := c.wrapTerminal(terminal)

	for i := len(c.cfg.Interceptors) - 1; i >= 0; i-- {
		h = c.wrap(i, c.cfg.Interceptors[i], h)
	}

	return h
}

func (c *Chain) wrapTerminal(terminal Handler) Handler {
	return func(ctx context.Context, req Request, ictx *Context) (Response, error) {
		if err := c.checkSize(terminalStage, req, ictx); err != nil {
			return Response{}, err
		}

		return terminal(ctx, req, ictx)
	}
}

func (c *Chain) wrap(index int, ic Interceptor, next Handler) Handler {
	name := ic.Name
	if name == "" {
		name = fmt.Sprintf("interceptor[%d]", index)
	}

	return func(ctx context.Context, req Request, ictx *Context) (resp Response, err error) {
		if err := c.checkSize(name, req, ictx); err != nil {
			return Response{}, err
		}

		var (
			called  atomic.Bool
			twice   atomic.Bool
			nextErr atomic.Pointer[error]
		)

		guarded := func(ctx context.Context, req Request, ictx *Context) (Response, error) {
			if !called.CompareAndSwap(false, true) {
				twice.Store(true)

				return Response{}, &errors.InterceptorChainError{Interceptor: name, Err: errors.ErrNextCalledTwice}
			}

			// The chain was abandoned (timeout or cancellation): do not start
			// anything further down.
			if ctx.Err() != nil {
				cause := context.Cause(ctx)
				nextErr.Store(&cause)

				return Response{}, cause
			}

			resp, err := next(ctx, req, ictx)
			if err != nil {
				nextErr.Store(&err)
			}

			return resp, err
		}

		defer func() {
			if r := recover(); r != nil {
				resp = Response{}
				err = &errors.InterceptorChainError{Interceptor: name, Err: fmt.Errorf("panic: %v", r)}

				c.log.Error("Interceptor panicked", "interceptor", name, "panic", r)
			}
		}()

		c.log.Log(ctx, c.level, "Interceptor entered", "interceptor", name, "correlation_id", ictx.CorrelationID)

		resp, err = ic.Intercept(ctx, req, ictx, guarded)

		// A second call to next fails the stage whatever it returned.
		if twice.Load() {
			resp = Response{}
			err = &errors.InterceptorChainError{Interceptor: name, Err: errors.ErrNextCalledTwice}
		}

		if err != nil {
			var received error
			if p := nextErr.Load(); p != nil {
				received = *p
			}

			if !sameError(err, received) && !isChainError(err) {
				err = &errors.InterceptorChainError{Interceptor: name, Err: err}
			}
		}

		c.log.Log(ctx, c.level, "Interceptor exited",
			"interceptor", name,
			"correlation_id", ictx.CorrelationID,
			"error", err,
		)

		return resp, err
	}
}

// runWithTimeout races the fold against the configured timeout. On expiry
// the chain context is cancelled with the timeout error as its cause, so a
// late call to next returns that error without reaching the terminal.
func (c *Chain) runWithTimeout(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	handler Handler,
	req Request,
	ictx *Context,
) (Response, error) {
	type outcome struct {
		resp Response
		err  error
	}

	done := make(chan outcome, 1)

	go func() {
		resp, err := handler(ctx, req, ictx)
		done <- outcome{resp: resp, err: err}
	}()

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.resp, o.err
	case <-timer.C:
		timeoutErr := &errors.InterceptorTimeoutError{Timeout: c.cfg.Timeout}
		cancel(timeoutErr)

		return Response{}, timeoutErr
	case <-ctx.Done():
		return Response{}, context.Cause(ctx)
	}
}

// annotate turns a chain-time failure into the error returned to the caller.
// Timeout and chain errors already identify the failing stage and are
// returned as they are.
func (c *Chain) annotate(parent context.Context, ictx *Context, err error) error {
	if isChainError(err) {
		return err
	}

	if parent.Err() != nil {
		return &errors.CancellationError{Cause: context.Cause(parent)}
	}

	return &errors.CorrelatedError{CorrelationID: ictx.CorrelationID, Err: err}
}

// trackStream stamps the end of the invocation and releases the chain
// context once the stream finishes or the consumer stops early.
func (c *Chain) trackStream(
	seq iter.Seq2[message.Message, error],
	meta *ResponseMetadata,
	ictx *Context,
	cancel context.CancelCauseFunc,
) iter.Seq2[message.Message, error] {
	done := func() {
		ictx.finish()
		meta.Latency = ictx.Metrics.Latency
		cancel(nil)

		c.log.Log(context.Background(), c.level, "Interceptor chain finished",
			"correlation_id", ictx.CorrelationID,
			"latency", ictx.Metrics.Latency,
		)
	}

	if seq == nil {
		done()

		return func(func(message.Message, error) bool) {}
	}

	return func(yield func(message.Message, error) bool) {
		defer done()

		for msg, err := range seq {
			if !yield(msg, err) {
				return
			}
		}
	}
}

// checkSize enforces MaxContextSize before stage runs.
func (c *Chain) checkSize(stage string, req Request, ictx *Context) error {
	if c.cfg.MaxContextSize <= 0 || ictx == nil {
		return nil
	}

	size := len(req.Prompt) + ictx.metadataSize()
	if size <= c.cfg.MaxContextSize {
		return nil
	}

	return &errors.InterceptorChainError{
		Interceptor: stage,
		Err: fmt.Errorf("%w: %d bytes before %s, limit %d",
			errors.ErrContextTooLarge, size, stage, c.cfg.MaxContextSize),
	}
}

func isChainError(err error) bool {
	if _, ok := stderrors.AsType[*errors.InterceptorChainError](err); ok {
		return true
	}

	if _, ok := stderrors.AsType[*errors.InterceptorTimeoutError](err); ok {
		return true
	}

	_, ok := stderrors.AsType[*errors.CancellationError](err)

	return ok
}

// sameError reports whether a and b are the identical error value. Errors of
// non-comparable dynamic types are never considered identical.
func sameError(a, b error) bool {
	if a == nil || b == nil {
		return false
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}

	return a == b
}
