package middleware

import (
	"iter"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// observe wraps seq so onMessage sees every non-nil message and onEnd runs
// exactly once when iteration stops. complete reports a full drain without
// error; err is the stream error, if any.
func observe(
	seq iter.Seq2[message.Message, error],
	onMessage func(message.Message),
	onEnd func(err error, complete bool),
) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		var (
			streamErr error
			complete  bool
		)

		defer func() {
			if onEnd != nil {
				onEnd(streamErr, complete)
			}
		}()

		if seq == nil {
			complete = true

			return
		}

		for msg, err := range seq {
			if err != nil {
				streamErr = err
				yield(msg, err)

				return
			}

			if msg != nil && onMessage != nil {
				onMessage(msg)
			}

			if !yield(msg, nil) {
				return
			}
		}

		complete = true
	}
}

// replay serves a fixed list of messages.
func replay(msgs []message.Message) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		for _, m := range msgs {
			if !yield(m, nil) {
				return
			}
		}
	}
}

// requestModel is the model the request asks for, "" when unset.
func requestModel(req interceptor.Request) string {
	if req.Options == nil {
		return ""
	}

	return req.Options.Model
}
