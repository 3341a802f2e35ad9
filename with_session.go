package claudepipe

import "context"

// WithSession runs fn with a new session built from opts.
//
// A session id stored under the configured session key is loaded before fn
// runs, so store failures are reported up front.
//
// Example usage:
//
//	err := claudepipe.WithSession(ctx, func(s *claudepipe.Session) error {
//	    if err := s.Query(ctx, "Remember the number 7").Err(); err != nil {
//	        return err
//	    }
//	    answer, err := s.Query(ctx, "Which number?").Text()
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(answer)
//	    return nil
//	},
//	    claudepipe.WithLogger(log),
//	    claudepipe.WithSessionStore(store, "demo"),
//	)
func WithSession(ctx context.Context, fn func(*Session) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s := NewSession(opts...)
	if err := s.load(ctx); err != nil {
		return err
	}

	return fn(s)
}
