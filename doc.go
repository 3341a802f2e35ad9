// Package claudepipe drives the Claude CLI as a one-shot agent process and
// exposes its answer through a lazy, memoized response.
//
// # Basic Usage
//
//	resp := claudepipe.Query(ctx, "What is 2+2?",
//	    claudepipe.WithModel("haiku"),
//	    claudepipe.WithMaxTurns(1),
//	)
//
//	text, err := resp.Text()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cost, _ := resp.Cost()
//	fmt.Printf("%s (session %s, $%.4f)\n", text, resp.SessionID(), cost)
//
// The CLI is started on the first view and read exactly once. Every other
// view (Messages, Result, JSON, ToolCalls, Usage, ...) answers from the
// same cached messages. Stream delivers messages as they arrive.
//
// # Interceptors
//
// Each query runs through a chain of interceptors before the CLI starts:
//
//	counter, err := claudepipe.NewTokenCounter()
//	if err != nil {
//	    return err
//	}
//
//	resp := claudepipe.Query(ctx, prompt,
//	    claudepipe.WithInterceptors(
//	        claudepipe.LoggingInterceptor(logger),
//	        claudepipe.RedactInterceptor(),
//	        claudepipe.TokenCountInterceptor(counter),
//	    ),
//	    claudepipe.WithInterceptorConfig(claudepipe.InterceptorConfig{Timeout: 5 * time.Second}),
//	)
//
// Interceptors may rewrite the request, wrap the message stream, or answer
// without calling the next stage. Failures raised by an interceptor are
// reported as *InterceptorChainError naming it.
//
// # Sessions
//
// A Session captures the CLI session id from its first answer and resumes
// that conversation on every later query:
//
//	s := claudepipe.NewSession(claudepipe.WithLogger(logger))
//	_ = s.Query(ctx, "My name is Ada.").Err()
//	name, _ := s.Query(ctx, "What is my name?").Text()
//
// # Error Handling
//
// Every error carries a kind:
//
//	if _, err := resp.Text(); err != nil {
//	    if cliErr, ok := errors.AsType[*claudepipe.CLINotFoundError](err); ok {
//	        log.Fatalf("Claude CLI not installed, searched: %v", cliErr.SearchedPaths)
//	    }
//	    if claudepipe.KindOf(err) == claudepipe.KindCancellation {
//	        return
//	    }
//	    log.Fatal(err)
//	}
//
// # Requirements
//
// The Claude CLI must be installed and on PATH, or set with WithCliPath.
package claudepipe
