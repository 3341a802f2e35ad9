// Package interceptor implements the middleware chain wrapped around every
// invocation.
//
// Interceptors are folded right to left around a terminal handler, so the
// first interceptor in Config.Interceptors is the outermost:
//
//	chain := interceptor.New(log, interceptor.Config{
//	    Interceptors: []interceptor.Interceptor{logging, redact},
//	    Timeout:      2 * time.Second,
//	})
//	resp, err := chain.Execute(ctx, req, terminal)
//
// Each interceptor may call next at most once. Errors an interceptor raises
// itself are reported as *errors.InterceptorChainError naming it; errors that
// only pass through it are returned unchanged.
package interceptor
