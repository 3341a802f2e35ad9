// Package errors defines the error taxonomy for the query pipeline.
//
// Every concrete error type implements SDKError and reports one Kind, so callers
// can branch on the failure class (transport, parse, agent-reported, interceptor
// timeout, interceptor chain, cancellation) without knowing the concrete type.
// All wrapping types support errors.Is, errors.As and errors.AsType.
package errors
