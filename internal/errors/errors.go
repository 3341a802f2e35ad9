package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindTransport covers spawn failures, crashes and non-zero exits.
	KindTransport Kind = "transport"
	// KindParse covers undecodable records and failed structured-data extraction.
	KindParse Kind = "parse"
	// KindAgent covers errors reported by the agent process itself.
	KindAgent Kind = "agent"
	// KindInterceptorTimeout is used when the interceptor chain exceeds its budget.
	KindInterceptorTimeout Kind = "interceptor_timeout"
	// KindInterceptorChain covers chain contract violations and named middleware failures.
	KindInterceptorChain Kind = "interceptor_chain"
	// KindCancellation is used when an invocation is aborted by its context.
	KindCancellation Kind = "cancellation"
)

// SDKError is the base interface for all pipeline errors.
type SDKError interface {
	error
	ErrorKind() Kind
}

// Compile-time verification that all error types implement SDKError.
var (
	_ SDKError = (*CLINotFoundError)(nil)
	_ SDKError = (*CLIConnectionError)(nil)
	_ SDKError = (*ProcessError)(nil)
	_ SDKError = (*MessageParseError)(nil)
	_ SDKError = (*CLIJSONDecodeError)(nil)
	_ SDKError = (*StructuredOutputError)(nil)
	_ SDKError = (*AgentError)(nil)
	_ SDKError = (*InterceptorTimeoutError)(nil)
	_ SDKError = (*InterceptorChainError)(nil)
	_ SDKError = (*CancellationError)(nil)
	_ SDKError = (*CorrelatedError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrStreamConsumed indicates a single-use message stream was iterated twice.
	ErrStreamConsumed = errors.New("message stream already consumed")

	// ErrStreamInProgress is reported by response views read while Stream is
	// still delivering messages.
	ErrStreamInProgress = errors.New("response stream still in progress")

	// ErrNoJSON indicates no JSON value could be located in the response text.
	ErrNoJSON = errors.New("no JSON value found in response text")

	// ErrNextCalledTwice indicates a middleware invoked its next handler more than once.
	ErrNextCalledTwice = errors.New("next called more than once")

	// ErrContextTooLarge indicates the interceptor context exceeded MaxContextSize.
	ErrContextTooLarge = errors.New("interceptor context exceeds maximum size")
)

// KindOf returns the Kind of the first SDKError in err's chain, or "" if none.
func KindOf(err error) Kind {
	if sdkErr, ok := errors.AsType[SDKError](err); ok {
		return sdkErr.ErrorKind()
	}

	return ""
}

// CLINotFoundError indicates the Claude CLI binary was not found.
type CLINotFoundError struct {
	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("claude CLI not found in: %v", e.SearchedPaths)
}

// ErrorKind implements SDKError.
func (e *CLINotFoundError) ErrorKind() Kind { return KindTransport }

// CLIConnectionError indicates the CLI process could not be spawned or fed its input.
type CLIConnectionError struct {
	Err error
}

func (e *CLIConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to CLI: %v", e.Err)
}

func (e *CLIConnectionError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *CLIConnectionError) ErrorKind() Kind { return KindTransport }

// ProcessError indicates the CLI process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CLI process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("CLI process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *ProcessError) ErrorKind() Kind { return KindTransport }

// MessageParseError indicates a decoded record could not be mapped to a message.
type MessageParseError struct {
	Message string
	Err     error
	Data    map[string]any
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *MessageParseError) ErrorKind() Kind { return KindParse }

// CLIJSONDecodeError indicates JSON parsing failed for CLI output.
// This error preserves the original raw data that failed to parse.
type CLIJSONDecodeError struct {
	RawData string
	Err     error
}

func (e *CLIJSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from CLI: %v", e.Err)
}

func (e *CLIJSONDecodeError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *CLIJSONDecodeError) ErrorKind() Kind { return KindParse }

// StructuredOutputError indicates the response text did not contain valid
// structured data, or the data failed schema validation.
type StructuredOutputError struct {
	Text string
	Err  error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("failed to extract structured output: %v", e.Err)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *StructuredOutputError) ErrorKind() Kind { return KindParse }

// AgentError is an error record emitted by the agent process itself.
type AgentError struct {
	Kind    AgentErrorKind
	Message string
	Detail  map[string]any
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent reported %s error: %s", e.Kind, e.Message)
}

// ErrorKind implements SDKError.
func (e *AgentError) ErrorKind() Kind { return KindAgent }

// InterceptorTimeoutError indicates the interceptor chain exceeded its time budget.
type InterceptorTimeoutError struct {
	Timeout time.Duration
}

func (e *InterceptorTimeoutError) Error() string {
	return fmt.Sprintf("interceptor chain timed out after %s", e.Timeout)
}

// ErrorKind implements SDKError.
func (e *InterceptorTimeoutError) ErrorKind() Kind { return KindInterceptorTimeout }

// InterceptorChainError reports a failure raised by, or a contract violation of,
// a named interceptor. The original failure is kept as Err.
type InterceptorChainError struct {
	Interceptor string
	Err         error
}

func (e *InterceptorChainError) Error() string {
	return fmt.Sprintf("interceptor %q failed: %v", e.Interceptor, e.Err)
}

func (e *InterceptorChainError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *InterceptorChainError) ErrorKind() Kind { return KindInterceptorChain }

// CancellationError indicates the invocation was aborted through its context.
// Cause is the context's cancellation cause (context.Canceled,
// context.DeadlineExceeded or a custom cause).
type CancellationError struct {
	Cause error
}

func (e *CancellationError) Error() string {
	if e.Cause == nil {
		return "invocation cancelled"
	}

	return fmt.Sprintf("invocation cancelled: %v", e.Cause)
}

func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// ErrorKind implements SDKError.
func (e *CancellationError) ErrorKind() Kind { return KindCancellation }

// CorrelatedError annotates a failure with the correlation id of the invocation
// it happened in. It reports the kind of the wrapped error.
type CorrelatedError struct {
	CorrelationID string
	Err           error
}

func (e *CorrelatedError) Error() string {
	return fmt.Sprintf("[correlation %s] %v", e.CorrelationID, e.Err)
}

func (e *CorrelatedError) Unwrap() error {
	return e.Err
}

// ErrorKind implements SDKError.
func (e *CorrelatedError) ErrorKind() Kind { return KindOf(e.Err) }
