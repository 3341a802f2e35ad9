package claudepipe

import "github.com/wagiedev/claude-pipeline-go/internal/errors"

// Re-export error types from internal package

// SDKError is implemented by every error the pipeline returns.
type SDKError = errors.SDKError

// ErrorKind classifies a pipeline failure.
type ErrorKind = errors.Kind

// Error kinds.
const (
	KindTransport          = errors.KindTransport
	KindParse              = errors.KindParse
	KindAgent              = errors.KindAgent
	KindInterceptorTimeout = errors.KindInterceptorTimeout
	KindInterceptorChain   = errors.KindInterceptorChain
	KindCancellation       = errors.KindCancellation
)

// CLINotFoundError indicates the Claude CLI binary was not found.
type CLINotFoundError = errors.CLINotFoundError

// CLIConnectionError indicates the CLI process could not be started or read.
type CLIConnectionError = errors.CLIConnectionError

// ProcessError indicates the CLI process exited unsuccessfully.
type ProcessError = errors.ProcessError

// CLIJSONDecodeError indicates a line of CLI output was not valid JSON.
type CLIJSONDecodeError = errors.CLIJSONDecodeError

// MessageParseError indicates a record could not be normalized.
type MessageParseError = errors.MessageParseError

// StructuredOutputError indicates no usable JSON could be extracted from a response.
type StructuredOutputError = errors.StructuredOutputError

// AgentError is an error reported by the agent itself.
type AgentError = errors.AgentError

// AgentErrorKind is the classification of an AgentError.
type AgentErrorKind = errors.AgentErrorKind

// Agent error kinds.
const (
	AgentErrorAuthentication   = errors.AgentErrorAuthentication
	AgentErrorBilling          = errors.AgentErrorBilling
	AgentErrorRateLimit        = errors.AgentErrorRateLimit
	AgentErrorPermissionDenied = errors.AgentErrorPermissionDenied
	AgentErrorTimeout          = errors.AgentErrorTimeout
	AgentErrorGeneric          = errors.AgentErrorGeneric
)

// InterceptorTimeoutError indicates the interceptor chain exceeded its timeout.
type InterceptorTimeoutError = errors.InterceptorTimeoutError

// InterceptorChainError attributes a failure to a named interceptor.
type InterceptorChainError = errors.InterceptorChainError

// CancellationError indicates a query was aborted by its context.
type CancellationError = errors.CancellationError

// CorrelatedError tags a chain failure with the invocation's correlation id.
type CorrelatedError = errors.CorrelatedError

// Re-export sentinel errors from internal package.
var (
	ErrStreamConsumed   = errors.ErrStreamConsumed
	ErrStreamInProgress = errors.ErrStreamInProgress
	ErrNoJSON           = errors.ErrNoJSON
	ErrNextCalledTwice  = errors.ErrNextCalledTwice
	ErrContextTooLarge  = errors.ErrContextTooLarge
)

// KindOf returns the kind of the first pipeline error in err's chain.
func KindOf(err error) ErrorKind {
	return errors.KindOf(err)
}

// ClassifyAgentError maps an agent error message to an AgentErrorKind.
func ClassifyAgentError(text string) AgentErrorKind {
	return errors.ClassifyAgentError(text)
}
