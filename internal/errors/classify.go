package errors

import "regexp"

// AgentErrorKind is the best-effort classification of an agent error record.
type AgentErrorKind string

const (
	// AgentErrorAuthentication indicates missing or invalid credentials.
	AgentErrorAuthentication AgentErrorKind = "authentication"
	// AgentErrorBilling indicates an exhausted credit balance or quota.
	AgentErrorBilling AgentErrorKind = "billing"
	// AgentErrorRateLimit indicates the request was throttled.
	AgentErrorRateLimit AgentErrorKind = "rate_limit"
	// AgentErrorPermissionDenied indicates a refused tool or file permission.
	AgentErrorPermissionDenied AgentErrorKind = "permission_denied"
	// AgentErrorTimeout indicates the agent gave up waiting on something.
	AgentErrorTimeout AgentErrorKind = "timeout"
	// AgentErrorGeneric is used when no pattern matches.
	AgentErrorGeneric AgentErrorKind = "generic"
)

// agentErrorPatterns is checked in order; the first match wins.
// The wrapped CLI does not guarantee stable wording, so this is not exhaustive.
var agentErrorPatterns = []struct {
	kind    AgentErrorKind
	pattern *regexp.Regexp
}{
	{AgentErrorAuthentication, regexp.MustCompile(`(?i)authenticat|unauthori[sz]ed|invalid api key|api key|not logged in|please log in|\b401\b`)},
	{AgentErrorBilling, regexp.MustCompile(`(?i)billing|credit balance|insufficient credit|quota exceeded|payment`)},
	{AgentErrorRateLimit, regexp.MustCompile(`(?i)rate[ _-]?limit|too many requests|\b429\b|overloaded`)},
	{AgentErrorPermissionDenied, regexp.MustCompile(`(?i)permission denied|not permitted|forbidden|access denied|\b403\b`)},
	{AgentErrorTimeout, regexp.MustCompile(`(?i)timed? ?out|deadline exceeded`)},
}

// ClassifyAgentError maps an agent error message to an AgentErrorKind.
func ClassifyAgentError(text string) AgentErrorKind {
	for _, p := range agentErrorPatterns {
		if p.pattern.MatchString(text) {
			return p.kind
		}
	}

	return AgentErrorGeneric
}
