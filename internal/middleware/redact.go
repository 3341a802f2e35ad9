package middleware

import (
	"context"
	"regexp"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
)

// Redacted replaces every match removed by Redact.
const Redacted = "[REDACTED]"

// MetaRedactions is the metadata key holding the number of replacements.
const MetaRedactions = "redactions"

// DefaultRedactions matches common secrets: Anthropic and OpenAI style API
// keys, AWS access key ids, bearer tokens, and email addresses.
var DefaultRedactions = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-(ant-)?[A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{16,}`),
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
}

// Redact rewrites the prompt, replacing matches of patterns with Redacted.
// With no patterns DefaultRedactions is used. OriginalPrompt keeps the text
// the caller wrote.
func Redact(patterns ...*regexp.Regexp) interceptor.Interceptor {
	if len(patterns) == 0 {
		patterns = DefaultRedactions
	}

	return interceptor.Interceptor{
		Name: "redact",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			var count int

			for _, re := range patterns {
				req.Prompt = re.ReplaceAllStringFunc(req.Prompt, func(string) string {
					count++

					return Redacted
				})
			}

			if count > 0 {
				ictx.Set(MetaRedactions, count)
			}

			return next(ctx, req, ictx)
		},
	}
}
