package middleware

import (
	"context"
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
	"github.com/wagiedev/claude-pipeline-go/internal/models"
)

// Metadata keys written by TokenCount.
const (
	MetaPromptTokens  = "prompt_tokens"
	MetaContextWindow = "context_window"
)

// TokenCounter estimates token counts. Claude's tokenizer is not public, so
// cl100k_base stands in as an approximation.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter loads the cl100k_base encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding: %w", err)
	}

	return &TokenCounter{codec: codec}, nil
}

// Count returns the estimated number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	ids, _, _ := c.codec.Encode(text)

	return len(ids)
}

// TokenCount estimates the prompt size before the request runs and the total
// once the stream ends. Usage reported by a result message replaces the
// estimate.
func TokenCount(counter *TokenCounter) interceptor.Interceptor {
	return interceptor.Interceptor{
		Name: "token_count",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			promptTokens := counter.Count(req.Prompt)

			ictx.Metrics.TokenCount = promptTokens
			ictx.Set(MetaPromptTokens, promptTokens)
			ictx.Set(MetaContextWindow, models.ContextWindow(requestModel(req)))

			resp, err := next(ctx, req, ictx)
			if err != nil {
				return resp, err
			}

			if resp.Metadata == nil {
				resp.Metadata = &interceptor.ResponseMetadata{}
			}

			meta := resp.Metadata
			meta.TokenCount = promptTokens

			var (
				outputTokens int
				reported     int
				haveUsage    bool
			)

			resp.Messages = observe(resp.Messages,
				func(msg message.Message) {
					switch m := msg.(type) {
					case *message.AssistantMessage:
						for _, block := range m.Content {
							if text, ok := block.(*message.TextBlock); ok {
								outputTokens += counter.Count(text.Text)
							}
						}
					case *message.ResultMessage:
						if m.Usage != nil {
							reported += m.Usage.InputTokens + m.Usage.OutputTokens +
								m.Usage.CacheCreationInputTokens + m.Usage.CacheReadInputTokens
							haveUsage = true
						}
					}
				},
				func(error, bool) {
					total := promptTokens + outputTokens
					if haveUsage {
						total = reported
					}

					ictx.Metrics.TokenCount = total
					meta.TokenCount = total
				},
			)

			return resp, nil
		},
	}
}
