package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

// UsageStats aggregates usage over every result message of a response.
type UsageStats struct {
	InputTokens   int
	OutputTokens  int
	CacheCreation int
	CacheRead     int
	TotalTokens   int
	TotalCostUSD  float64
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Text returns the concatenated text blocks of all assistant messages.
func (r *Response) Text() (string, error) {
	msgs, err := r.Messages()

	var sb strings.Builder

	for _, msg := range msgs {
		assistant, ok := msg.(*message.AssistantMessage)
		if !ok {
			continue
		}

		for _, block := range assistant.Content {
			if text, ok := block.(*message.TextBlock); ok {
				sb.WriteString(text.Text)
			}
		}
	}

	return sb.String(), err
}

// Result returns the content of the last result message, or "" if there
// was none.
func (r *Response) Result() (string, error) {
	msgs, err := r.Messages()

	for i := len(msgs) - 1; i >= 0; i-- {
		if result, ok := msgs[i].(*message.ResultMessage); ok {
			return result.Content, err
		}
	}

	return "", err
}

// JSON parses the response text as JSON. Text wrapped in a ```json fence,
// or surrounded by prose, is accepted. When no assistant text was produced
// the result content is used.
//
// Parse failures are reported as *errors.StructuredOutputError.
func (r *Response) JSON() (any, error) {
	var v any
	if err := r.DecodeJSON(&v); err != nil {
		return nil, err
	}

	return v, nil
}

// DecodeJSON unmarshals the JSON found in the response text into v.
func (r *Response) DecodeJSON(v any) error {
	raw, text, err := r.rawJSON()
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return &errors.StructuredOutputError{Text: text, Err: err}
	}

	return nil
}

// ValidateJSON parses the response text as JSON and validates it against
// schema.
func (r *Response) ValidateJSON(schema *jsonschema.Schema) (any, error) {
	v, err := r.JSON()
	if err != nil {
		return nil, err
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}

	if err := resolved.Validate(v); err != nil {
		text, _ := r.Text()

		return nil, &errors.StructuredOutputError{Text: text, Err: err}
	}

	return v, nil
}

func (r *Response) rawJSON() ([]byte, string, error) {
	text, err := r.Text()
	if err != nil {
		return nil, text, err
	}

	if strings.TrimSpace(text) == "" {
		if text, err = r.Result(); err != nil {
			return nil, text, err
		}
	}

	raw := extractJSON(text)
	if raw == nil {
		return nil, text, &errors.StructuredOutputError{Text: text, Err: errors.ErrNoJSON}
	}

	return raw, text, nil
}

// extractJSON locates a JSON value in text: the whole text, a fenced code
// block, or the span from the first opening bracket to the last matching
// closing one.
func extractJSON(text string) []byte {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return nil
	}

	if json.Valid(trimmed) {
		return trimmed
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if inner := bytes.TrimSpace([]byte(m[1])); json.Valid(inner) {
			return inner
		}
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := bytes.IndexByte(trimmed, pair[0])
		end := bytes.LastIndexByte(trimmed, pair[1])

		if start >= 0 && end > start && json.Valid(trimmed[start:end+1]) {
			return trimmed[start : end+1]
		}
	}

	// Returned as-is so the decoder reports where it broke.
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}

	return nil
}

// ToolCalls returns every tool invocation in stream order.
func (r *Response) ToolCalls() ([]*message.ToolUseBlock, error) {
	msgs, err := r.Messages()

	var calls []*message.ToolUseBlock

	for _, block := range contentBlocks(msgs) {
		if call, ok := block.(*message.ToolUseBlock); ok {
			calls = append(calls, call)
		}
	}

	return calls, err
}

// ToolResult returns the first result of a tool named name, or nil.
func (r *Response) ToolResult(name string) (*message.ToolResultBlock, error) {
	results, err := r.ToolResults(name)
	if len(results) == 0 {
		return nil, err
	}

	return results[0], err
}

// ToolResults returns every result of tools named name, in stream order.
// Results are matched to their tool through the tool_use id.
func (r *Response) ToolResults(name string) ([]*message.ToolResultBlock, error) {
	msgs, err := r.Messages()
	blocks := contentBlocks(msgs)

	names := make(map[string]string)

	for _, block := range blocks {
		if call, ok := block.(*message.ToolUseBlock); ok {
			names[call.ID] = call.Name
		}
	}

	var results []*message.ToolResultBlock

	for _, block := range blocks {
		if result, ok := block.(*message.ToolResultBlock); ok && names[result.ToolUseID] == name {
			results = append(results, result)
		}
	}

	return results, err
}

// Usage sums token usage and cost over the result messages.
func (r *Response) Usage() (UsageStats, error) {
	msgs, err := r.Messages()

	var stats UsageStats

	for _, msg := range msgs {
		result, ok := msg.(*message.ResultMessage)
		if !ok {
			continue
		}

		stats.TotalCostUSD += result.Cost.TotalUSD

		if result.Usage == nil {
			continue
		}

		stats.InputTokens += result.Usage.InputTokens
		stats.OutputTokens += result.Usage.OutputTokens
		stats.CacheCreation += result.Usage.CacheCreationInputTokens
		stats.CacheRead += result.Usage.CacheReadInputTokens
	}

	stats.TotalTokens = stats.InputTokens + stats.OutputTokens

	return stats, err
}

// Cost returns the total cost in USD.
func (r *Response) Cost() (float64, error) {
	stats, err := r.Usage()

	return stats.TotalCostUSD, err
}

func contentBlocks(msgs []message.Message) []message.ContentBlock {
	var blocks []message.ContentBlock

	for _, msg := range msgs {
		if assistant, ok := msg.(*message.AssistantMessage); ok {
			blocks = append(blocks, assistant.Content...)
		}
	}

	return blocks
}
