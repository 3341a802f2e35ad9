package message

import (
	"fmt"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
)

// Record type discriminators emitted by the CLI.
const (
	RecordTypeSystem    = "system"
	RecordTypeAssistant = "assistant"
	RecordTypeResult    = "result"
	RecordTypeError     = "error"
)

// Normalize converts one decoded output record into a typed Message.
//
// System records and unknown record types are suppressed and yield (nil, nil).
// Error records never become messages: they yield a classified *errors.AgentError.
// A record without a string "type" field yields *errors.MessageParseError.
func Normalize(raw map[string]any) (Message, error) {
	recordType, ok := raw["type"].(string)
	if !ok {
		return nil, &errors.MessageParseError{
			Message: "missing or invalid 'type' field",
			Err:     fmt.Errorf("missing or invalid 'type' field"),
			Data:    raw,
		}
	}

	switch recordType {
	case RecordTypeAssistant:
		msg, err := normalizeAssistant(raw)
		if err != nil {
			return nil, &errors.MessageParseError{Message: err.Error(), Err: err, Data: raw}
		}

		return msg, nil
	case RecordTypeResult:
		return normalizeResult(raw), nil
	case RecordTypeError:
		return nil, normalizeError(raw)
	default:
		return nil, nil
	}
}

// normalizeAssistant keeps only the nested content blocks and session id.
// The wire format nests content under "message".
func normalizeAssistant(raw map[string]any) (*AssistantMessage, error) {
	msg := &AssistantMessage{Content: []ContentBlock{}}
	msg.SessionID, _ = raw["session_id"].(string)

	inner, _ := raw["message"].(map[string]any)
	if inner == nil {
		return msg, nil
	}

	switch content := inner["content"].(type) {
	case []any:
		blocks, err := parseContentBlocks(content)
		if err != nil {
			return nil, fmt.Errorf("assistant content: %w", err)
		}

		msg.Content = blocks
	case string:
		msg.Content = []ContentBlock{&TextBlock{Text: content}}
	}

	return msg, nil
}

func normalizeResult(raw map[string]any) *ResultMessage {
	msg := &ResultMessage{}
	msg.Subtype, _ = raw["subtype"].(string)
	msg.SessionID, _ = raw["session_id"].(string)
	msg.IsError, _ = raw["is_error"].(bool)
	msg.DurationMs = intField(raw, "duration_ms")
	msg.NumTurns = intField(raw, "num_turns")

	if content, ok := raw["content"].(string); ok {
		msg.Content = content
	} else if result, ok := raw["result"].(string); ok {
		msg.Content = result
	}

	if usage, ok := raw["usage"].(map[string]any); ok {
		msg.Usage = &Usage{
			InputTokens:              intField(usage, "input_tokens"),
			OutputTokens:             intField(usage, "output_tokens"),
			CacheCreationInputTokens: intField(usage, "cache_creation_input_tokens"),
			CacheReadInputTokens:     intField(usage, "cache_read_input_tokens"),
			Raw:                      usage,
		}
	}

	if cost, ok := raw["cost"].(map[string]any); ok {
		msg.Cost.TotalUSD = floatField(cost, "total_cost_usd")
	} else {
		msg.Cost.TotalUSD = floatField(raw, "total_cost_usd")
	}

	return msg
}

// normalizeError accepts the three shapes the CLI uses for error records:
// {"error": {"type": ..., "message": ...}}, {"message": ...} and {"error": "..."}.
func normalizeError(raw map[string]any) *errors.AgentError {
	var text, errType string

	switch e := raw["error"].(type) {
	case map[string]any:
		text, _ = e["message"].(string)
		errType, _ = e["type"].(string)
	case string:
		text = e
	}

	if text == "" {
		text, _ = raw["message"].(string)
	}

	if text == "" {
		text = "unknown agent error"
	}

	return &errors.AgentError{
		Kind:    errors.ClassifyAgentError(errType + " " + text),
		Message: text,
		Detail:  raw,
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
